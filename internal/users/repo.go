package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/roasapp-backend/pkg/db/models"
	"github.com/angelmondragon/roasapp-backend/pkg/enums"
	"github.com/angelmondragon/roasapp-backend/pkg/pagination"
)

// Repository is the gorm-backed user store. Bind it to a transaction handle to take part in one.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) users(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{})
}

func (r *Repository) first(ctx context.Context, column string, value any) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(column+" = ?", value).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// set writes the given columns on one user without running model hooks.
func (r *Repository) set(ctx context.Context, id uuid.UUID, columns map[string]any) error {
	return r.users(ctx).Where("id = ?", id).UpdateColumns(columns).Error
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username", username)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id", id)
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.set(ctx, id, map[string]any{"last_login_at": at})
}

// UpdatePasswordHash stores a re-encoded password hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.set(ctx, id, map[string]any{"password_hash": hash})
}

func (r *Repository) UpdateUsername(ctx context.Context, id uuid.UUID, username string) error {
	return r.set(ctx, id, map[string]any{"username": username, "updated_at": time.Now().UTC()})
}

// UpdateRole sets the platform role, used by the admin bootstrap.
func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, role enums.UserRole) error {
	return r.set(ctx, id, map[string]any{"role": role})
}

// ListPage returns up to limit users with the given role, ordered by (created_at, id) and
// starting strictly after the cursor position when one is given.
func (r *Repository) ListPage(ctx context.Context, role enums.UserRole, after *pagination.Cursor, limit int) ([]models.User, error) {
	query := r.users(ctx).Where("role = ?", role)
	if after != nil {
		query = query.Where("(created_at > ?) OR (created_at = ? AND id > ?)", after.CreatedAt, after.CreatedAt, after.ID)
	}
	page := []models.User{}
	if err := query.Order("created_at ASC, id ASC").Limit(limit).Find(&page).Error; err != nil {
		return nil, err
	}
	return page, nil
}

// Delete removes the user row and reports how many rows went away.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	return res.RowsAffected, res.Error
}
