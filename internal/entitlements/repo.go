package entitlements

import (
	"context"
	"time"

	"github.com/angelmondragon/roasapp-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists user_apps links.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an entitlements repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindLink returns the link for the pair or gorm.ErrRecordNotFound.
func (r *Repository) FindLink(ctx context.Context, userID, appID uuid.UUID) (*models.UserApp, error) {
	var link models.UserApp
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND app_id = ?", userID, appID).
		First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// CreateLink inserts a new installation.
func (r *Repository) CreateLink(ctx context.Context, link *models.UserApp) error {
	return r.db.WithContext(ctx).Create(link).Error
}

// SaveLink writes the entitlement columns of an existing link.
func (r *Repository) SaveLink(ctx context.Context, link *models.UserApp) error {
	return r.db.WithContext(ctx).
		Model(&models.UserApp{}).
		Where("id = ?", link.ID).
		Updates(map[string]any{
			"installed_at":     link.InstalledAt,
			"is_premium":       link.IsPremium,
			"premium_end_date": link.PremiumEndDate,
			"updated_at":       time.Now().UTC(),
		}).Error
}

// DeleteLink removes the pair and reports how many rows were removed.
func (r *Repository) DeleteLink(ctx context.Context, userID, appID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND app_id = ?", userID, appID).
		Delete(&models.UserApp{})
	return res.RowsAffected, res.Error
}

// DeleteLinksForUser removes every installation of a user.
func (r *Repository) DeleteLinksForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.UserApp{}).Error
}

// ListLinksForUsers loads the links of all given users ordered by installation time.
func (r *Repository) ListLinksForUsers(ctx context.Context, userIDs []uuid.UUID) ([]models.UserApp, error) {
	links := []models.UserApp{}
	if len(userIDs) == 0 {
		return links, nil
	}
	if err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("installed_at ASC").
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// ExpirePremium clears the premium flag on every link whose premium window has ended.
func (r *Repository) ExpirePremium(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.UserApp{}).
		Where("is_premium = ? AND premium_end_date IS NOT NULL AND premium_end_date <= ?", true, now).
		Updates(map[string]any{
			"is_premium": false,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}
