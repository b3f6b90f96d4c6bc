package apps

import (
	"context"

	"github.com/angelmondragon/roasapp-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes the app catalog persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an apps repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindBySlug loads an app by its unique slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.App, error) {
	var app models.App
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// FindByID loads an app by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.App, error) {
	var app models.App
	if err := r.db.WithContext(ctx).First(&app, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// List returns the whole catalog ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.App, error) {
	apps := []models.App{}
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

// Upsert inserts the app or refreshes name and description when the slug already exists.
func (r *Repository) Upsert(ctx context.Context, app *models.App) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "updated_at"}),
	}).Create(app).Error
}
