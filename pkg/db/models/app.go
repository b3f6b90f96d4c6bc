package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// App is an entry in the app store catalog.
type App struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"type:text;not null"`
	Description string    `gorm:"type:text;not null;default:''"`
	Slug        string    `gorm:"type:text;not null;uniqueIndex"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *App) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
