package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserApp links a user to an installed app and carries its entitlement window.
type UserApp struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_apps_user_app"`
	AppID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_apps_user_app"`
	InstalledAt    time.Time  `gorm:"column:installed_at;not null"`
	IsPremium      bool       `gorm:"column:is_premium;not null;default:false"`
	PremiumEndDate *time.Time `gorm:"column:premium_end_date"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (UserApp) TableName() string {
	return "user_apps"
}

func (l *UserApp) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// All lists the models migrated by the embedded SQLite bootstrap.
func All() []any {
	return []any{&User{}, &App{}, &UserApp{}}
}
