package apps

import (
	"github.com/angelmondragon/roasapp-backend/internal/entitlements"
	"github.com/angelmondragon/roasapp-backend/pkg/db/models"
	"github.com/google/uuid"
)

// AppDTO is the public catalog shape.
type AppDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Slug        string    `json:"slug"`
}

// CatalogEntry is an app plus the caller's install state.
type CatalogEntry struct {
	AppDTO
	Installed bool                 `json:"installed"`
	Status    *entitlements.Status `json:"status,omitempty"`
}

// FromModel maps the persistence model to the public DTO.
func FromModel(app *models.App) AppDTO {
	return AppDTO{
		ID:          app.ID,
		Name:        app.Name,
		Description: app.Description,
		Slug:        app.Slug,
	}
}
