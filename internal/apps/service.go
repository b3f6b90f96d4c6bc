package apps

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/roasapp-backend/internal/entitlements"
	"github.com/angelmondragon/roasapp-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type catalogRepository interface {
	FindBySlug(ctx context.Context, slug string) (*models.App, error)
	List(ctx context.Context) ([]models.App, error)
}

type installLister interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]entitlements.Status, error)
}

// Service exposes the app store catalog.
type Service interface {
	ListWithInstallState(ctx context.Context, userID uuid.UUID) ([]CatalogEntry, error)
	GetBySlug(ctx context.Context, slug string) (*AppDTO, error)
}

type service struct {
	repo     catalogRepository
	installs installLister
}

// NewService builds the catalog service.
func NewService(repo catalogRepository, installs installLister) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("apps repository required")
	}
	if installs == nil {
		return nil, fmt.Errorf("entitlements service required")
	}
	return &service{repo: repo, installs: installs}, nil
}

func (s *service) ListWithInstallState(ctx context.Context, userID uuid.UUID) ([]CatalogEntry, error) {
	apps, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list apps")
	}
	statuses, err := s.installs.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	byApp := make(map[uuid.UUID]entitlements.Status, len(statuses))
	for _, st := range statuses {
		byApp[st.AppID] = st
	}

	entries := make([]CatalogEntry, 0, len(apps))
	for i := range apps {
		entry := CatalogEntry{AppDTO: FromModel(&apps[i])}
		if st, ok := byApp[apps[i].ID]; ok {
			st := st
			entry.Installed = true
			entry.Status = &st
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*AppDTO, error) {
	app, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "app not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load app")
	}
	dto := FromModel(app)
	return &dto, nil
}
