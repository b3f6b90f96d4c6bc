package entitlements

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/roasapp-backend/pkg/config"
	"github.com/angelmondragon/roasapp-backend/pkg/db"
	"github.com/angelmondragon/roasapp-backend/pkg/db/models"
	"github.com/angelmondragon/roasapp-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type appLookup interface {
	FindBySlug(ctx context.Context, slug string) (*models.App, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.App, error)
	List(ctx context.Context) ([]models.App, error)
}

type linkRepository interface {
	FindLink(ctx context.Context, userID, appID uuid.UUID) (*models.UserApp, error)
	CreateLink(ctx context.Context, link *models.UserApp) error
	SaveLink(ctx context.Context, link *models.UserApp) error
	DeleteLink(ctx context.Context, userID, appID uuid.UUID) (int64, error)
	ListLinksForUsers(ctx context.Context, userIDs []uuid.UUID) ([]models.UserApp, error)
	ExpirePremium(ctx context.Context, now time.Time) (int64, error)
}

// Service resolves and mutates per-user app entitlements.
type Service interface {
	StatusFor(ctx context.Context, userID, appID uuid.UUID) (Status, error)
	CheckAccess(ctx context.Context, userID uuid.UUID, slug string) (Status, error)
	Install(ctx context.Context, userID uuid.UUID, slug string) (*InstallResult, error)
	Uninstall(ctx context.Context, userID, appID uuid.UUID) error
	Grant(ctx context.Context, input GrantInput) (Status, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]Status, error)
	ListForUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]Status, error)
	ExpirePremium(ctx context.Context) (int64, error)
}

// InstallResult reports the link after an install request.
type InstallResult struct {
	Status           Status `json:"status"`
	AlreadyInstalled bool   `json:"already_installed"`
}

// GrantInput is an admin grant for one (user, app) pair.
type GrantInput struct {
	UserID      uuid.UUID
	AppID       uuid.UUID
	Kind        enums.GrantKind
	Duration    enums.PremiumDuration
	CustomHours int
}

type service struct {
	apps   appLookup
	links  linkRepository
	window time.Duration
	phone  string
	now    func() time.Time
}

// NewService builds the entitlements service.
func NewService(apps appLookup, links linkRepository, cfg config.EntitlementConfig) (Service, error) {
	if apps == nil {
		return nil, fmt.Errorf("apps repository required")
	}
	if links == nil {
		return nil, fmt.Errorf("entitlements repository required")
	}
	window := cfg.TrialWindow
	if window <= 0 {
		window = DefaultTrialWindow
	}
	return &service{
		apps:   apps,
		links:  links,
		window: window,
		phone:  cfg.ContactWhatsApp,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) resolve(app *models.App, link *models.UserApp) Status {
	st := ResolveStatus(app, link, s.window, s.now())
	st.ContactWhatsApp = s.phone
	return st
}

func (s *service) appBySlug(ctx context.Context, slug string) (*models.App, error) {
	app, err := s.apps.FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "app not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load app")
	}
	return app, nil
}

func (s *service) appByID(ctx context.Context, id uuid.UUID) (*models.App, error) {
	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "app not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load app")
	}
	return app, nil
}

// findLink returns nil without error when the pair is not installed.
func (s *service) findLink(ctx context.Context, userID, appID uuid.UUID) (*models.UserApp, error) {
	link, err := s.links.FindLink(ctx, userID, appID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load app installation")
	}
	return link, nil
}

func (s *service) StatusFor(ctx context.Context, userID, appID uuid.UUID) (Status, error) {
	app, err := s.appByID(ctx, appID)
	if err != nil {
		return Status{}, err
	}
	link, err := s.findLink(ctx, userID, app.ID)
	if err != nil {
		return Status{}, err
	}
	return s.resolve(app, link), nil
}

// CheckAccess is the gate in front of app features. A missing install is FORBIDDEN and an
// ended trial without premium is ACCESS_EXPIRED, with contact details for upgrading.
func (s *service) CheckAccess(ctx context.Context, userID uuid.UUID, slug string) (Status, error) {
	app, err := s.appBySlug(ctx, slug)
	if err != nil {
		return Status{}, err
	}
	link, err := s.findLink(ctx, userID, app.ID)
	if err != nil {
		return Status{}, err
	}
	st := s.resolve(app, link)
	if !st.Installed {
		return st, pkgerrors.New(pkgerrors.CodeForbidden, "install the app before using it").
			WithDetails(map[string]any{"app": app.Slug})
	}
	if st.Blocked() {
		return st, pkgerrors.New(pkgerrors.CodeAccessExpired, st.Message+" Please renew your subscription.").
			WithDetails(map[string]any{
				"app":              app.Slug,
				"access_type":      st.AccessType,
				"expired_at":       st.ExpiresAt,
				"contact_whatsapp": st.ContactWhatsApp,
			})
	}
	return st, nil
}

func (s *service) Install(ctx context.Context, userID uuid.UUID, slug string) (*InstallResult, error) {
	app, err := s.appBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	link, err := s.findLink(ctx, userID, app.ID)
	if err != nil {
		return nil, err
	}
	if link != nil {
		return &InstallResult{Status: s.resolve(app, link), AlreadyInstalled: true}, nil
	}

	link = &models.UserApp{UserID: userID, AppID: app.ID, InstalledAt: s.now()}
	if err := s.links.CreateLink(ctx, link); err != nil {
		if db.IsUniqueViolation(err, "") {
			existing, findErr := s.findLink(ctx, userID, app.ID)
			if findErr == nil && existing != nil {
				return &InstallResult{Status: s.resolve(app, existing), AlreadyInstalled: true}, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "install app")
	}
	return &InstallResult{Status: s.resolve(app, link)}, nil
}

func (s *service) Uninstall(ctx context.Context, userID, appID uuid.UUID) error {
	removed, err := s.links.DeleteLink(ctx, userID, appID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "uninstall app")
	}
	if removed == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "app is not installed for this user")
	}
	return nil
}

// Grant installs the app when needed, then either restarts the trial or extends premium.
// Premium stacks on top of a still-active premium window.
func (s *service) Grant(ctx context.Context, input GrantInput) (Status, error) {
	if !input.Kind.IsValid() {
		return Status{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid grant type").
			WithDetails(map[string]string{"type": "must be one of trial, premium"})
	}
	var window time.Duration
	if input.Kind == enums.GrantKindPremium {
		w, err := input.Duration.Window(input.CustomHours)
		if err != nil {
			return Status{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid premium duration").
				WithDetails(map[string]string{"duration": err.Error()})
		}
		window = w
	}

	app, err := s.appByID(ctx, input.AppID)
	if err != nil {
		return Status{}, err
	}
	link, err := s.findLink(ctx, input.UserID, app.ID)
	if err != nil {
		return Status{}, err
	}

	now := s.now()
	created := false
	if link == nil {
		link = &models.UserApp{UserID: input.UserID, AppID: app.ID, InstalledAt: now}
		created = true
	}

	switch input.Kind {
	case enums.GrantKindTrial:
		link.InstalledAt = now
		link.IsPremium = false
		link.PremiumEndDate = nil
	case enums.GrantKindPremium:
		start := now
		if link.IsPremium && link.PremiumEndDate != nil && link.PremiumEndDate.After(now) {
			start = link.PremiumEndDate.UTC()
		}
		end := start.Add(window)
		link.IsPremium = true
		link.PremiumEndDate = &end
	}

	if created {
		err = s.links.CreateLink(ctx, link)
	} else {
		err = s.links.SaveLink(ctx, link)
	}
	if err != nil {
		return Status{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save grant")
	}
	return s.resolve(app, link), nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]Status, error) {
	byUser, err := s.ListForUsers(ctx, []uuid.UUID{userID})
	if err != nil {
		return nil, err
	}
	if out := byUser[userID]; out != nil {
		return out, nil
	}
	return []Status{}, nil
}

// ListForUsers resolves every installed app of the given users, keyed by user.
func (s *service) ListForUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]Status, error) {
	out := make(map[uuid.UUID][]Status, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	apps, err := s.apps.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list apps")
	}
	catalog := make(map[uuid.UUID]*models.App, len(apps))
	for i := range apps {
		catalog[apps[i].ID] = &apps[i]
	}

	links, err := s.links.ListLinksForUsers(ctx, userIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list app installations")
	}
	for i := range links {
		link := &links[i]
		app, ok := catalog[link.AppID]
		if !ok {
			continue
		}
		out[link.UserID] = append(out[link.UserID], s.resolve(app, link))
	}
	return out, nil
}

func (s *service) ExpirePremium(ctx context.Context) (int64, error) {
	n, err := s.links.ExpirePremium(ctx, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire premium windows")
	}
	return n, nil
}
