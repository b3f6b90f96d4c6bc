package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/roasapp-backend/internal/apps"
	"github.com/angelmondragon/roasapp-backend/internal/entitlements"
	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
)

func slugParam(r *http.Request) (string, error) {
	slug := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "slug")))
	if slug == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "app slug required").WithDetails(map[string]any{"field": "slug"})
	}
	return slug, nil
}

// AppsList returns the catalog annotated with the caller's install state.
func AppsList(svc apps.Service, logg *logger.Logger) http.HandlerFunc {
	return handleUser(logg, "app service", svc != nil, func(r *http.Request, userID uuid.UUID) (any, error) {
		return svc.ListWithInstallState(r.Context(), userID)
	})
}

// AppInstall starts the trial for the caller. Installing twice returns the existing link with 200.
func AppInstall(svc entitlements.Service, logg *logger.Logger) http.HandlerFunc {
	return handleUser(logg, "entitlement service", svc != nil, func(r *http.Request, userID uuid.UUID) (any, error) {
		slug, err := slugParam(r)
		if err != nil {
			return nil, err
		}
		result, err := svc.Install(r.Context(), userID, slug)
		if err != nil {
			return nil, err
		}
		if result.AlreadyInstalled {
			return result, nil
		}
		if logg != nil {
			logg.Info(logg.WithApp(r.Context(), slug), "app installed")
		}
		return created(result), nil
	})
}

// AppStatus reports the caller's entitlement for one app.
func AppStatus(catalog apps.Service, svc entitlements.Service, logg *logger.Logger) http.HandlerFunc {
	return handleUser(logg, "entitlement service", catalog != nil && svc != nil, func(r *http.Request, userID uuid.UUID) (any, error) {
		slug, err := slugParam(r)
		if err != nil {
			return nil, err
		}
		app, err := catalog.GetBySlug(r.Context(), slug)
		if err != nil {
			return nil, err
		}
		return svc.StatusFor(r.Context(), userID, app.ID)
	})
}
