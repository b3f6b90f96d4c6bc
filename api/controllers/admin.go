package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/roasapp-backend/api/middleware"
	"github.com/angelmondragon/roasapp-backend/api/validators"
	"github.com/angelmondragon/roasapp-backend/internal/admin"
	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
	"github.com/angelmondragon/roasapp-backend/pkg/pagination"
)

const adminService = "admin service"

// uuidParams parses the named chi URL params in order, stopping at the first invalid one.
func uuidParams(r *http.Request, names ...string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(names))
	for i, name := range names {
		id, err := validators.ParseURLUUID(chi.URLParam(r, name), name)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// AdminListUsers pages through non-admin users with their per-app status.
func AdminListUsers(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, adminService, svc != nil, func(r *http.Request) (any, error) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			return nil, err
		}
		page, err := svc.ListUsers(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			return nil, err
		}
		return pageReply{items: page.Users, next: page.NextCursor}, nil
	})
}

func AdminDeleteUser(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, adminService, svc != nil, func(r *http.Request) (any, error) {
		ids, err := uuidParams(r, "userId")
		if err != nil {
			return nil, err
		}
		if ids[0].String() == middleware.UserIDFromContext(r.Context()) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admins cannot delete themselves")
		}
		if err := svc.DeleteUser(r.Context(), ids[0]); err != nil {
			return nil, err
		}
		return statusOK("deleted"), nil
	})
}

// AdminGrantAccess resets a trial or grants premium for one (user, app) pair.
func AdminGrantAccess(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, adminService, svc != nil, func(r *http.Request) (any, error) {
		ids, err := uuidParams(r, "userId", "appId")
		if err != nil {
			return nil, err
		}
		body, err := decode[admin.GrantRequest](r)
		if err != nil {
			return nil, err
		}
		return svc.GrantAccess(r.Context(), ids[0], ids[1], body)
	})
}

func AdminUninstallApp(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, adminService, svc != nil, func(r *http.Request) (any, error) {
		ids, err := uuidParams(r, "userId", "appId")
		if err != nil {
			return nil, err
		}
		if err := svc.UninstallApp(r.Context(), ids[0], ids[1]); err != nil {
			return nil, err
		}
		return statusOK("uninstalled"), nil
	})
}
