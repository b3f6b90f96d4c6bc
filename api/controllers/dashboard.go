package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/roasapp-backend/internal/entitlements"
	"github.com/angelmondragon/roasapp-backend/internal/users"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
)

type dashboardResponse struct {
	User *users.UserDTO        `json:"user"`
	Apps []entitlements.Status `json:"apps"`
}

// Dashboard returns the caller's profile and the status of every installed app.
func Dashboard(userSvc users.Service, entSvc entitlements.Service, logg *logger.Logger) http.HandlerFunc {
	return handleUser(logg, "dashboard", userSvc != nil && entSvc != nil, func(r *http.Request, userID uuid.UUID) (any, error) {
		profile, err := userSvc.Profile(r.Context(), userID)
		if err != nil {
			return nil, err
		}
		statuses, err := entSvc.ListForUser(r.Context(), userID)
		if err != nil {
			return nil, err
		}
		if statuses == nil {
			statuses = []entitlements.Status{}
		}
		return dashboardResponse{User: profile, Apps: statuses}, nil
	})
}
