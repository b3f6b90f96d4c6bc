package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/roasapp-backend/internal/users"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
)

func MeProfile(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return handleUser(logg, "user service", svc != nil, func(r *http.Request, userID uuid.UUID) (any, error) {
		return svc.Profile(r.Context(), userID)
	})
}

// MeUpdate changes the caller's username. The current access token keeps the old name until refresh.
func MeUpdate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return handleUser(logg, "user service", svc != nil, func(r *http.Request, userID uuid.UUID) (any, error) {
		body, err := decode[users.UpdateProfileRequest](r)
		if err != nil {
			return nil, err
		}
		return svc.UpdateUsername(r.Context(), userID, body.Username)
	})
}
