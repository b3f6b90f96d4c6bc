package controllers

import (
	"net/http"

	"github.com/angelmondragon/roasapp-backend/api/middleware"
	"github.com/angelmondragon/roasapp-backend/internal/auth"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
)

const authService = "auth service"

// AuthRegister creates the account and signs it in so the client gets a token pair straight away.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, authService, svc != nil, func(r *http.Request) (any, error) {
		body, err := decode[auth.RegisterRequest](r)
		if err != nil {
			return nil, err
		}
		if _, err := svc.Register(r.Context(), body); err != nil {
			return nil, err
		}
		session, err := svc.Login(r.Context(), auth.LoginRequest{Username: body.Username, Password: body.Password})
		if err != nil {
			return nil, err
		}
		return created(session), nil
	})
}

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, authService, svc != nil, func(r *http.Request) (any, error) {
		body, err := decode[auth.LoginRequest](r)
		if err != nil {
			return nil, err
		}
		return svc.Login(r.Context(), body)
	})
}

// AuthRefresh rotates the refresh token. The access token, expired or not, identifies the session.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, authService, svc != nil, func(r *http.Request) (any, error) {
		body, err := decode[auth.RefreshRequest](r)
		if err != nil {
			return nil, err
		}
		token, err := middleware.BearerToken(r)
		if err != nil {
			return nil, err
		}
		return svc.Refresh(r.Context(), token, body.RefreshToken)
	})
}

// AuthLogout revokes the refresh mapping tied to the presented access token.
func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, authService, svc != nil, func(r *http.Request) (any, error) {
		token, err := middleware.BearerToken(r)
		if err != nil {
			return nil, err
		}
		if err := svc.Logout(r.Context(), token); err != nil {
			return nil, err
		}
		return statusOK("logged_out"), nil
	})
}
