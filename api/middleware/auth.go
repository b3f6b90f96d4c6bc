package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/roasapp-backend/api/responses"
	pkgAuth "github.com/angelmondragon/roasapp-backend/pkg/auth"
	"github.com/angelmondragon/roasapp-backend/pkg/auth/session"
	"github.com/angelmondragon/roasapp-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
)

var errMissingCredentials = pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")

// BearerToken extracts the token from the Authorization header. The "Bearer " prefix is optional.
func BearerToken(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, rest, ok := strings.Cut(raw, " "); ok && strings.EqualFold(scheme, "bearer") {
		raw = strings.TrimSpace(rest)
	} else if strings.EqualFold(raw, "bearer") {
		raw = ""
	}
	if raw == "" {
		return "", errMissingCredentials
	}
	return raw, nil
}

type authenticator struct {
	cfg      config.JWTConfig
	sessions session.AccessSessionChecker
}

// principal resolves the caller from the request's access token. A token whose session was
// revoked is rejected even when its signature and expiry are still valid.
func (a authenticator) principal(r *http.Request) (Principal, error) {
	token, err := BearerToken(r)
	if err != nil {
		return Principal{}, err
	}
	claims, err := pkgAuth.ParseAccessToken(a.cfg, token)
	if err != nil {
		return Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if a.sessions != nil {
		live, err := a.sessions.HasSession(r.Context(), claims.ID)
		switch {
		case err != nil:
			return Principal{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		case !live:
			return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}
	return Principal{
		UserID:   claims.UserID.String(),
		Role:     string(claims.Role),
		Username: claims.Username,
	}, nil
}

// Auth validates a bearer token and seeds the request context with the caller.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	a := authenticator{cfg: cfg, sessions: verifier}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.principal(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithPrincipal(r.Context(), p)
			if logg != nil {
				ctx = logg.WithRole(logg.WithUserID(ctx, p.UserID), p.Role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
