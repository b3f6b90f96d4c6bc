package middleware

import (
	"net/http"
	"slices"

	"github.com/angelmondragon/roasapp-backend/api/responses"
	"github.com/angelmondragon/roasapp-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
)

// RequireRole lets a request through when the authenticated role is one of allowed.
// It must run after Auth; a request without a role is treated as anonymous.
func RequireRole(logg *logger.Logger, allowed ...enums.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := enums.UserRole(RoleFromContext(r.Context()))
			switch {
			case role == "":
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			case !slices.Contains(allowed, role):
				responses.WriteError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeForbidden, "%s role cannot access this resource", role))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
