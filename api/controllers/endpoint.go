package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/roasapp-backend/api/middleware"
	"github.com/angelmondragon/roasapp-backend/api/responses"
	"github.com/angelmondragon/roasapp-backend/api/validators"
	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
)

// statusReply overrides the default 200 for a successful endpoint.
type statusReply struct {
	code int
	body any
}

func created(body any) statusReply { return statusReply{code: http.StatusCreated, body: body} }

// pageReply is written with the paginated envelope.
type pageReply struct {
	items any
	next  string
}

type endpoint func(r *http.Request) (any, error)

type userEndpoint func(r *http.Request, userID uuid.UUID) (any, error)

// handle adapts an endpoint to net/http. ready is false when the backing service was not wired,
// which is reported as an internal error rather than a panic.
func handle(logg *logger.Logger, service string, ready bool, fn endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ready {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, service+" unavailable"))
			return
		}
		out, err := fn(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		switch v := out.(type) {
		case statusReply:
			responses.WriteSuccessStatus(w, v.code, v.body)
		case pageReply:
			responses.WritePage(w, v.items, v.next)
		default:
			responses.WriteSuccess(w, v)
		}
	}
}

// handleUser is handle for routes behind middleware.Auth.
func handleUser(logg *logger.Logger, service string, ready bool, fn userEndpoint) http.HandlerFunc {
	return handle(logg, service, ready, func(r *http.Request) (any, error) {
		userID, err := currentUser(r)
		if err != nil {
			return nil, err
		}
		return fn(r, userID)
	})
}

func currentUser(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return id, nil
}

func decode[T any](r *http.Request) (T, error) {
	var body T
	err := validators.DecodeJSONBody(r, &body)
	return body, err
}

func statusOK(status string) map[string]string {
	return map[string]string{"status": status}
}
