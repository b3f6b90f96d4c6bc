package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/roasapp-backend/api/responses"
	"github.com/angelmondragon/roasapp-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

const envHeader = "X-RoasApp-Env"

// Pinger is anything the readiness probe can check.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings postgres and redis. A nil dependency is reported as skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, db Pinger, redis Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		var failed error
		for name, dep := range map[string]Pinger{"db": db, "redis": redis} {
			if dep == nil {
				checks[name] = "skipped"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "down"
				failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable")
				continue
			}
			checks[name] = "ok"
		}

		if failed != nil {
			if typed := pkgerrors.As(failed); typed != nil {
				failed = typed.WithDetails(checks)
			}
			responses.WriteError(r.Context(), logg, w, failed)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
