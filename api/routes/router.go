package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/roasapp-backend/api/controllers"
	"github.com/angelmondragon/roasapp-backend/api/middleware"
	"github.com/angelmondragon/roasapp-backend/internal/admin"
	"github.com/angelmondragon/roasapp-backend/internal/apps"
	"github.com/angelmondragon/roasapp-backend/internal/auth"
	"github.com/angelmondragon/roasapp-backend/internal/entitlements"
	"github.com/angelmondragon/roasapp-backend/internal/roas"
	"github.com/angelmondragon/roasapp-backend/internal/users"
	"github.com/angelmondragon/roasapp-backend/pkg/auth/session"
	"github.com/angelmondragon/roasapp-backend/pkg/config"
	"github.com/angelmondragon/roasapp-backend/pkg/enums"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
	"github.com/angelmondragon/roasapp-backend/pkg/redis"
)

// Services groups the domain services the HTTP surface dispatches to.
type Services struct {
	Auth         auth.Service
	Users        users.Service
	Apps         apps.Service
	Entitlements entitlements.Service
	Roas         roas.Service
	Admin        admin.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	gatherer prometheus.Gatherer,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	// a nil *redis.Client must not leak into the interfaces as a non-nil value
	var (
		counters    middleware.RateCounter
		idemStore   redis.IdempotencyStore
		redisPinger controllers.Pinger
	)
	if redisClient != nil {
		counters = redisClient
		idemStore = redisClient
		redisPinger = redisClient
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterUsernameLimit,
	)
	calculatorPolicy := middleware.RateLimitPolicy{
		RPS:   cfg.RateLimit.CalculatorRPS,
		Burst: cfg.RateLimit.CalculatorBurst,
	}
	idem := middleware.NewIdempotency(idemStore, cfg.Idempotency.TTL, logg)
	requireAuth := middleware.Auth(cfg.JWT, sessions, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, counters, logg)).Post("/login", controllers.AuthLogin(svc.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, counters, logg), idem.Optional).Post("/register", controllers.AuthRegister(svc.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svc.Auth, logg))
		r.With(requireAuth).Post("/logout", controllers.AuthLogout(svc.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/me", controllers.MeProfile(svc.Users, logg))
		r.Patch("/me", controllers.MeUpdate(svc.Users, logg))
		r.Get("/dashboard", controllers.Dashboard(svc.Users, svc.Entitlements, logg))

		r.Route("/apps", func(r chi.Router) {
			r.Get("/", controllers.AppsList(svc.Apps, logg))
			r.With(idem.Optional).Post("/{slug}/install", controllers.AppInstall(svc.Entitlements, logg))
			r.Get("/{slug}/status", controllers.AppStatus(svc.Apps, svc.Entitlements, logg))
		})

		r.Route("/roas", func(r chi.Router) {
			r.Use(middleware.RateLimit(calculatorPolicy, logg))
			r.Post("/recommend", controllers.RoasRecommend(svc.Roas, logg))
			r.Post("/plan", controllers.RoasPlan(svc.Roas, logg))
			r.Post("/analyze", controllers.RoasAnalyze(svc.Roas, logg))
			r.Post("/batch", controllers.RoasBatch(svc.Roas, cfg.Calculator.MaxUploadBytes(), logg))
			r.Post("/batch/recalculate", controllers.RoasRecalculate(svc.Roas, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.AdminListUsers(svc.Admin, logg))
			r.Delete("/{userId}", controllers.AdminDeleteUser(svc.Admin, logg))
			r.With(idem.Required).Post("/{userId}/apps/{appId}/grant", controllers.AdminGrantAccess(svc.Admin, logg))
			r.Delete("/{userId}/apps/{appId}", controllers.AdminUninstallApp(svc.Admin, logg))
		})
	})

	return r
}
