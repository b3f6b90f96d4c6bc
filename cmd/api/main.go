package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/roasapp-backend/api/routes"
	"github.com/angelmondragon/roasapp-backend/internal/admin"
	"github.com/angelmondragon/roasapp-backend/internal/apps"
	"github.com/angelmondragon/roasapp-backend/internal/auth"
	"github.com/angelmondragon/roasapp-backend/internal/entitlements"
	"github.com/angelmondragon/roasapp-backend/internal/roas"
	"github.com/angelmondragon/roasapp-backend/internal/users"
	"github.com/angelmondragon/roasapp-backend/pkg/auth/session"
	"github.com/angelmondragon/roasapp-backend/pkg/config"
	"github.com/angelmondragon/roasapp-backend/pkg/db"
	"github.com/angelmondragon/roasapp-backend/pkg/instance"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
	"github.com/angelmondragon/roasapp-backend/pkg/metrics"
	"github.com/angelmondragon/roasapp-backend/pkg/migrate"
	"github.com/angelmondragon/roasapp-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.ForApp("api", cfg.App)

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	services, err := buildServices(cfg, logg, dbClient, redisClient, sessionManager)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, prometheus.DefaultGatherer, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stop:
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, sessionManager *session.Manager) (routes.Services, error) {
	userRepo := users.NewRepository(dbClient.DB())
	appRepo := apps.NewRepository(dbClient.DB())
	linkRepo := entitlements.NewRepository(dbClient.DB())

	entitlementService, err := entitlements.NewService(appRepo, linkRepo, cfg.Entitlement)
	if err != nil {
		return routes.Services{}, err
	}
	appService, err := apps.NewService(appRepo, entitlementService)
	if err != nil {
		return routes.Services{}, err
	}
	userService, err := users.NewService(userRepo)
	if err != nil {
		return routes.Services{}, err
	}
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Services{}, err
	}

	snapshots, err := roas.NewRedisSnapshotStore(redisClient, cfg.Calculator.SnapshotTTL)
	if err != nil {
		return routes.Services{}, err
	}
	roasService, err := roas.NewService(roas.ServiceParams{
		Engine:    roas.NewEngine(roas.AssumptionsFromConfig(cfg.Calculator)),
		Snapshots: snapshots,
		Access:    entitlementService,
		AppSlug:   cfg.Calculator.AppSlug,
		Metrics:   metrics.NewCalculatorMetrics(prometheus.DefaultRegisterer),
		Logger:    logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	adminService, err := admin.NewService(admin.ServiceParams{
		Users:        userRepo,
		Entitlements: entitlementService,
		Tx:           dbClient,
		Sessions:     sessionManager,
		Logger:       logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:         authService,
		Users:        userService,
		Apps:         appService,
		Entitlements: entitlementService,
		Roas:         roasService,
		Admin:        adminService,
	}, nil
}
