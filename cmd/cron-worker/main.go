package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/roasapp-backend/internal/apps"
	"github.com/angelmondragon/roasapp-backend/internal/cron"
	"github.com/angelmondragon/roasapp-backend/internal/entitlements"
	"github.com/angelmondragon/roasapp-backend/pkg/config"
	"github.com/angelmondragon/roasapp-backend/pkg/db"
	"github.com/angelmondragon/roasapp-backend/pkg/instance"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
	"github.com/angelmondragon/roasapp-backend/pkg/metrics"
	"github.com/angelmondragon/roasapp-backend/pkg/migrate"
	"github.com/angelmondragon/roasapp-backend/pkg/redis"
)

const lockName = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.ForApp("cron-worker", cfg.App)

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

	entitlementService, err := entitlements.NewService(
		apps.NewRepository(dbClient.DB()),
		entitlements.NewRepository(dbClient.DB()),
		cfg.Entitlement,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create entitlement service", err)
		os.Exit(1)
	}

	premiumJob, err := cron.NewPremiumExpiryJob(cron.PremiumExpiryJobParams{
		Logger:       logg,
		Entitlements: entitlementService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create premium expiry job", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(premiumJob)
	if err != nil {
		logg.Error(context.Background(), "failed to build job registry", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockName, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.ID(),
		"interval": cfg.Cron.Interval.String(),
		"once":     *once,
	})

	if *once {
		logg.Info(ctx, "running cron jobs once")
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron run failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
