package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/roasapp-backend/internal/apps"
	"github.com/angelmondragon/roasapp-backend/internal/auth"
	"github.com/angelmondragon/roasapp-backend/internal/users"
	"github.com/angelmondragon/roasapp-backend/pkg/config"
	"github.com/angelmondragon/roasapp-backend/pkg/db"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
	"github.com/angelmondragon/roasapp-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	catalogPath := flag.String("catalog", cfg.Seed.CatalogPath, "path to the app catalog yaml")
	skipAdmin := flag.Bool("skip-admin", false, "only seed the app catalog")
	flag.Parse()

	logg = logger.ForApp("seed", cfg.App)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"catalog": *catalogPath,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	file, err := os.Open(*catalogPath)
	if err != nil {
		logg.Error(ctx, "failed to open catalog", err)
		os.Exit(1)
	}
	catalog, err := apps.LoadCatalog(file)
	file.Close()
	if err != nil {
		logg.Error(ctx, "failed to parse catalog", err)
		os.Exit(1)
	}

	written, err := apps.SeedCatalog(ctx, apps.NewRepository(dbClient.DB()), catalog)
	if err != nil {
		logg.Error(ctx, "failed to seed catalog", err)
		os.Exit(1)
	}
	logg.Info(logg.WithField(ctx, "apps", written), "app catalog seeded")

	if *skipAdmin {
		return
	}

	boot, err := auth.EnsureAdmin(ctx, users.NewRepository(dbClient.DB()), cfg.Seed.AdminUsername, cfg.Seed.AdminPassword, cfg.Password)
	if err != nil {
		logg.Error(ctx, "failed to ensure admin", err)
		os.Exit(1)
	}
	adminCtx := logg.WithFields(ctx, map[string]any{
		"admin":   boot.User.Username,
		"created": boot.Created,
	})
	if boot.TempPassword != "" {
		// printed once so the operator can sign in and rotate it
		adminCtx = logg.WithField(adminCtx, "temp_password", boot.TempPassword)
	}
	logg.Info(adminCtx, "admin account ready")
}
