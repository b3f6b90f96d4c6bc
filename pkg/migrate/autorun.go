package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/roasapp-backend/pkg/config"
	"github.com/angelmondragon/roasapp-backend/pkg/db"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
)

// MaybeRunDev brings the schema up to date on boot, but only in dev with ROASAPP_AUTO_MIGRATE set.
// SQLite databases are migrated from the gorm models since the SQL files target postgres.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.DB.IsSQLite() {
		logg.Info(ctx, "auto-migrating sqlite schema")
		return client.AutoMigrate(ctx)
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "source": "embedded"})
	logg.Info(ctx, "applying pending migrations")
	if err := Run(ctx, sqlDB, Migrations(), "up", logg); err != nil {
		return err
	}
	logg.Info(ctx, "schema up to date")
	return nil
}
