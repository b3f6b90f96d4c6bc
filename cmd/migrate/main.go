package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/roasapp-backend/pkg/config"
	"github.com/angelmondragon/roasapp-backend/pkg/db"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
	"github.com/angelmondragon/roasapp-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|redo|status|version|create|validate")
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	name := flag.String("name", "", "migration name (create)")
	version := flag.String("version", "", "target version YYYYMMDDHHMMSS (version)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	// create and validate never touch the database
	switch *cmd {
	case "create":
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, *name)
		exitOn(logg, "create migration", err)
		fmt.Println("created", path)
		return
	case "validate":
		exitOn(logg, "validate migrations", migrate.Validate(migrate.SourceFS(*dir)))
		fmt.Println("migrations ok")
		return
	}

	cfg, err := config.Load()
	exitOn(logg, "load config", err)
	logg = logger.ForApp("migrate", cfg.App)

	source := "embedded"
	if *dir != "" {
		source = *dir
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"cmd":    *cmd,
		"source": source,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOn(logg, "connect database", err)
	defer dbClient.Close()
	if cfg.DB.IsSQLite() {
		exitOn(logg, "migrate", fmt.Errorf("goose migrations target postgres; sqlite uses ROASAPP_AUTO_MIGRATE"))
	}

	sqlDB, err := dbClient.DB().DB()
	exitOn(logg, "unwrap sql.DB", err)

	fsys := migrate.SourceFS(*dir)
	switch *cmd {
	case "up", "down", "redo", "status":
		err = migrate.Run(ctx, sqlDB, fsys, *cmd, logg)
	case "version":
		err = migrate.MigrateToVersion(ctx, sqlDB, fsys, *version, logg)
	default:
		err = fmt.Errorf("unknown -cmd %q", *cmd)
	}
	exitOn(logg, *cmd, err)
}

func exitOn(logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), step+" failed", err)
	os.Exit(1)
}
