package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/roasapp-backend/pkg/logger"
)

// DefaultDir is where `create` writes new migration files, relative to the repo root.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations returns the SQL migrations compiled into the binary.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(fmt.Sprintf("migrate: embedded migrations: %v", err))
	}
	return sub
}

// SourceFS picks the migration source: the embedded set when dir is empty, the directory otherwise.
func SourceFS(dir string) fs.FS {
	if dir == "" {
		return Migrations()
	}
	return os.DirFS(dir)
}

func newProvider(db *sql.DB, fsys fs.FS) (*goose.Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if fsys == nil {
		return nil, fmt.Errorf("migration source is required")
	}
	p, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return p, nil
}

// Run executes up, down, redo or status against the given migration source.
func Run(ctx context.Context, db *sql.DB, fsys fs.FS, command string, logg *logger.Logger) error {
	p, err := newProvider(db, fsys)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		results, err := p.Up(ctx)
		logResults(ctx, logg, results...)
		if err != nil {
			return fmt.Errorf("goose up: %w", err)
		}
		if len(results) == 0 {
			logg.Info(ctx, "no pending migrations")
		}
	case "down":
		res, err := p.Down(ctx)
		if err != nil {
			return fmt.Errorf("goose down: %w", err)
		}
		logResults(ctx, logg, res)
	case "redo":
		res, err := p.Down(ctx)
		if err != nil {
			return fmt.Errorf("goose redo (down): %w", err)
		}
		logResults(ctx, logg, res)
		res, err = p.UpByOne(ctx)
		if err != nil {
			return fmt.Errorf("goose redo (up): %w", err)
		}
		logResults(ctx, logg, res)
	case "status":
		statuses, err := p.Status(ctx)
		if err != nil {
			return fmt.Errorf("goose status: %w", err)
		}
		for _, st := range statuses {
			fields := map[string]any{
				"version": st.Source.Version,
				"file":    st.Source.Path,
				"state":   string(st.State),
			}
			if !st.AppliedAt.IsZero() {
				fields["applied_at"] = st.AppliedAt
			}
			logg.Info(logg.WithFields(ctx, fields), "migration status")
		}
	default:
		return fmt.Errorf("unsupported goose command %q", command)
	}
	return nil
}

// MigrateToVersion moves the schema up or down until it sits at targetVersion.
func MigrateToVersion(ctx context.Context, db *sql.DB, fsys fs.FS, targetVersion string, logg *logger.Logger) error {
	if targetVersion == "" {
		return fmt.Errorf("targetVersion is required")
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	p, err := newProvider(db, fsys)
	if err != nil {
		return err
	}
	current, err := p.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		logg.Info(ctx, "schema already at target version")
		return nil
	case current < target:
		results, err = p.UpTo(ctx, target)
	default:
		results, err = p.DownTo(ctx, target)
	}
	logResults(ctx, logg, results...)
	if err != nil {
		return fmt.Errorf("goose migrate %d -> %d: %w", current, target, err)
	}
	return nil
}

func logResults(ctx context.Context, logg *logger.Logger, results ...*goose.MigrationResult) {
	if logg == nil {
		return
	}
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		logg.Info(logg.WithFields(ctx, map[string]any{
			"version":     res.Source.Version,
			"file":        res.Source.Path,
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
		}), "migration applied")
	}
}
