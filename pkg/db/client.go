package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/roasapp-backend/pkg/config"
	"github.com/angelmondragon/roasapp-backend/pkg/db/models"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
)

const slowQueryThreshold = 250 * time.Millisecond

// Client owns the pooled gorm connection.
type Client struct {
	conn *gorm.DB
}

// New opens postgres (or sqlite when configured), applies pool limits and pings once.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}

	var dialector gorm.Dialector = postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true})
	driver := config.DBDriverPostgres
	if cfg.IsSQLite() {
		dialector, driver = sqlite.Open(cfg.DSN), config.DBDriverSQLite
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 queryLogger{logg: logg, slow: slowQueryThreshold},
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s connection: %w", driver, err)
	}
	pool, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	client := &Client{conn: conn}
	if err := client.Ping(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "db_driver", driver), "database connection established")
	}
	return client, nil
}

// NewFromGorm wraps an already open connection.
func NewFromGorm(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

// AutoMigrate builds the schema from the gorm models. Only sqlite uses it; postgres is
// migrated with goose.
func (c *Client) AutoMigrate(ctx context.Context) error {
	if err := c.conn.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}
	return nil
}

// WithTx runs fn in a transaction that commits when fn returns nil and rolls back otherwise,
// including on panic.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}

func (c *Client) Ping(ctx context.Context) error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

func (c *Client) Close() error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// queryLogger routes gorm's slow query and failure reports into the structured logger.
// Record-not-found is an expected outcome and is never logged.
type queryLogger struct {
	logg *logger.Logger
	slow time.Duration
}

func (q queryLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface { return q }

func (q queryLogger) Info(context.Context, string, ...any) {}

func (q queryLogger) Warn(ctx context.Context, msg string, args ...any) {
	if q.logg != nil {
		q.logg.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q queryLogger) Error(ctx context.Context, msg string, args ...any) {
	if q.logg != nil {
		q.logg.Error(ctx, fmt.Sprintf(msg, args...), nil)
	}
}

func (q queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.logg == nil {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	if !failed && (q.slow <= 0 || elapsed < q.slow) {
		return
	}
	query, rows := fc()
	ctx = q.logg.WithFields(ctx, map[string]any{
		"sql":         query,
		"rows":        rows,
		"duration_ms": elapsed.Milliseconds(),
	})
	if failed {
		q.logg.Error(ctx, "db.query_failed", err)
		return
	}
	q.logg.Warn(ctx, "db.slow_query")
}
