package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/roasapp-backend/pkg/config"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
)

// Nil is returned by Get when the key does not exist.
var Nil = redis.Nil

var errNotConnected = errors.New("redis client not initialized")

// fixedWindowScript increments a counter and starts its window on the first hit.
const fixedWindowScript = `
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n`

// compareAndDeleteScript deletes KEYS[1] only while it still holds ARGV[1].
const compareAndDeleteScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`

// commands is the subset of go-redis the app uses; tests swap in an in-memory fake.
type commands interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Expire(context.Context, string, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
	SAdd(context.Context, string, ...any) *redis.IntCmd
	SMembers(context.Context, string) *redis.StringSliceCmd
	SRem(context.Context, string, ...any) *redis.IntCmd
	Eval(context.Context, string, []string, ...any) *redis.Cmd
}

// Client is the redis handle behind sessions, rate limits, idempotency, batch snapshots and cron locks.
type Client struct {
	cmd  commands
	conn *redis.Client
}

// IdempotencyStore is what the idempotency middleware needs from redis.
type IdempotencyStore interface {
	Get(context.Context, string) (string, error)
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
}

// New dials redis and fails fast when it cannot be pinged.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"redis_addr": opts.Addr, "redis_db": opts.DB}), "redis connection established")
	}
	return &Client{cmd: conn, conn: conn}, nil
}

// optionsFromConfig prefers ROASAPP_REDIS_URL; explicit settings fill whatever the URL leaves unset.
func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	opts := &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
		if opts.DB == 0 {
			opts.DB = cfg.DB
		}
	}
	if opts.Addr == "" {
		return nil, errors.New("redis url or address is required")
	}

	fill := func(dst *time.Duration, v time.Duration) {
		if *dst == 0 {
			*dst = v
		}
	}
	fill(&opts.DialTimeout, cfg.DialTimeout)
	fill(&opts.ReadTimeout, cfg.ReadTimeout)
	fill(&opts.WriteTimeout, cfg.WriteTimeout)
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	return opts, nil
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.cmd == nil {
		return errNotConnected
	}
	return c.cmd.Set(ctx, key, value, ttl).Err()
}

// Get returns Nil when the key is missing.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.cmd == nil {
		return "", errNotConnected
	}
	return c.cmd.Get(ctx, key).Result()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.cmd == nil {
		return false, errNotConnected
	}
	return c.cmd.SetNX(ctx, key, value, ttl).Result()
}

// IncrWithTTL bumps a fixed-window counter. The window starts on the first increment.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if c.cmd == nil {
		return 0, errNotConnected
	}
	return c.cmd.Eval(ctx, fixedWindowScript, []string{key}, ttl.Milliseconds()).Int64()
}

// CompareAndDelete removes key if it still holds value and reports whether it did.
func (c *Client) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	if c.cmd == nil {
		return false, errNotConnected
	}
	n, err := c.cmd.Eval(ctx, compareAndDeleteScript, []string{key}, value).Int64()
	return n > 0, err
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.cmd == nil {
		return errNotConnected
	}
	return c.cmd.Del(ctx, keys...).Err()
}

// SAdd adds members to a set and pushes its expiry out to ttl when ttl is positive.
func (c *Client) SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error {
	if c.cmd == nil {
		return errNotConnected
	}
	if err := c.cmd.SAdd(ctx, key, toArgs(members)...).Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}
	return c.cmd.Expire(ctx, key, ttl).Err()
}

// SMembers lists a set. A missing key is an empty set.
func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	if c.cmd == nil {
		return nil, errNotConnected
	}
	return c.cmd.SMembers(ctx, key).Result()
}

func (c *Client) SRem(ctx context.Context, key string, members ...string) error {
	if c.cmd == nil {
		return errNotConnected
	}
	return c.cmd.SRem(ctx, key, toArgs(members)...).Err()
}

func (c *Client) Ping(ctx context.Context) error {
	if c.cmd == nil {
		return errNotConnected
	}
	return c.cmd.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func toArgs(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// Key layout. Everything lives under the "ra" namespace, empty segments are dropped.

func (c *Client) IdempotencyKey(scope, id string) string { return key("idempotency", scope, id) }

func (c *Client) RateLimitKey(scope string) string { return key("rate_limit", scope) }

func (c *Client) AccessSessionKey(accessID string) string { return key("session", "access", accessID) }

// UserSessionsKey is the set of live access ids belonging to one user.
func (c *Client) UserSessionsKey(userID string) string { return key("session", "user", userID) }

// SnapshotKey holds a per-user computation snapshot such as the last analyzed batch.
func (c *Client) SnapshotKey(scope, ownerID string) string { return key("snapshot", scope, ownerID) }

func (c *Client) LockKey(name string) string { return key("lock", name) }

func key(parts ...string) string {
	var b strings.Builder
	b.WriteString("ra")
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteByte(':')
			b.WriteString(p)
		}
	}
	return b.String()
}
