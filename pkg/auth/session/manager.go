package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/roasapp-backend/pkg/config"
	redisclient "github.com/angelmondragon/roasapp-backend/pkg/redis"
	"github.com/google/uuid"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errMissingAccessID     = errors.New("access id is required")
)

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SRem(ctx context.Context, key string, members ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
	UserSessionsKey(userID string) string
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Manager stores one refresh token per access ID. Access IDs are also indexed per user
// so an account can be signed out everywhere at once.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return newManager(client, client, cfg)
}

func newManager(store sessionStore, keyer sessionKeyer, cfg config.JWTConfig) (*Manager, error) {
	refresh := cfg.RefreshTokenTTL()
	access := time.Duration(cfg.ExpirationMinutes) * time.Minute
	switch {
	case refresh <= 0:
		return nil, errors.New("refresh token ttl must be positive")
	case refresh <= access:
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", refresh, access)
	}
	return &Manager{store: store, keyer: keyer, ttl: refresh}, nil
}

// NewAccessID returns a fresh identifier used as the JWT jti and the Redis session key.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate issues a refresh token for accessID and records it under the user's index.
func (m *Manager) Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	if blank(accessID) {
		return "", errMissingAccessID
	}
	token, err := randomToken()
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), token, m.ttl); err != nil {
		return "", err
	}
	if err := m.store.SAdd(ctx, m.index(userID), m.ttl, accessID); err != nil {
		return "", err
	}
	return token, nil
}

// Rotate swaps a valid refresh token for a new access ID and token. The old session is
// revoked only after the new one is stored.
func (m *Manager) Rotate(ctx context.Context, userID uuid.UUID, oldAccessID, provided string) (newAccessID, newToken string, err error) {
	if blank(oldAccessID) || blank(provided) {
		return "", "", ErrInvalidRefreshToken
	}
	stored, found, err := m.lookup(ctx, oldAccessID)
	if err != nil {
		return "", "", err
	}
	if !found || subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) != 1 {
		return "", "", ErrInvalidRefreshToken
	}

	newAccessID = NewAccessID()
	if newToken, err = m.Generate(ctx, userID, newAccessID); err != nil {
		return "", "", err
	}
	if err = m.Revoke(ctx, userID, oldAccessID); err != nil {
		return "", "", err
	}
	return newAccessID, newToken, nil
}

// Revoke ends a single session.
func (m *Manager) Revoke(ctx context.Context, userID uuid.UUID, accessID string) error {
	if blank(accessID) {
		return errMissingAccessID
	}
	if err := m.store.Del(ctx, m.keyer.AccessSessionKey(accessID)); err != nil {
		return err
	}
	return m.store.SRem(ctx, m.index(userID), accessID)
}

// RevokeUser ends every session of the user, including the index itself.
func (m *Manager) RevokeUser(ctx context.Context, userID uuid.UUID) error {
	index := m.index(userID)
	members, err := m.store.SMembers(ctx, index)
	if err != nil && !errors.Is(err, redisclient.Nil) {
		return err
	}
	keys := []string{index}
	for _, id := range members {
		keys = append(keys, m.keyer.AccessSessionKey(id))
	}
	return m.store.Del(ctx, keys...)
}

// HasSession reports whether accessID still has a refresh session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if blank(accessID) {
		return false, errMissingAccessID
	}
	_, found, err := m.lookup(ctx, accessID)
	return found, err
}

func (m *Manager) lookup(ctx context.Context, accessID string) (string, bool, error) {
	stored, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID))
	switch {
	case errors.Is(err, redisclient.Nil):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return stored, true, nil
}

func (m *Manager) index(userID uuid.UUID) string {
	return m.keyer.UserSessionsKey(userID.String())
}

func randomToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
