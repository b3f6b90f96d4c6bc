package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Params is a keyset page request. An empty Cursor starts from the beginning.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the (created_at, id) key of the last row on the previous page.
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ID        uuid.UUID `json:"id"`
}

// Encode renders the cursor as an opaque, URL safe token.
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(Cursor{CreatedAt: c.CreatedAt.UTC(), ID: c.ID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// ParseCursor decodes a token produced by Cursor.Encode. A blank token yields a nil cursor.
func ParseCursor(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	if c.ID == uuid.Nil || c.CreatedAt.IsZero() {
		return nil, errors.New("cursor is incomplete")
	}
	return &c, nil
}

// NormalizeLimit clamps a requested page size into [1, MaxLimit], defaulting to DefaultLimit.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// LimitWithBuffer is the row count to fetch: one extra row tells whether another page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Trim drops the lookahead row fetched with LimitWithBuffer and reports whether it was there.
func Trim[T any](rows []T, limit int) ([]T, bool) {
	if limit = NormalizeLimit(limit); len(rows) > limit {
		return rows[:limit], true
	}
	return rows, false
}

// NextCursor returns the token for the page after rows, or "" when there is none.
func NextCursor[T any](rows []T, more bool, key func(T) Cursor) string {
	if !more || len(rows) == 0 {
		return ""
	}
	return key(rows[len(rows)-1]).Encode()
}
