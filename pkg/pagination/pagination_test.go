package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 4, 2, 10, 30, 0, 123, time.FixedZone("X", 3600)), ID: uuid.New()}
	token := in.Encode()
	assert.NotContains(t, token, "=")

	out, err := ParseCursor(token)
	require.NoError(t, err)
	assert.True(t, out.CreatedAt.Equal(in.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	c, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, c)

	for _, token := range []string{
		"not-base64!",
		base64.RawURLEncoding.EncodeToString([]byte("plain text")),
		base64.RawURLEncoding.EncodeToString([]byte(`{"t":"2026-01-01T00:00:00Z"}`)),
	} {
		_, err := ParseCursor(token)
		assert.Error(t, err, token)
	}
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(1000))
	assert.Equal(t, 7, NormalizeLimit(7))
	assert.Equal(t, 11, LimitWithBuffer(10))
}

func TestTrimAndNextCursor(t *testing.T) {
	id := uuid.New()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	key := func(n int) Cursor { return Cursor{CreatedAt: at.Add(time.Duration(n) * time.Minute), ID: id} }

	rows, more := Trim([]int{1, 2, 3}, 2)
	assert.Equal(t, []int{1, 2}, rows)
	assert.True(t, more)

	next, err := ParseCursor(NextCursor(rows, more, key))
	require.NoError(t, err)
	assert.True(t, next.CreatedAt.Equal(at.Add(2*time.Minute)))

	rows, more = Trim([]int{1, 2}, 2)
	assert.False(t, more)
	assert.Empty(t, NextCursor(rows, more, key))
}
