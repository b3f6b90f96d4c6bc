package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
)

func invalidField(msg, field string, extra ...any) error {
	details := map[string]any{"field": field}
	for i := 0; i+1 < len(extra); i += 2 {
		if key, ok := extra[i].(string); ok {
			details[key] = extra[i+1]
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
}

// ParseQueryInt reads an optional integer query parameter bounded to [lo, hi].
func ParseQueryInt(r *http.Request, key string, fallback, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		return 0, invalidField("query parameter must be numeric", key)
	case n < lo || n > hi:
		return 0, invalidField("query parameter out of range", key, "min", lo, "max", hi)
	}
	return n, nil
}

// ParseURLUUID reads a path value that must be a uuid.
func ParseURLUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, invalidField("invalid identifier", field)
	}
	return id, nil
}
