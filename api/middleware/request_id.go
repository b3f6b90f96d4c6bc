package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/roasapp-backend/pkg/logger"
)

const (
	requestIDHeader = "X-Request-Id"
	maxRequestIDLen = 128
)

// RequestID propagates the caller's request id, or mints one, into the response header and the
// log context. Caller ids that are too long or carry characters outside [A-Za-z0-9._:-] are replaced.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := inboundRequestID(r)
			w.Header().Set(requestIDHeader, reqID)
			if logg != nil {
				r = r.WithContext(logg.WithRequestID(r.Context(), reqID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func inboundRequestID(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(requestIDHeader))
	if id == "" || len(id) > maxRequestIDLen || strings.IndexFunc(id, notRequestIDRune) >= 0 {
		return uuid.NewString()
	}
	return id
}

func notRequestIDRune(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return false
	case c == '.', c == '_', c == ':', c == '-':
		return false
	}
	return true
}
