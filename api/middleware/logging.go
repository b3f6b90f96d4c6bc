package middleware

import (
	"net/http"
	"time"

	"github.com/angelmondragon/roasapp-backend/pkg/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// Logging records one line when a request starts and one when it completes.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method":    r.Method,
				"path":      r.URL.Path,
				"client_ip": clientIP(r),
			})

			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			logg.Debug(ctx, "request.start")

			next.ServeHTTP(rec, r.WithContext(ctx))

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			ctx = logg.WithFields(ctx, map[string]any{
				"status":        rec.status,
				"response_size": rec.bytes,
				"duration_ms":   time.Since(start).Milliseconds(),
			})
			logg.Info(ctx, "request.complete")
		})
	}
}
