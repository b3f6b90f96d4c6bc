package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/angelmondragon/roasapp-backend/api/responses"
	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
)

const limiterIdleTTL = 10 * time.Minute

// RateLimitPolicy configures the per-caller token bucket.
type RateLimitPolicy struct {
	RPS   float64
	Burst int
}

func (p RateLimitPolicy) enabled() bool {
	return p.RPS > 0 && p.Burst > 0
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterSet struct {
	mu       sync.Mutex
	policy   RateLimitPolicy
	visitors map[string]*visitor
	lastGC   time.Time
	now      func() time.Time
}

func newLimiterSet(policy RateLimitPolicy) *limiterSet {
	return &limiterSet{policy: policy, visitors: map[string]*visitor{}, now: time.Now}
}

func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastGC) > limiterIdleTTL {
		for k, v := range s.visitors {
			if now.Sub(v.lastSeen) > limiterIdleTTL {
				delete(s.visitors, k)
			}
		}
		s.lastGC = now
	}

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(s.policy.RPS), s.policy.Burst)}
		s.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// RateLimit throttles callers in-process with one token bucket per authenticated user, falling
// back to the client IP for anonymous requests. Buckets idle for ten minutes are dropped.
func RateLimit(policy RateLimitPolicy, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() {
			return next
		}
		set := newLimiterSet(policy)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := UserIDFromContext(r.Context())
			if key == "" {
				key = "ip:" + clientIP(r)
			}
			if !set.allow(key) {
				if logg != nil {
					logg.Warn(logg.WithField(r.Context(), "rps", policy.RPS), "rate_limit.blocked")
				}
				w.Header().Set("Retry-After", "1")
				responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
