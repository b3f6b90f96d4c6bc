package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/roasapp-backend/api/responses"
	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
)

// RateCounter is the fixed-window counter store behind AuthRateLimit.
type RateCounter interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// AuthRateLimitPolicy caps attempts per client IP and per username inside one window.
// A zero limit switches that dimension off.
type AuthRateLimitPolicy struct {
	Name          string
	Window        time.Duration
	IPLimit       int
	UsernameLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, usernameLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{Name: name, Window: window, IPLimit: ipLimit, UsernameLimit: usernameLimit}
}

// counter is one throttled dimension of a request. value is empty when it does not apply.
type counter struct {
	dimension string
	value     string
	limit     int
}

// AuthRateLimit throttles credential endpoints in redis. Usernames are sha256 hashed before
// they reach redis or the logs.
func AuthRateLimit(policy AuthRateLimitPolicy, store RateCounter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || policy.Window <= 0 || (policy.IPLimit <= 0 && policy.UsernameLimit <= 0) {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			counters := []counter{{dimension: "ip", value: clientIP(r), limit: policy.IPLimit}}
			if policy.UsernameLimit > 0 {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				counters = append(counters, counter{dimension: "username", value: usernameDigest(body), limit: policy.UsernameLimit})
			}

			for _, c := range counters {
				if c.limit <= 0 || c.value == "" {
					continue
				}
				key := store.RateLimitKey(c.dimension + ":" + policy.Name + ":" + c.value)
				attempts, err := store.IncrWithTTL(r.Context(), key, policy.Window)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if attempts > int64(c.limit) {
					rejectAttempt(w, r, logg, policy, c, attempts)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectAttempt(w http.ResponseWriter, r *http.Request, logg *logger.Logger, policy AuthRateLimitPolicy, c counter, attempts int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(r.Context(), map[string]any{
			"policy":         policy.Name,
			"scope":          c.dimension,
			"subject":        c.value,
			"attempts":       attempts,
			"limit":          c.limit,
			"window_seconds": int(policy.Window.Seconds()),
		}), "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Seconds())))
	responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

// usernameDigest hashes the normalized username of a JSON credentials body, or returns "".
func usernameDigest(body []byte) string {
	var creds struct {
		Username string `json:"username"`
	}
	if json.Unmarshal(body, &creds) != nil {
		return ""
	}
	name := strings.ToLower(strings.TrimSpace(creds.Username))
	if name == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:])
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the socket peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
