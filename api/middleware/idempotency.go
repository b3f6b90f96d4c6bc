package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/roasapp-backend/api/responses"
	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/roasapp-backend/pkg/redis"
)

const (
	IdempotencyKeyHeader   = "Idempotency-Key"
	IdempotentReplayHeader = "Idempotent-Replay"

	defaultIdempotencyTTL = 24 * time.Hour
	maxIdempotencyKeyLen  = 255
)

// storedResponse is what gets replayed for a retried request.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	RequestHash string `json:"request_hash"`
}

// Idempotency replays the first non-5xx response recorded for a (user, method, path, key) tuple.
// A retry with a different body under the same key is rejected with 409.
type Idempotency struct {
	store pkgredis.IdempotencyStore
	ttl   time.Duration
	logg  *logger.Logger
}

// NewIdempotency returns the middleware pair. A nil store turns both into pass-throughs.
func NewIdempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) *Idempotency {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &Idempotency{store: store, ttl: ttl, logg: logg}
}

// Optional participates only when the caller sends an Idempotency-Key.
func (m *Idempotency) Optional(next http.Handler) http.Handler {
	return m.handler(next, false)
}

// Required rejects requests that carry no Idempotency-Key.
func (m *Idempotency) Required(next http.Handler) http.Handler {
	return m.handler(next, true)
}

func (m *Idempotency) handler(next http.Handler, required bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if m.store == nil {
			next.ServeHTTP(w, r)
			return
		}

		clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
		switch {
		case clientKey == "" && required:
			responses.WriteError(ctx, m.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
			return
		case clientKey == "":
			next.ServeHTTP(w, r)
			return
		case len(clientKey) > maxIdempotencyKeyLen:
			responses.WriteError(ctx, m.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header too long"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, m.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		sum := sha256.Sum256(body)
		requestHash := hex.EncodeToString(sum[:])
		key := m.store.IdempotencyKey(strings.Join([]string{UserIDFromContext(ctx), r.Method, r.URL.Path}, "|"), clientKey)

		prior, err := m.lookup(r, key)
		if err != nil {
			responses.WriteError(ctx, m.logg, w, err)
			return
		}
		if prior != nil {
			if prior.RequestHash != requestHash {
				responses.WriteError(ctx, m.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
				return
			}
			replay(w, prior)
			return
		}

		var captured bytes.Buffer
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Tee(&captured)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if status >= http.StatusInternalServerError {
			return
		}
		m.remember(r, key, storedResponse{
			Status:      status,
			ContentType: ww.Header().Get("Content-Type"),
			Body:        captured.Bytes(),
			RequestHash: requestHash,
		})
	})
}

func (m *Idempotency) lookup(r *http.Request, key string) (*storedResponse, error) {
	raw, err := m.store.Get(r.Context(), key)
	if errors.Is(err, pkgredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	var prior storedResponse
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return &prior, nil
}

// remember stores the response. A failure only costs replay protection, so it is logged.
func (m *Idempotency) remember(r *http.Request, key string, resp storedResponse) {
	payload, err := json.Marshal(resp)
	if err == nil {
		_, err = m.store.SetNX(r.Context(), key, string(payload), m.ttl)
	}
	if err != nil && m.logg != nil {
		m.logg.Error(r.Context(), "persist idempotency record", err)
	}
}

func replay(w http.ResponseWriter, resp *storedResponse) {
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set(IdempotentReplayHeader, "true")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}
