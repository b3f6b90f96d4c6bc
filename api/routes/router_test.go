package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/roasapp-backend/internal/admin"
	"github.com/angelmondragon/roasapp-backend/internal/roas"
	"github.com/angelmondragon/roasapp-backend/internal/users"
	pkgAuth "github.com/angelmondragon/roasapp-backend/pkg/auth"
	"github.com/angelmondragon/roasapp-backend/pkg/auth/session"
	"github.com/angelmondragon/roasapp-backend/pkg/config"
	"github.com/angelmondragon/roasapp-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
	"github.com/angelmondragon/roasapp-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubUsersService struct {
	users.Service
}

func (stubUsersService) Profile(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{ID: userID, Username: "shopper", Role: enums.UserRoleUser}, nil
}

type stubRoasService struct {
	roas.Service
	err error
}

func (s stubRoasService) Recommend(ctx context.Context, userID uuid.UUID, input roas.RecommendInput) (*roas.RecommendResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &roas.RecommendResult{}, nil
}

type stubAdminService struct {
	admin.Service
}

func (stubAdminService) ListUsers(ctx context.Context, params pagination.Params) (*admin.UserPage, error) {
	return &admin.UserPage{Users: []admin.UserSummary{}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
		RateLimit: config.RateLimitConfig{CalculatorRPS: 100, CalculatorBurst: 100},
	}
}

func newTestRouter(cfg *config.Config, roasSvc roas.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		nil,
		stubSessionManager{},
		prometheus.NewRegistry(),
		Services{
			Users: stubUsersService{},
			Roas:  roasSvc,
			Admin: stubAdminService{},
		},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   uuid.New(),
		Username: "shopper",
		Role:     role,
		JTI:      session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig(), stubRoasService{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestHealthReadySkipsMissingRedis(t *testing.T) {
	router := newTestRouter(testConfig(), stubRoasService{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"redis":"skipped"`) {
		t.Fatalf("expected redis to be skipped, got %s", resp.Body.String())
	}
}

func TestMetricsEndpointServed(t *testing.T) {
	router := newTestRouter(testConfig(), stubRoasService{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), stubRoasService{})
	for _, path := range []string{"/api/v1/me", "/api/v1/dashboard", "/api/v1/apps"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 without token on %s got %d", path, resp.Code)
		}
	}
}

func TestLogoutRequiresJWT(t *testing.T) {
	router := newTestRouter(testConfig(), stubRoasService{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on logout without token got %d", resp.Code)
	}
}

func TestProfileWithToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, stubRoasService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "shopper") {
		t.Fatalf("expected profile body, got %s", resp.Body.String())
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, stubRoasService{})

	nonAdmin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/users", nil)
	nonAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, nonAdmin)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	adminReq := httptest.NewRequest(http.MethodGet, "/api/admin/v1/users", nil)
	adminReq.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, adminReq)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCalculatorSurfacesExpiredAccess(t *testing.T) {
	cfg := testConfig()
	expired := pkgerrors.New(pkgerrors.CodeAccessExpired, "access expired")
	router := newTestRouter(cfg, stubRoasService{err: expired})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/roas/recommend", strings.NewReader(`{"spend":1000,"revenue":5000,"units_sold":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), string(pkgerrors.CodeAccessExpired)) {
		t.Fatalf("expected ACCESS_EXPIRED code, got %s", resp.Body.String())
	}
}

func TestCalculatorRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{CalculatorRPS: 0.001, CalculatorBurst: 1}
	router := newTestRouter(cfg, stubRoasService{})
	token := buildToken(t, cfg, enums.UserRoleUser)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/roas/recommend", strings.NewReader(`{"spend":1000}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected [200 429] got %v", codes)
	}
}
