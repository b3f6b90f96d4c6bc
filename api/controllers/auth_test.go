package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/roasapp-backend/internal/auth"
	"github.com/angelmondragon/roasapp-backend/internal/users"
	"github.com/angelmondragon/roasapp-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
)

type stubAuthService struct {
	registerErr error
	loginResp   *auth.LoginResponse
	loginErr    error
	refreshResp *auth.RefreshResponse
	refreshErr  error
	logoutErr   error

	gotRegister    auth.RegisterRequest
	gotAccessToken string
	gotRefresh     string
}

func (s *stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	s.gotRegister = req
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &users.UserDTO{ID: uuid.New(), Username: req.Username, Role: enums.UserRoleUser}, nil
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return s.loginResp, s.loginErr
}

func (s *stubAuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*auth.RefreshResponse, error) {
	s.gotAccessToken = accessToken
	s.gotRefresh = refreshToken
	return s.refreshResp, s.refreshErr
}

func (s *stubAuthService) Logout(ctx context.Context, accessToken string) error {
	s.gotAccessToken = accessToken
	return s.logoutErr
}

func TestAuthRegisterSignsIn(t *testing.T) {
	svc := &stubAuthService{loginResp: &auth.LoginResponse{
		AccessToken:  "access",
		RefreshToken: "refresh",
		User:         &users.UserDTO{Username: "seller"},
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"username":"seller","password":"longenough"}`))
	rec := httptest.NewRecorder()

	AuthRegister(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	var got auth.LoginResponse
	decodeData(t, rec, &got)
	if got.AccessToken != "access" || got.User == nil || got.User.Username != "seller" {
		t.Fatalf("unexpected response %+v", got)
	}
	if svc.gotRegister.Username != "seller" {
		t.Fatalf("expected register to receive the username, got %+v", svc.gotRegister)
	}
}

func TestAuthRegisterValidation(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"username":"seller","password":"short"}`))
	rec := httptest.NewRecorder()

	AuthRegister(&stubAuthService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	payload := decodeError(t, rec)
	if payload.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", payload.Error.Code)
	}
	if _, ok := payload.Error.Details["password"]; !ok {
		t.Fatalf("expected password detail, got %v", payload.Error.Details)
	}
}

func TestAuthRegisterConflict(t *testing.T) {
	svc := &stubAuthService{registerErr: pkgerrors.New(pkgerrors.CodeConflict, "username already taken")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"username":"seller","password":"longenough"}`))
	rec := httptest.NewRecorder()

	AuthRegister(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
}

func TestAuthLoginRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"a","password":"b","email":"x"}`))
	rec := httptest.NewRecorder()

	AuthLogin(&stubAuthService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAuthLoginUnauthorized(t *testing.T) {
	svc := &stubAuthService{loginErr: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"a","password":"b"}`))
	rec := httptest.NewRecorder()

	AuthLogin(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAuthRefreshPassesBearerAndBody(t *testing.T) {
	svc := &stubAuthService{refreshResp: &auth.RefreshResponse{AccessToken: "new-access", RefreshToken: "new-refresh"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"old-refresh"}`))
	req.Header.Set("Authorization", "Bearer old-access")
	rec := httptest.NewRecorder()

	AuthRefresh(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.gotAccessToken != "old-access" || svc.gotRefresh != "old-refresh" {
		t.Fatalf("unexpected forwarded tokens %q %q", svc.gotAccessToken, svc.gotRefresh)
	}
	var got auth.RefreshResponse
	decodeData(t, rec, &got)
	if got.RefreshToken != "new-refresh" {
		t.Fatalf("unexpected refresh token %q", got.RefreshToken)
	}
}

func TestAuthRefreshRequiresBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"old-refresh"}`))
	rec := httptest.NewRecorder()

	AuthRefresh(&stubAuthService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAuthLogout(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer token-1")
	rec := httptest.NewRecorder()

	AuthLogout(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.gotAccessToken != "token-1" {
		t.Fatalf("expected token forwarded, got %q", svc.gotAccessToken)
	}
}
