package controllers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/roasapp-backend/internal/roas"
	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
)

type stubRoasService struct {
	err       error
	gotUser   uuid.UUID
	gotPlan   roas.PlanInput
	gotUpload string
}

func (s *stubRoasService) Recommend(ctx context.Context, userID uuid.UUID, input roas.RecommendInput) (*roas.RecommendResult, error) {
	s.gotUser = userID
	return &roas.RecommendResult{}, s.err
}

func (s *stubRoasService) Plan(ctx context.Context, userID uuid.UUID, input roas.PlanInput) (*roas.PlanResult, error) {
	s.gotUser = userID
	s.gotPlan = input
	if s.err != nil {
		return nil, s.err
	}
	return &roas.PlanResult{Headline: "planned"}, nil
}

func (s *stubRoasService) AnalyzeManual(ctx context.Context, userID uuid.UUID, input roas.ManualInput) (*roas.ManualResult, error) {
	s.gotUser = userID
	return &roas.ManualResult{}, s.err
}

func (s *stubRoasService) AnalyzeBatch(ctx context.Context, userID uuid.UUID, export io.Reader) (*roas.BatchResult, error) {
	s.gotUser = userID
	body, _ := io.ReadAll(export)
	s.gotUpload = string(body)
	if s.err != nil {
		return nil, s.err
	}
	return &roas.BatchResult{Message: "ok"}, nil
}

func (s *stubRoasService) Recalculate(ctx context.Context, userID uuid.UUID, input roas.RecalculateInput) (*roas.RecalculateResult, error) {
	s.gotUser = userID
	return &roas.RecalculateResult{}, s.err
}

func multipartUpload(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestRoasPlanForwardsBody(t *testing.T) {
	svc := &stubRoasService{}
	userID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/roas/plan", strings.NewReader(`{"product_cost":50000,"unit_price":100000,"fee_pct":0.05,"additional_cost":1000,"target_profit_pct":0.1}`))
	req = asUser(req, userID)
	rec := httptest.NewRecorder()

	RoasPlan(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.gotUser != userID || svc.gotPlan.UnitPrice != 100000 {
		t.Fatalf("unexpected forwarded input user=%s plan=%+v", svc.gotUser, svc.gotPlan)
	}
}

func TestRoasPlanRejectsZeroPrice(t *testing.T) {
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/roas/plan", strings.NewReader(`{"product_cost":50000,"unit_price":0}`)), uuid.New())
	rec := httptest.NewRecorder()

	RoasPlan(&stubRoasService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestRoasRequiresUserContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/roas/analyze", strings.NewReader(`{"spend":1}`))
	rec := httptest.NewRecorder()

	RoasAnalyze(&stubRoasService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestRoasAnalyzeAccessExpired(t *testing.T) {
	expired := pkgerrors.New(pkgerrors.CodeAccessExpired, "trial expired").WithDetails(map[string]any{"access_type": "expired"})
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/roas/analyze", strings.NewReader(`{"spend":1000,"revenue":5000,"units_sold":1}`)), uuid.New())
	rec := httptest.NewRecorder()

	RoasAnalyze(&stubRoasService{err: expired}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
	payload := decodeError(t, rec)
	if payload.Error.Code != string(pkgerrors.CodeAccessExpired) || payload.Error.Details["access_type"] != "expired" {
		t.Fatalf("unexpected error payload %+v", payload.Error)
	}
}

func TestRoasBatchReadsUpload(t *testing.T) {
	svc := &stubRoasService{}
	body, contentType := multipartUpload(t, batchUploadField, "ads.csv", "preamble\nrows")
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/roas/batch", body), uuid.New())
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	RoasBatch(svc, 1<<20, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.gotUpload != "preamble\nrows" {
		t.Fatalf("unexpected upload %q", svc.gotUpload)
	}
}

func TestRoasBatchRejectsWrongExtension(t *testing.T) {
	body, contentType := multipartUpload(t, batchUploadField, "ads.xlsx", "binary")
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/roas/batch", body), uuid.New())
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	RoasBatch(&stubRoasService{}, 1<<20, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestRoasBatchRejectsOversizedUpload(t *testing.T) {
	body, contentType := multipartUpload(t, batchUploadField, "ads.csv", strings.Repeat("x", 4096))
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/roas/batch", body), uuid.New())
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	RoasBatch(&stubRoasService{}, 1024, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 got %d", rec.Code)
	}
}

func TestRoasRecalculateRequiresProductID(t *testing.T) {
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/roas/batch/recalculate", strings.NewReader(`{"spend":1}`)), uuid.New())
	rec := httptest.NewRecorder()

	RoasRecalculate(&stubRoasService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
