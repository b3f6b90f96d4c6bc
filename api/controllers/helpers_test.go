package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/roasapp-backend/api/middleware"
)

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var payload errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, rec.Body.String())
	}
	return payload
}

func asUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func withURLParams(req *http.Request, params map[string]string) *http.Request {
	rc := chi.NewRouteContext()
	for k, v := range params {
		rc.URLParams.Add(k, v)
	}
	return req.WithContext(contextWithRoute(req, rc))
}

func contextWithRoute(req *http.Request, rc *chi.Context) context.Context {
	return context.WithValue(req.Context(), chi.RouteCtxKey, rc)
}
