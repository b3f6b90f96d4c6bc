package validators

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
)

type signupBody struct {
	Username string `json:"username" validate:"required,min=3,username"`
	Age      int    `json:"age" validate:"gte=18"`
}

func jsonRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func validationDetails(t *testing.T, err error) any {
	t.Helper()
	var typed *pkgerrors.Error
	require.True(t, errors.As(err, &typed), "expected typed error, got %v", err)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	return typed.Details()
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	var body signupBody
	require.NoError(t, DecodeJSONBody(jsonRequest(`{"username":"ana.b","age":30}`), &body))
	assert.Equal(t, "ana.b", body.Username)
}

func TestDecodeJSONBodyReportsFieldMessages(t *testing.T) {
	var body signupBody
	err := DecodeJSONBody(jsonRequest(`{"username":"a b","age":12}`), &body)
	details, ok := validationDetails(t, err).(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "may only contain letters, digits, '.', '-' and '_'", details["username"])
	assert.Equal(t, "must be greater than or equal to 18", details["age"])
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":         ``,
		"unknown field": `{"username":"anab","age":20,"admin":true}`,
		"trailing data": `{"username":"anab","age":20} {}`,
		"wrong type":    `{"username":"anab","age":"old"}`,
		"not an object": `[1,2]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var body signupBody
			err := DecodeJSONBody(jsonRequest(raw), &body)
			require.Error(t, err)
			validationDetails(t, err)
		})
	}
}

func TestDecodeJSONBodyNamesMistypedField(t *testing.T) {
	var body signupBody
	err := DecodeJSONBody(jsonRequest(`{"username":"anab","age":"old"}`), &body)
	details, ok := validationDetails(t, err).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "age", details["field"])
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=25&bad=x&big=900", nil)

	n, err := ParseQueryInt(req, "limit", 10, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	n, err = ParseQueryInt(req, "missing", 10, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, err = ParseQueryInt(req, "bad", 10, 1, 100)
	assert.Equal(t, map[string]any{"field": "bad"}, validationDetails(t, err))

	_, err = ParseQueryInt(req, "big", 10, 1, 100)
	assert.Equal(t, map[string]any{"field": "big", "min": 1, "max": 100}, validationDetails(t, err))
}

func TestParseURLUUID(t *testing.T) {
	_, err := ParseURLUUID(" 9b2f6c1e-6a43-4a9b-8f1f-2f0d2b6f1a10 ", "userId")
	require.NoError(t, err)

	_, err = ParseURLUUID("nope", "userId")
	assert.Equal(t, map[string]any{"field": "userId"}, validationDetails(t, err))
}
