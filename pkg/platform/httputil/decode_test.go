package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "storefront/pkg/domain-errors"
)

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type preparedRequest struct {
	Email string `json:"email"`
}

func (r *preparedRequest) Normalize() { r.Email = strings.ToLower(strings.TrimSpace(r.Email)) }

func (r *preparedRequest) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	return nil
}

type domainValidated struct{}

func (domainValidated) Validate() error {
	return dErrors.New(dErrors.CodeInvalidQuantity, "quantity must be between 1 and 99")
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestDecodeJSON(t *testing.T) {
	t.Run("decodes valid body", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":4}`))
		req, ok := DecodeJSON[quantityRequest](w, r, discard)
		require.True(t, ok)
		assert.Equal(t, 4, req.Quantity)
	})

	t.Run("writes 400 on malformed body", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":`))
		_, ok := DecodeJSON[quantityRequest](w, r, discard)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", decodeBody(t, w).Error)
	})
}

func TestDecodeAndPrepare(t *testing.T) {
	t.Run("normalizes before validating", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"  A@B.C "}`))
		req, ok := DecodeAndPrepare[preparedRequest](w, r, discard)
		require.True(t, ok)
		assert.Equal(t, "a@b.c", req.Email)
	})

	t.Run("plain validation errors become validation_failed", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"  "}`))
		_, ok := DecodeAndPrepare[preparedRequest](w, r, discard)
		assert.False(t, ok)
		assert.Equal(t, "validation_failed", decodeBody(t, w).Error)
	})

	t.Run("domain validation errors keep their code", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		_, ok := DecodeAndPrepare[domainValidated](w, r, discard)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_quantity", decodeBody(t, w).Error)
	})
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		err       error
		status    int
		code      string
		retryable bool
	}{
		{dErrors.New(dErrors.CodeNoActiveSession, "sign in first"), http.StatusUnauthorized, "no_active_session", false},
		{dErrors.New(dErrors.CodeNetworkFailure, "backend down"), http.StatusBadGateway, "network_failure", true},
		{dErrors.New(dErrors.CodeAuthenticationRejected, "bad password"), http.StatusUnauthorized, "authentication_rejected", false},
		{dErrors.New(dErrors.CodeForbidden, ""), http.StatusForbidden, "forbidden", false},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error", false},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		WriteError(w, tc.err)
		assert.Equal(t, tc.status, w.Code, tc.code)
		body := decodeBody(t, w)
		assert.Equal(t, tc.code, body.Error)
		assert.Equal(t, tc.retryable, body.Retryable)
	}
}
