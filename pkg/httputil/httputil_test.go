package httputil

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusCreated, map[string]string{"status": "ok"}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestWriteErrorMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorMessage(rec, http.StatusNotFound, "no subscription for account")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"no subscription for account"}`, rec.Body.String())
}

func TestWriteRetryableError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteRetryableError(rec, http.StatusServiceUnavailable, "provider unreachable", true)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"provider unreachable","retryable":true}`, rec.Body.String())
}

func TestParseJSON(t *testing.T) {
	var dest struct {
		SessionRef string `json:"session_ref"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"session_ref":"cs_123"}`))
	require.NoError(t, ParseJSON(req, &dest))
	assert.Equal(t, "cs_123", dest.SessionRef)

	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{broken`))
	assert.Error(t, ParseJSON(req, &dest))
}

func TestParseQueryInt(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"missing uses default", "", 50},
		{"valid value", "limit=10", 10},
		{"malformed uses default", "limit=abc", 50},
		{"below min uses default", "limit=0", 50},
		{"above max uses default", "limit=9999", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			assert.Equal(t, tt.want, ParseQueryInt(req, "limit", 50, 1, 500))
		})
	}
}
