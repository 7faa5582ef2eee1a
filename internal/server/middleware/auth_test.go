package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthDisabledWhenKeyEmpty(t *testing.T) {
	h := Auth("")(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/markets", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthBearerToken(t *testing.T) {
	h := Auth("sekrit")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthAPIKeyHeader(t *testing.T) {
	h := Auth("sekrit")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	req.Header.Set("X-API-Key", "sekrit")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRejects(t *testing.T) {
	h := Auth("sekrit")(okHandler())

	// Missing token.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/markets", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong token.
	req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Non-bearer scheme is ignored.
	req = httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	req.Header.Set("Authorization", "Basic c2Vrcml0")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
