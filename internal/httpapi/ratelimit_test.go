package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitPassesThroughWhenUnset(t *testing.T) {
	api, _ := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/namespaces/", nil)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimitRejectsBurstOverflow(t *testing.T) {
	api, _ := newTestAPI(t)
	api.SetRateLimiter(1, 1)

	req := httptest.NewRequest(http.MethodGet, "/v1/namespaces/", nil)
	req.RemoteAddr = "203.0.113.7:5555"

	first := httptest.NewRecorder()
	api.Router().ServeHTTP(first, req)
	assert.NotEqual(t, http.StatusTooManyRequests, first.Code)

	second := httptest.NewRecorder()
	api.Router().ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
