package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute})
	t.Cleanup(rl.Stop)
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestLimiter_WindowResets(t *testing.T) {
	rl, now := newTestLimiter(t, 2)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "clients are limited independently")
	assert.Equal(t, int64(1), rl.GetMetrics().TotalHits)
	assert.Equal(t, 61, rl.RetryAfter("10.0.0.1"))

	*now = now.Add(time.Minute)
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(t, 5)
	rl.Allow("10.0.0.1")
	*now = now.Add(11 * time.Minute)
	rl.Allow("10.0.0.2")

	rl.cleanupStaleEntries()
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestLimiter_MiddlewareOnlyLimitsListedMethods(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	handler := rl.Middleware(func(*http.Request) string { return "10.0.0.1" }, nil, http.MethodPost)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	serve := func(method string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(method, "/api/rules/apply", nil))
		return rr
	}

	assert.Equal(t, http.StatusNoContent, serve(http.MethodPost).Code)
	limited := serve(http.MethodPost)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, serve(http.MethodGet).Code)
	}
}
