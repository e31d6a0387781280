package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		target    string
		userAgent string
		want      bool
	}{
		{"plain api call", http.MethodGet, "/api/transactions?search=REWE", "curl/8.0", false},
		{"wordpress scan", http.MethodGet, "/wp-admin/setup.php", "", true},
		{"dotenv scan", http.MethodGet, "/.env", "", true},
		{"sql injection in query", http.MethodGet, "/api/transactions?search=1%20union%20select", "", true},
		{"scanner agent", http.MethodGet, "/healthz", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/api/rules", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector()
			req := httptest.NewRequest(tt.method, tt.target, nil)
			req.Header.Set("User-Agent", tt.userAgent)
			assert.Equal(t, tt.want, d.DetectSuspiciousRequest(req))
		})
	}
}

func TestMiddleware_BlocksOnlyOutsidePrefixes(t *testing.T) {
	d := NewDetector()
	handler := d.Middleware("/api/")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/wp-admin/", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/transactions?search=.git", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	m := d.GetMetrics()
	assert.Equal(t, int64(2), m.SuspiciousRequests)
	assert.Equal(t, int64(1), m.BlockedRequests)
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:4711"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	assert.Equal(t, "203.0.113.7", d.ExtractClientIP(req), "untrusted peers cannot spoof")

	req.RemoteAddr = "10.0.0.5:4711"
	assert.Equal(t, "198.51.100.1", d.ExtractClientIP(req))
}
