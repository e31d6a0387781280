package log

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Component: ComponentHTTP, Output: &buf})

	var got *Logger
	handler := Middleware(base)(ComponentMiddleware(ComponentImport)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
			got.InfoContext(r.Context(), "handled")
		})))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/imports", nil))

	require.NotNil(t, got)
	assert.Equal(t, ComponentImport, got.Component())
	assert.Equal(t, ComponentHTTP, base.Component(), "the base logger is left untouched")
	assert.Contains(t, buf.String(), "component=import")
}

func TestRequestIDMiddlewareKeepsComponent(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Component: ComponentHTTP, Output: &buf})

	handler := Middleware(base)(
		RequestIDMiddleware(func(*http.Request) string { return "req-42" })(
			ComponentMiddleware(ComponentStats)(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					FromContext(r.Context()).InfoContext(r.Context(), "handled")
				}))))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/stats/summary", nil))

	assert.Contains(t, buf.String(), "request_id=req-42")
	assert.Contains(t, buf.String(), "component=stats")
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.NotNil(t, FromContext(req.Context()))
}
