package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks the database and reports cache and limiter state.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.db == nil {
		checks["database"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else if err := s.db.Ping(ctx); err != nil {
		checks["database"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if s.svc.Stats != nil {
		hits, misses := s.svc.Stats.CacheStats()
		checks["stats_cache"] = map[string]any{"hits": hits, "misses": misses, "status": "ok"}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	NewJSONResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	var cacheHits, cacheMisses uint64
	if s.svc.Stats != nil {
		cacheHits, cacheMisses = s.svc.Stats.CacheStats()
	}

	w.WriteHeader(http.StatusOK)

	counter := func(name, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %v\n\n", name, help, name, name, value)
	}
	gauge := func(name, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %v\n\n", name, help, name, name, value)
	}

	counter("http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	counter("http_client_errors_total", "Responses with a 4xx status", traceMetrics.ClientErrors)
	counter("http_server_errors_total", "Responses with a 5xx status", traceMetrics.ServerErrors)
	gauge("http_response_time_microseconds", "Moving average response time", traceMetrics.AverageResponseTime)

	counter("imports_total", "CSV imports processed", atomic.LoadInt64(&s.appMetrics.imports))
	counter("transactions_imported_total", "New transactions stored by imports", atomic.LoadInt64(&s.appMetrics.transactionsImported))
	counter("transactions_duplicate_total", "Imported rows skipped as duplicates", atomic.LoadInt64(&s.appMetrics.duplicatesSkipped))
	counter("transactions_categorized_total", "Transactions categorized by rules", atomic.LoadInt64(&s.appMetrics.categorized))

	counter("stats_cache_hits_total", "Statistics cache hits", cacheHits)
	counter("stats_cache_misses_total", "Statistics cache misses", cacheMisses)

	counter("rate_limit_hits_total", "Requests rejected by the rate limiter", rateLimitMetrics.TotalHits)
	gauge("active_rate_limit_clients", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	counter("suspicious_requests_total", "Suspicious requests detected", securityMetrics.SuspiciousRequests)
	counter("blocked_requests_total", "Suspicious requests rejected", securityMetrics.BlockedRequests)

	gauge("uptime_seconds", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.appMetrics.uptime).Seconds()))
}
