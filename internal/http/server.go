package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"finanzen/internal/log"
	"finanzen/internal/middleware/ratelimit"
	"finanzen/internal/middleware/security"
	"finanzen/internal/middleware/trace"
	"finanzen/internal/services"
)

// Services are the application services the API exposes.
type Services struct {
	Imports        *services.ImportService
	Categorization *services.CategorizationService
	Splits         *services.SplitService
	Transactions   *services.TransactionService
	Categories     *services.CategoryService
	Profiles       *services.ProfileService
	Accounts       *services.AccountService
	Stats          *services.StatsService
}

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tune request limits.
type Options struct {
	MaxUploadBytes     int64
	RateLimitPerMinute int
}

// appMetrics are the domain counters exposed on /metrics.
type appMetrics struct {
	imports              int64
	transactionsImported int64
	duplicatesSkipped    int64
	categorized          int64
	uptime               time.Time
}

type Server struct {
	http.Server
	svc     Services
	db      Pinger
	options Options
	errLog  *log.StructuredLogger

	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, db Pinger, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	logger := log.New(log.Config{Component: log.ComponentHTTP, Handler: slog.Default().Handler()})

	s := &Server{
		svc:              svc,
		db:               db,
		options:          opts,
		errLog:           log.NewStructuredLogger(logger),
		securityDetector: security.NewDetector(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			CleanupInterval:   5 * time.Minute,
		}),
		appMetrics: appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.invalidateStatsOnWrite(handler)
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, onRateLimited,
		http.MethodPost, http.MethodPatch, http.MethodDelete)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = log.RequestIDMiddleware(trace.FromRequest)(handler)
	handler = log.Middleware(logger)(handler)
	handler = s.securityDetector.Middleware("/api/", "/healthz", "/readyz", "/metrics")(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.Handle("POST /api/imports", withComponent(log.ComponentImport, s.handleUpload))
	mux.Handle("GET /api/imports", withComponent(log.ComponentImport, s.handleListImports))
	mux.Handle("GET /api/imports/{id}", withComponent(log.ComponentImport, s.handleGetImport))

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions/manual", s.handleCreateManual)
	mux.HandleFunc("POST /api/transactions/bulk-categorize", s.handleBulkCategorize)
	mux.HandleFunc("POST /api/transactions/bulk-shared", s.handleBulkShared)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PATCH /api/transactions/{id}", s.handlePatchTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.Handle("POST /api/transactions/{id}/split", withComponent(log.ComponentSplit, s.handleSplitTransaction))

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("POST /api/categories/init-defaults", s.handleInitDefaultCategories)
	mux.HandleFunc("GET /api/categories/{id}", s.handleGetCategory)
	mux.HandleFunc("PATCH /api/categories/{id}", s.handlePatchCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.Handle("GET /api/rules", withComponent(log.ComponentCategorization, s.handleListRules))
	mux.Handle("POST /api/rules", withComponent(log.ComponentCategorization, s.handleCreateRule))
	mux.Handle("POST /api/rules/apply", withComponent(log.ComponentCategorization, s.handleApplyRules))
	mux.Handle("POST /api/rules/from-transaction/{id}", withComponent(log.ComponentCategorization, s.handleRuleFromTransaction))
	mux.Handle("GET /api/rules/{id}", withComponent(log.ComponentCategorization, s.handleGetRule))
	mux.Handle("PATCH /api/rules/{id}", withComponent(log.ComponentCategorization, s.handlePatchRule))
	mux.Handle("DELETE /api/rules/{id}", withComponent(log.ComponentCategorization, s.handleDeleteRule))

	mux.HandleFunc("GET /api/profiles", s.handleListProfiles)
	mux.HandleFunc("POST /api/profiles", s.handleCreateProfile)
	mux.HandleFunc("GET /api/profiles/{id}", s.handleGetProfile)
	mux.HandleFunc("PATCH /api/profiles/{id}", s.handlePatchProfile)
	mux.HandleFunc("DELETE /api/profiles/{id}", s.handleDeleteProfile)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("GET /api/accounts/summary", s.handleAccountsSummary)
	mux.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("PATCH /api/accounts/{id}", s.handlePatchAccount)

	mux.Handle("GET /api/stats/summary", withComponent(log.ComponentStats, s.handleStatsSummary))
	mux.Handle("GET /api/stats/by-category", withComponent(log.ComponentStats, s.handleStatsByCategory))
	mux.Handle("GET /api/stats/over-time", withComponent(log.ComponentStats, s.handleStatsOverTime))
}

// withComponent tags the request logger with the component owning the route.
func withComponent(component string, h http.HandlerFunc) http.Handler {
	return log.ComponentMiddleware(component)(h)
}

// invalidateStatsOnWrite drops cached statistics after every successful
// mutating request.
func (s *Server) invalidateStatsOnWrite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || s.svc.Stats == nil {
			next.ServeHTTP(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status < 400 {
			s.svc.Stats.Invalidate()
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rec *statusRecorder) WriteHeader(code int) {
	if !rec.wroteHeader {
		rec.status = code
		rec.wroteHeader = true
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

func onRateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "Zu viele Anfragen, bitte später erneut versuchen").Write(w)
}

// writeError maps err to a response. Server errors are logged with their
// category; client errors only at debug level.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, component, op string) {
	resp, errType := ErrorFromService(err)
	if resp.statusCode >= 500 {
		s.errLog.LogError(r.Context(), "Request failed", err, errType, component, op,
			log.NewFields().WithRequestID(trace.FromRequest(r)))
	} else {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected",
			log.FieldError, err.Error(), log.FieldErrorType, errType, log.FieldOperation, op)
	}
	resp.Write(w)
}

func (s *Server) recordImport(newRows, duplicates, categorized int) {
	atomic.AddInt64(&s.appMetrics.imports, 1)
	atomic.AddInt64(&s.appMetrics.transactionsImported, int64(newRows))
	atomic.AddInt64(&s.appMetrics.duplicatesSkipped, int64(duplicates))
	atomic.AddInt64(&s.appMetrics.categorized, int64(categorized))
}

func (s *Server) recordCategorized(n int) {
	atomic.AddInt64(&s.appMetrics.categorized, int64(n))
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
