package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"leaderboard/internal/log"
	"leaderboard/internal/middleware/trace"
	"leaderboard/internal/observability"
	"leaderboard/internal/services"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	// WriteLimit is the number of mutating requests a client may make per minute.
	WriteLimit int
	// Now is the clock used to resolve the "current" week.
	Now func() time.Time
}

type Server struct {
	http.Server
	ledger *services.LedgerService
	checks map[string]ReadinessCheck
	now    func() time.Time

	rateLimiter     *rateLimiter
	security        *securityMetrics
	traceMiddleware *trace.Middleware
	started         time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, ledger *services.LedgerService, checks map[string]ReadinessCheck, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if opts.WriteLimit <= 0 {
		opts.WriteLimit = 60
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	httpLogger := logger.WithComponent(log.ComponentHTTP)
	mux := http.NewServeMux()
	s := &Server{
		ledger:          ledger,
		checks:          checks,
		now:             opts.Now,
		rateLimiter:     newRateLimiter(opts.WriteLimit, time.Minute),
		security:        &securityMetrics{},
		traceMiddleware: trace.NewMiddleware(extractClientIP, httpLogger),
		started:         time.Now(),
	}

	var handler http.Handler = mux
	handler = log.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(handler)
	handler = log.Middleware(httpLogger)(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.route(mux, "GET /api/categories", s.handleCategories)
	s.route(mux, "GET /api/leaderboard", s.handleLeaderboard)
	s.route(mux, "GET /api/weeks", s.handleWeeks)
	s.route(mux, "GET /api/weeks/{week}/leaderboard", s.handleWeeklyLeaderboard)
	s.route(mux, "GET /api/weeks/{week}/members/{name}", s.handleGetEntry)
	s.route(mux, "PUT /api/weeks/{week}/members/{name}", s.handlePutEntry)
	s.route(mux, "GET /api/members", s.handleListMembers)
	s.route(mux, "POST /api/members", s.handleAddMember)
	s.route(mux, "PUT /api/members/{name}", s.handleRenameMember)
	s.route(mux, "DELETE /api/members/{name}", s.handleRemoveMember)
	s.route(mux, "GET /api/members/{name}/breakdown", s.handleMemberBreakdown)
	s.route(mux, "GET /api/members/{name}/weekly", s.handleMemberWeekly)
	s.route(mux, "GET /api/members/{name}/weeks", s.handleMemberWeeks)
	s.route(mux, "POST /api/resync", s.handleResync)

	return s
}

// route registers an API handler behind security headers, write rate
// limiting and request metrics.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.withSecurityHeaders(pattern, h))
}

func (s *Server) withSecurityHeaders(pattern string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := log.FromContext(ctx)
		clientIP := extractClientIP(r)

		if detectSuspiciousRequest(r, s.security) {
			logger.WarnContext(ctx, "Suspicious request",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
		}

		setSecurityHeaders(w.Header())
		rw := &trace.ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
		defer func() { observability.RecordHTTPRequest(pattern, rw.StatusCode) }()

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP, time.Now(), s.security) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, please try again later").
				Header("Retry-After", "60").
				Write(rw)
			return
		}

		next(rw, r)
	})
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
