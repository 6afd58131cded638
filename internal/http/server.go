// Package http serves the dashboard analytics as a JSON API.
package http

import (
	"context"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"invoicedash/internal/cache"
	"invoicedash/internal/chat"
	ierr "invoicedash/internal/errors"
	"invoicedash/internal/log"
	"invoicedash/internal/middleware/ratelimit"
	"invoicedash/internal/middleware/security"
	"invoicedash/internal/middleware/trace"
	"invoicedash/internal/records"
	"invoicedash/internal/services"
)

const defaultRequestTimeout = 15 * time.Second

// Options wires the server to its collaborators. Chat and CacheStats are optional.
type Options struct {
	Addr               string
	Logger             *log.Logger
	Dashboard          services.Dashboard
	Store              records.Pinger
	Chat               chat.Client
	CacheStats         func() cache.Stats
	RateLimitPerMinute int
	RequestTimeout     time.Duration
	TrustedProxies     []string
}

// Server embeds http.Server and owns the middleware state.
type Server struct {
	http.Server

	logger      *log.Logger
	dashboard   services.Dashboard
	store       records.Pinger
	chat        chat.Client
	cacheStats  func() cache.Stats
	rateLimiter *ratelimit.Limiter
	trace       *trace.Middleware
	ipExtractor *security.IPExtractor
	timeout     time.Duration
	started     time.Time

	shutdownOnce sync.Once
}

func NewServer(opts Options) (*Server, error) {
	if opts.Dashboard == nil {
		return nil, ierr.NewError("dashboard is required").Mark(ierr.ErrSystem)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.TrustedProxies == nil {
		opts.TrustedProxies = security.DefaultTrustedProxies
	}

	extractor, err := security.NewIPExtractor(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		logger:      logger,
		dashboard:   opts.Dashboard,
		store:       opts.Store,
		chat:        opts.Chat,
		cacheStats:  opts.CacheStats,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		trace:       trace.NewMiddleware(logger, extractor.ClientIP),
		ipExtractor: extractor,
		timeout:     opts.RequestTimeout,
		started:     time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/invoice-trends", s.handleInvoiceTrends)
	mux.HandleFunc("GET /api/vendors/top10", s.handleTopVendors)
	mux.HandleFunc("GET /api/category-spend", s.handleCategorySpend)
	mux.HandleFunc("GET /api/cash-outflow", s.handleCashOutflow)
	mux.HandleFunc("GET /api/invoices", s.handleInvoices)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.Handle("POST /api/chat-with-data",
		s.rateLimiter.Middleware(extractor.ClientIP, s.rejectRateLimited)(http.HandlerFunc(s.handleChat)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.trace.Middleware(s.recoverer(headers.Middleware(s.withTimeout(mux)))),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// recoverer turns a handler panic into a 500 error envelope.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Handler panicked",
				"panic", rec,
				"stack", string(debug.Stack()))
			writeError(w, r, ierr.NewError("handler panic").
				WithHint("Internal server error").
				Mark(ierr.ErrSystem))
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) rejectRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.ipExtractor.ClientIP(r),
		log.FieldPath, r.URL.Path)
	NewJSONResponse().
		Status(http.StatusTooManyRequests).
		Body(errorEnvelope{Error: ErrorBody{
			Code:    "rate_limited",
			Message: "Rate limit exceeded. Please try again later.",
		}}).
		Write(w, r)
}

// Shutdown stops the rate limiter and drains in-flight requests. Only the
// first call has any effect.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
