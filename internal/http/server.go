// Package http exposes the reminder cooldown tracker as a JSON API for the
// Saldo clients.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"saldo/internal/log"
	"saldo/internal/metrics"
	"saldo/internal/middleware/ratelimit"
	"saldo/internal/middleware/security"
	"saldo/internal/middleware/trace"
	"saldo/internal/services"
)

// Options configures NewServer. Zero values are usable.
type Options struct {
	Logger     *log.Logger
	Metrics    *metrics.Metrics
	Dispatcher services.Dispatcher

	// RateLimitPerMinute limits POST requests per client. Zero disables it.
	RateLimitPerMinute int
}

// Server is the reminder API server.
type Server struct {
	http.Server
	reminders  *services.ReminderService
	dispatcher services.Dispatcher
	logger     *log.Logger
	limiter    *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, reminders *services.ReminderService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}
	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = services.LinkDispatcher{}
	}

	s := &Server{
		reminders:  reminders,
		dispatcher: dispatcher,
		logger:     logger.WithComponent(log.ComponentHTTP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /api/reminders", s.handleList)
	mux.HandleFunc("GET /api/reminders/{contact}", s.handleStatus)
	mux.HandleFunc("POST /api/reminders/{contact}", s.handleRemind)
	mux.HandleFunc("POST /api/reminders/{contact}/sent", s.handleMarkSent)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
	}

	detector := security.NewDetector()

	var observer trace.Observer
	if opts.Metrics != nil {
		observer = opts.Metrics
	}
	var handler http.Handler = trace.NewMiddleware(logger, detector.ExtractClientIP, observer).Middleware(mux)

	if opts.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
		handler = s.limiter.Middleware(detector.ExtractClientIP, s.onRateLimited(detector), http.MethodPost)(handler)
	}

	handler = detector.Middleware(s.logger)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) onRateLimited(detector *security.Detector) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
	}
}

// Shutdown gracefully shuts down the server and its background routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
