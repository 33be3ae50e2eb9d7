package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/die-net/relaypost/internal/audit"
	"github.com/die-net/relaypost/internal/model"
	"github.com/die-net/relaypost/internal/post"
)

const Version = "1.0.0"

// Runner executes one posting attempt.
type Runner interface {
	Run(ctx context.Context, a model.Attempt) post.Outcome
}

// AuditLister lists persisted attempts.
type AuditLister interface {
	Recent(ctx context.Context, limit int) ([]audit.Entry, error)
}

// ServerOptions configures the HTTP server. Zero values take defaults.
type ServerOptions struct {
	Addr              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	// WriteTimeout must cover a probe, a media upload and the post itself.
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RateLimit    rate.Limit
	RateBurst    int
	MaxBodyBytes int64

	// Audit serves GET /api/audit when non-nil.
	Audit   AuditLister
	Metrics http.Handler
	Logger  *log.Logger
	Verbose bool
}

type Server struct {
	runner  Runner
	opts    ServerOptions
	logger  *log.Logger
	limiter *rate.Limiter
	http    *http.Server
}

func NewServer(runner Runner, opts ServerOptions) *Server {
	if runner == nil {
		panic("api.NewServer: runner is nil")
	}
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:5000"
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.ReadHeaderTimeout == 0 {
		opts.ReadHeaderTimeout = 5 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 2 * time.Minute
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = rate.Inf
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 1
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 16 << 20
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	mux := http.NewServeMux()
	s := &Server{
		runner:  runner,
		opts:    opts,
		logger:  opts.Logger,
		limiter: rate.NewLimiter(opts.RateLimit, opts.RateBurst),
	}
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           withLogging(mux, opts.Logger, opts.Verbose),
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		ErrorLog:          opts.Logger,
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/post", s.handlePost)
	mux.HandleFunc("/api/docs", s.handleDocs)
	mux.HandleFunc("/api/audit", s.handleAudit)
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}

	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Printf("api: listening on %s", ln.Addr())
	if err := s.http.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight attempts for up to ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		_ = s.http.Close()
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.Handler, logger *log.Logger, verbose bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if verbose {
			logger.Printf("api: %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
		}
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Status: statusError, Message: msg})
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}
