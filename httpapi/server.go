package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/middleware"
)

// SignInHistory is satisfied by *store.SQLStore.
type SignInHistory interface {
	SignIns(ctx context.Context, accountID string, limit int) ([]goAccount.SignInDetail, error)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTrustedProxies sets how many reverse proxies sit in front of the
// server. The client address is taken from X-Forwarded-For accordingly.
func WithTrustedProxies(n int) Option {
	return func(s *Server) {
		if n >= 0 {
			s.trustedProxies = n
		}
	}
}

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithSignInHistory enables GET /api/v1/admin/accounts/{id}/signins.
func WithSignInHistory(h SignInHistory) Option {
	return func(s *Server) { s.history = h }
}

// WithShutdownTimeout bounds graceful shutdown in Run.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// Server routes HTTP requests to a goAccount engine.
type Server struct {
	engine          *goAccount.Engine
	logger          *slog.Logger
	metrics         http.Handler
	history         SignInHistory
	trustedProxies  int
	shutdownTimeout time.Duration

	handler http.Handler
}

// New builds the route table for engine.
func New(engine *goAccount.Engine, opts ...Option) (*Server, error) {
	if engine == nil {
		return nil, goAccount.ErrEngineNotReady
	}
	s := &Server{
		engine:          engine,
		logger:          slog.Default().With("component", "httpapi"),
		shutdownTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	s.routes(mux)
	s.handler = s.logRequests(s.withRequestContext(mux))
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	guard := middleware.Guard(s.engine, middleware.WithErrorHandler(s.writeError))
	admin := func(h http.HandlerFunc) http.Handler {
		return guard(middleware.RequireRole(s.engine, goAccount.RoleAdmin,
			middleware.WithErrorHandler(s.writeError))(h))
	}

	mux.HandleFunc("GET /{$}", s.handleHealth)

	mux.HandleFunc("POST /api/v1/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /api/v1/auth/verify", s.handleVerify)
	mux.HandleFunc("POST /api/v1/auth/signin", s.handleSignin)
	mux.Handle("GET /api/v1/auth/me", guard(http.HandlerFunc(s.handleMe)))
	mux.Handle("POST /api/v1/auth/signout", guard(http.HandlerFunc(s.handleSignout)))

	mux.Handle("POST /api/v1/admin/accounts/{id}/ban", admin(s.handleBan))
	mux.Handle("POST /api/v1/admin/accounts/{id}/unban", admin(s.handleUnban))
	mux.Handle("POST /api/v1/admin/accounts/{id}/disable", admin(s.handleDisable))
	mux.Handle("POST /api/v1/admin/accounts/{id}/enable", admin(s.handleEnable))
	if s.history != nil {
		mux.Handle("GET /api/v1/admin/accounts/{id}/signins", admin(s.handleSignIns))
	}

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Status: statusFail, Message: msgRouteNotFound})
	})
}

// Handler returns the complete handler chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
// It returns nil after a clean shutdown.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serveErr = <-errCh:
		if serveErr != nil {
			s.logger.Error("server error", "error", serveErr)
		}
	}

	// ctx is already done here.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	shutdownErr := srv.Shutdown(shutdownCtx)

	if serveErr != nil {
		return serveErr
	}
	return shutdownErr
}
