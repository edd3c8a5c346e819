// Package gateway exposes the agent runner over HTTP.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haasonsaas/conductor/internal/agent"
	"github.com/haasonsaas/conductor/internal/auth"
	"github.com/haasonsaas/conductor/internal/config"
)

// QueryRunner runs one agent loop per request. *agent.AgentRunner is the
// production implementation.
type QueryRunner interface {
	Run(ctx context.Context, userInput string, auth *agent.ToolAuthContext, systemPrompt string) (*agent.AgentResult, error)
}

// Server is the HTTP gateway in front of the agent runner.
type Server struct {
	cfg    *config.Config
	runner QueryRunner
	auth   *auth.Service
	logger *slog.Logger
	http   *http.Server
}

// NewServer wires routes and middleware around the runner.
func NewServer(cfg *config.Config, runner QueryRunner, authService *auth.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		runner: runner,
		auth:   authService,
		logger: logger,
	}

	prefix := strings.TrimRight(cfg.Server.APIPrefix, "/")
	mux := http.NewServeMux()
	mux.HandleFunc(prefix+"/query", s.handleQuery)
	mux.HandleFunc(prefix+"/ping", s.handlePing)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", s.handleHealth)

	var handler http.Handler = mux
	handler = authMiddleware(authService, logger)(handler)
	handler = corsMiddleware(cfg.Server.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware(handler)

	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start begins serving requests and blocks until Stop is called or the
// listener fails.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	s.logger.Info("starting http server", "addr", s.http.Addr)
	if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server, draining in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping http server")
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	return s.http.Shutdown(ctx)
}
