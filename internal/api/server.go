// Package api exposes the chat service over HTTP.
//
// Endpoints:
//
//	POST   /api/chat            chat within a session
//	GET    /api/history         session transcript
//	GET    /api/stats           turn counts
//	DELETE /api/clear           purge a session's turns
//	GET    /api/sessions        list sessions, newest activity first
//	POST   /api/sessions        create a session
//	DELETE /api/sessions/{id}   delete a session
//	POST   /api/sessions/rename retitle a session
//	GET    /api/personas        list personas
//	GET    /health              liveness probe
//	GET    /ready               readiness probe (pings the database)
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/voyago/voyago/internal/chat"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds header reads so slow clients cannot pin
	// connections open.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is generous; a chat response waits on the model.
	WriteTimeout = 120 * time.Second

	// IdleTimeout applies to keep-alive connections between requests.
	IdleTimeout = 120 * time.Second
)

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address. Default 127.0.0.1:8080.
	Addr string

	// TrustProxy enables X-Forwarded-For as the client key for rate
	// limiting. Only set it behind a proxy that strips the inbound
	// header.
	TrustProxy bool
}

// Server is the HTTP server for the chat API.
type Server struct {
	mux    *http.ServeMux
	cfg    ServerConfig
	logger *slog.Logger

	health  *HealthHandler
	chat    *ChatHandler
	session *SessionHandler
	history *HistoryHandler
}

// NewServer creates an HTTP server with all routes registered.
func NewServer(svc *chat.Service, db Pinger, cfg ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	s := &Server{
		mux:     mux,
		cfg:     cfg,
		logger:  logger,
		health:  NewHealthHandler(db, logger),
		chat:    NewChatHandler(svc, logger, cfg.TrustProxy),
		session: NewSessionHandler(svc, logger),
		history: NewHistoryHandler(svc, logger),
	}

	s.health.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)
	s.session.RegisterRoutes(mux)
	s.history.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery -> logging -> handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger))
}

// Run starts the server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
