// Package controller contains the controller-specific logic for the HTTP API.
package controller

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"productory/internal/controller/handlers"
	"productory/internal/controller/middleware"
	"productory/internal/store"
)

// Config configures the HTTP server.
type Config struct {
	Addr string
	// AdminToken guards POST /users; empty leaves it open.
	AdminToken string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

// Server is the HTTP server for the controller API.
type Server struct {
	httpServer *http.Server
}

// New creates a new controller server.
func New(cfg Config, h *handlers.Handlers, users store.UserStore) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	authMW := middleware.AuthMiddleware(users)
	rateMW := middleware.NewRateLimiter().Middleware()
	authed := func(fn http.HandlerFunc) http.Handler {
		return authMW(rateMW(fn))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	mux.Handle("POST /users", middleware.RequireAdminToken(cfg.AdminToken)(http.HandlerFunc(h.CreateUser)))

	// Public authenticated apis
	mux.Handle("POST /jobs", authed(h.CreateJob))
	mux.Handle("GET /jobs", authed(h.ListJobs))
	mux.Handle("GET /jobs/{id}", authed(h.GetJob))
	mux.Handle("GET /jobs/{id}/logs", authed(h.GetJobLogs))

	mux.Handle("POST /files", authed(h.UploadFile))
	mux.Handle("GET /files", authed(h.ListFiles))
	mux.Handle("GET /files/{name}/urls", authed(h.FileURLs))
	mux.Handle("DELETE /files/{name}", authed(h.DeleteFile))

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           middleware.RequestID(middleware.Tracing(middleware.AccessLog(log)(mux))),
			ReadHeaderTimeout: 10 * time.Second,
			// uploads stream through the request body
			ReadTimeout:  5 * time.Minute,
			WriteTimeout: 5 * time.Minute,
		},
	}
}

// Handler exposes the routed handler chain.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
