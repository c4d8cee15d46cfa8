// Package server exposes a vfs.Filesystem over HTTP.
//
// Routes:
//
//	GET    /healthz
//	GET    /files/{path}          read a file
//	HEAD   /files/{path}          metadata as headers
//	PUT    /files/{path}          write a file
//	DELETE /files/{path}
//	GET    /list/{dir}            ?recursive=true
//	GET    /meta/{path}
//	GET    /visibility/{path}
//	PUT    /visibility/{path}     {"visibility":"public"}
//	POST   /dirs/{dir}
//	DELETE /dirs/{dir}
//	POST   /ops/rename            {"from":"a","to":"b"}
//	POST   /ops/copy              {"from":"a","to":"b"}
//	GET    /links/{path}          ?expires=<RFC3339>&method=PUT or ?public=true
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/bucketfs/internal/logger"
	"github.com/koustreak/bucketfs/internal/vfs"
)

// Server is the HTTP gateway.
type Server struct {
	cfg    Config
	fs     vfs.Filesystem
	log    *logger.Logger
	ping   func(context.Context) error
	router chi.Router
	http   *http.Server
}

// Option customizes New.
type Option func(*Server)

// WithLogger sets the gateway logger. The default discards output.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) { s.log = l.Component("http") }
}

// WithHealthCheck makes /healthz report the result of ping.
func WithHealthCheck(ping func(context.Context) error) Option {
	return func(s *Server) { s.ping = ping }
}

// New builds a Server for fs. cfg is defaulted in place.
func New(cfg Config, fs vfs.Filesystem, opts ...Option) *Server {
	cfg.ApplyDefaults()
	s := &Server{cfg: cfg, fs: fs, log: logger.Nop()}
	for _, o := range opts {
		o(s)
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/files", func(r chi.Router) {
		r.Get("/*", s.handleRead)
		r.Head("/*", s.handleHead)
		r.Put("/*", s.handleWrite)
		r.Delete("/*", s.handleDelete)
	})
	r.Get("/list", s.handleList)
	r.Get("/list/*", s.handleList)
	r.Get("/meta/*", s.handleMeta)
	r.Get("/visibility/*", s.handleGetVisibility)
	r.Put("/visibility/*", s.handleSetVisibility)
	r.Post("/dirs/*", s.handleCreateDir)
	r.Delete("/dirs/*", s.handleDeleteDir)
	r.Post("/ops/rename", s.handleRename)
	r.Post("/ops/copy", s.handleCopy)
	r.Get("/links/*", s.handleLink)
	return r
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until Shutdown is called. It returns nil after a
// clean shutdown.
func (s *Server) ListenAndServe() error {
	s.log.With().Str("addr", s.cfg.Addr).Logger().Info("gateway listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests,
// bounded by the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
