// Package server exposes the item viewer over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/udisondev/albioncraft/internal/config"
	"github.com/udisondev/albioncraft/internal/data"
	"github.com/udisondev/albioncraft/internal/session"
	"github.com/udisondev/albioncraft/internal/view"
)

// CatalogSource returns the current catalog, or nil while loading.
type CatalogSource interface {
	Catalog() *data.Catalog
}

// Server serves item pages and the JSON API.
type Server struct {
	cfg      config.Config
	catalogs CatalogSource
	prices   session.PriceSource // nil disables the price feed
	pages    *view.Renderer
	router   chi.Router
}

// New creates a server. prices may be nil.
func New(cfg config.Config, catalogs CatalogSource, prices session.PriceSource, pages *view.Renderer) *Server {
	s := &Server{
		cfg:      cfg,
		catalogs: catalogs,
		prices:   prices,
		pages:    pages,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Prices.Timeout + 5*time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Get("/items/{uniqueName}", s.handleItemPage)
	r.Route("/api", func(r chi.Router) {
		r.Get("/items/{uniqueName}", s.handleItemJSON)
		r.Get("/search", s.handleSearch)
	})
	return r
}

// Run listens on the configured address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on a ready listener. Used by tests with arbitrary listeners.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http shutdown", "error", err)
		}
	}()

	slog.Info("http server started", "address", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"took", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
