// Package api exposes the controller to the editor plugin over localhost
// HTTP: configuration state, folder-scope mutations, model selection, and a
// server-sent progress stream for the in-flight sync.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/inkwell-labs/vaultsync/internal/controller"
	"github.com/inkwell-labs/vaultsync/internal/i18n"
)

// Server serves the plugin API for one controller.
type Server struct {
	ctrl   *controller.Controller
	addr   string
	logger *slog.Logger
}

// Config holds server construction options.
type Config struct {
	Controller *controller.Controller
	Addr       string
	Logger     *slog.Logger
}

// NewServer creates an unstarted server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	addr := cfg.Addr
	if addr == "" {
		addr = "127.0.0.1:4815"
	}
	return &Server{ctrl: cfg.Controller, addr: addr, logger: logger}
}

// Routes builds the HTTP handler. Split out from Serve for tests.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/connectivity/refresh", s.handleConnectivityRefresh)
		r.Get("/models", s.handleModels)
		r.Put("/models/selected", s.handleSelectModel)
		r.Get("/folders", s.handleFolders)
		r.Post("/folders", s.handleFolderMutation)
		r.Put("/settings/filetypes", s.handleSetFileTypes)
		r.Put("/settings/language", s.handleSetLanguage)
		r.Post("/sync", s.handleSyncStart)
		r.Get("/sync/runs", s.handleSyncRuns)
		r.Get("/sync/progress", s.handleSyncProgress)
	})
	return r
}

// Serve blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Routes(),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("plugin API listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "duration", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": i18n.T(msg)})
}
