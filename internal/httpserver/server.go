// Package httpserver receives the OAuth redirect on the user's machine so the
// authorization code can be exchanged without copying it by hand.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"

	"github.com/blackmichael/sea-timeline/internal/normalize"
)

// Exchanger trades an authorization code for a token.
type Exchanger interface {
	Exchange(ctx context.Context, savedState, state, code string) (*oauth2.Token, error)
}

// Result is the outcome of the first callback request.
type Result struct {
	Token *oauth2.Token
	Err   error
}

// Server is the HTTP server that serves the OAuth redirect endpoint.
type Server struct {
	flow       Exchanger
	savedState string
	logger     *slog.Logger
	httpServer *http.Server

	result chan Result
	once   sync.Once
}

// NewServer creates a server listening on addr that handles redirects to
// path. savedState is the state issued with the authorize URL.
func NewServer(addr, path string, flow Exchanger, savedState string, logger *slog.Logger) *Server {
	s := &Server{
		flow:       flow,
		savedState: savedState,
		logger:     logger,
		result:     make(chan Result, 1),
	}

	if path == "" {
		path = "/"
	}
	r := chi.NewRouter()
	r.Use(withLogging(logger))
	r.Get(path, s.handleCallback)
	r.Get("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("waiting for OAuth callback", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve callback: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Result yields the outcome of the first callback. Later callbacks are
// answered but not reported.
func (s *Server) Result() <-chan Result {
	return s.result
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		s.logger.Warn("authorization denied", "error", e, "description", q.Get("error_description"))
		s.report(Result{Err: fmt.Errorf("authorization denied: %s", e)})
		writeError(w, http.StatusBadRequest, "AccessDenied", e)
		return
	}

	tok, err := s.flow.Exchange(r.Context(), s.savedState, q.Get("state"), q.Get("code"))
	if err != nil {
		s.logger.Error("failed to exchange authorization code", "error", err)
		s.report(Result{Err: err})
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}

	s.report(Result{Token: tok})
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "authenticated",
		"message": "You can close this window.",
	})
}

func (s *Server) report(res Result) {
	s.once.Do(func() { s.result <- res })
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	payload, err := normalize.Encode(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errType,
		"message": message,
	})
}

func withLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"duration", time.Since(start),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
