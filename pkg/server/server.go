package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aigoflow/chef-gateway/internal/handlers"
	"github.com/aigoflow/chef-gateway/internal/recipes"
	"github.com/aigoflow/chef-gateway/internal/services"
)

const (
	shutdownTimeout = 10 * time.Second
	drainTimeout    = 5 * time.Minute
)

type Server struct {
	httpAddr    string
	chatService *services.ChatService
	health      *services.HealthService
	recipes     recipes.Provider

	// shutdownTimeout bounds the graceful Shutdown, drainTimeout bounds
	// the wait for handlers that outlive it.
	shutdownTimeout time.Duration
	drainTimeout    time.Duration
	inflight        sync.WaitGroup
}

func NewServer(httpAddr string, chatService *services.ChatService, health *services.HealthService, provider recipes.Provider) *Server {
	return &Server{
		httpAddr:    httpAddr,
		chatService: chatService,
		health:      health,
		recipes:     provider,

		shutdownTimeout: shutdownTimeout,
		drainTimeout:    drainTimeout,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	handlers.NewChatHandler(s.chatService).RegisterRoutes(mux)
	handlers.NewRecipeHandler(s.recipes).RegisterRoutes(mux)
	handlers.NewHealthHandler(s.health, s.chatService).RegisterRoutes(mux)

	slog.Info("Registered endpoints", "endpoints", []string{"/chat/query", "/recipes/...", "/healthz", "/logs"})
	return mux
}

// track counts running handlers so Start can wait for them.
func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.inflight.Add(1)
		defer s.inflight.Done()
		next.ServeHTTP(w, r)
	})
}

// Start serves until ctx is cancelled, then drains in-flight requests.
// It returns only once every handler has finished or drainTimeout passed,
// so callers may close shared resources afterwards.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.httpAddr,
		Handler:           s.track(s.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", s.httpAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("HTTP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		slog.Warn("HTTP shutdown timed out, closing open connections", "timeout", s.shutdownTimeout)
		_ = srv.Close()
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if !waitTimeout(&s.inflight, s.drainTimeout) {
		slog.Warn("HTTP handlers still running after drain timeout", "timeout", s.drainTimeout)
	}
	return nil
}

func waitTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
