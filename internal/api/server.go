// Package api exposes reconciliation over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/cleared-dev/recon/internal/logging"
	"github.com/cleared-dev/recon/internal/recon"
	"github.com/cleared-dev/recon/internal/store"
)

// RunStore is the persistence the API needs. *store.Store satisfies it.
type RunStore interface {
	SaveRun(ctx context.Context, run *store.Run) error
	GetRun(ctx context.Context, id string) (*store.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*store.Run, error)
}

var _ RunStore = (*store.Store)(nil)

// Server wires the handlers to a gin router.
type Server struct {
	cfg    recon.Config
	runs   RunStore
	logger zerolog.Logger
	router *gin.Engine
}

// NewServer builds a Server. runs may be nil, in which case reconciliations
// are not persisted and the /runs endpoints answer 503.
func NewServer(cfg recon.Config, runs RunStore, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{cfg: cfg, runs: runs, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.Health)
	r.POST("/reconcile", s.Reconcile)
	r.GET("/runs", s.ListRuns)
	r.GET("/runs/:id", s.GetRun)

	s.router = r
	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// ListenAndServe serves on port until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Int("port", port).Msg("api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("serving api: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info().Msg("api shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		log := s.logger.With().Str("method", c.Request.Method).Str("path", c.FullPath()).Logger()
		c.Request = c.Request.WithContext(logging.WithLogger(c.Request.Context(), log))

		c.Next()

		log.Info().
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
