package status

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mixelka/mailnotify/internal/database"
)

const shutdownTimeout = 5 * time.Second

// Server read-only HTTP status endpoint
type Server struct {
	store           Store
	defaultInterval int
	logger          *slog.Logger
	router          *gin.Engine
	http            *http.Server
}

// NewServer creates a new status server listening on addr
func NewServer(addr string, store Store, defaultInterval int, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		store:           store,
		defaultInterval: defaultInterval,
		logger:          logger.With("component", "status"),
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthz", s.healthz)
	api := router.Group("/api")
	{
		api.GET("/status", s.getStatus)
		api.GET("/failures", s.getFailures)
	}

	s.router = router
	s.http = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// GET /healthz
func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /api/status
func (s *Server) getStatus(c *gin.Context) {
	report, err := Snapshot(c.Request.Context(), s.store, s.defaultInterval)
	if err != nil {
		s.logger.Error("failed to build status", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load status"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// GET /api/failures?limit=N
func (s *Server) getFailures(c *gin.Context) {
	limit := database.DefaultFailureListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	logs, err := s.store.ListFailures(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list failures", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load failures"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"failures": logs, "count": len(logs)})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
