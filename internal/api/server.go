package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonesrussell/north-cloud/link-aggregator/internal/logger"
)

const shutdownTimeout = 10 * time.Second

// NewRouter wires the endpoints. A nil gatherer leaves /metrics unmounted.
func NewRouter(h *Handler, gatherer prometheus.Gatherer, log logger.Logger) *gin.Engine {
	if log == nil {
		log = logger.NewNop()
	}

	router := gin.New()
	router.Use(recovery(log), requestID(), requestLogger(log))

	router.GET("/health", h.Health)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	v1.GET("/articles", h.Articles)
	v1.DELETE("/articles", h.RemoveArticle)
	v1.POST("/runs", h.TriggerRun)
	v1.GET("/cache", h.Lookup)

	return router
}

// Server is the HTTP server with graceful shutdown.
type Server struct {
	server *http.Server
	log    logger.Logger
}

// NewServer returns a Server listening on addr.
func NewServer(addr string, readTimeout, writeTimeout time.Duration, router http.Handler, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readTimeout,
			WriteTimeout:      writeTimeout,
		},
		log: log.With(logger.Component("api")),
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server", logger.String("address", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("HTTP server stopped gracefully")
	return nil
}
