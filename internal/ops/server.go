// Package ops provides the internal operations HTTP listener: a liveness
// endpoint and the Prometheus scrape target. It serves no public API.
package ops

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter builds the gin engine with the two ops routes.
func NewRouter(mode string) *gin.Engine {
	gin.SetMode(mode)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// Server wraps the http.Server running the ops routes.
type Server struct {
	srv *http.Server
	log zerolog.Logger
}

// NewServer constructs the ops server on the given port.
func NewServer(port, mode string, log zerolog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              ":" + port,
			Handler:           NewRouter(mode),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Start runs the listener until Shutdown is called. It blocks.
func (s *Server) Start() {
	s.log.Info().Str("addr", s.srv.Addr).Msg("ops listener starting")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.log.Error().Err(err).Msg("ops listener failed")
	}
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
