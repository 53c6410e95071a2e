package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/quorumlab/faultprobe/telemetry"
)

// NewRouter builds the inspection API router: archived results, per-run
// summaries, a health probe and the Prometheus scrape endpoint.
func NewRouter(handlers *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Get("/results", handlers.handleListResults)
	r.Get("/summary", handlers.handleSummaries)
	r.Get("/healthz", handlers.handleHealth)
	if mh := telemetry.GetMetricsHandler(); mh != nil {
		r.Handle("/metrics", mh)
	}

	return r
}

// Server wraps the HTTP listener so main can start and stop it cleanly.
type Server struct {
	srv *http.Server
}

// NewServer builds a server for the inspection API on addr.
func NewServer(addr string, handlers *Handlers) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(handlers),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in the background. Listener errors other than a clean
// shutdown are logged, not fatal; the inspection API is not load-bearing.
func (s *Server) Start() {
	go func() {
		log.Info().Str("address", s.srv.Addr).Msg("Inspection API listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Inspection API server failed")
		}
	}()
}

// Stop shuts the listener down, waiting for in-flight requests.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Inspection API shutdown incomplete")
	}
}
