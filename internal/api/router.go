// Package api wires the HTTP routes of the speech service.
package api

import (
	"net/http"

	"github.com/book-expert/logger"
	"github.com/book-expert/speech-service/internal/api/handlers"
	"github.com/book-expert/speech-service/internal/api/middleware"
	"github.com/book-expert/speech-service/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Route paths.
const (
	PathHome    = "/"
	PathSpeech  = "/api/gen/speech"
	PathMetrics = "/metrics"
)

// Router builds the HTTP handler tree.
type Router struct {
	mux          *chi.Mux
	synthesizer  handlers.Synthesizer
	metrics      *metrics.Metrics
	maxBodyBytes int64
	log          *logger.Logger
}

// NewRouter creates a Router around an already constructed synthesis pipeline.
func NewRouter(
	synthesizer handlers.Synthesizer,
	collectors *metrics.Metrics,
	maxBodyBytes int64,
	log *logger.Logger,
) *Router {
	return &Router{
		mux:          chi.NewRouter(),
		synthesizer:  synthesizer,
		metrics:      collectors,
		maxBodyBytes: maxBodyBytes,
		log:          log,
	}
}

// Setup registers middleware and routes and returns the root handler.
func (rt *Router) Setup() http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(rt.log))
	r.Use(middleware.Recover(rt.log))

	r.Get(PathHome, handlers.Home)
	r.Method(http.MethodGet, PathMetrics, rt.metrics.Handler())

	speechH := handlers.NewSpeechHandler(rt.synthesizer, rt.metrics, rt.maxBodyBytes, rt.log)
	r.Post(PathSpeech, speechH.Generate)

	return r
}
