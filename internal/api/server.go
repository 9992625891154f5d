// Package api exposes the service over HTTP: operator reads and writes
// under /api and robot reports under /ingest.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gsu-cloud/turbine-cloud/internal/alerts"
	"github.com/gsu-cloud/turbine-cloud/internal/capture"
	"github.com/gsu-cloud/turbine-cloud/internal/fleet"
	"github.com/gsu-cloud/turbine-cloud/internal/heartbeat"
	"github.com/gsu-cloud/turbine-cloud/internal/ingest"
	"github.com/gsu-cloud/turbine-cloud/internal/state"
)

// DefaultMaxUploadBytes bounds an upload request when Deps leaves it unset.
const DefaultMaxUploadBytes = 64 << 20

// EventSink receives events for the operator stream.
type EventSink interface {
	Broadcast(eventType string, payload interface{})
}

// Deps are the components the handlers read from and write to.
type Deps struct {
	State     *state.Store
	Alerts    *alerts.Ring
	Captures  *capture.Store
	Analyzer  ingest.Analyzer
	Ingest    *ingest.Pipeline
	Heartbeat *heartbeat.Synchronizer
	Fleet     *fleet.Registry

	// Optional.
	Events EventSink
	Stream http.Handler
	Stats  func() interface{}

	MaxUploadBytes int64
}

// Server holds the HTTP handlers.
type Server struct {
	Deps
}

func NewServer(deps Deps) *Server {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Server{Deps: deps}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/live", s.handleLive)
		r.Get("/config", s.handleGetConfig)
		r.Post("/config", s.handleSetConfig)
		r.Get("/alerts", s.handleAlerts)
		r.Get("/files", s.handleFiles)
		r.Get("/download/{filename}", s.handleDownload)
		r.Get("/matrix/{filename}/{frame_index}", s.handleMatrix)
		r.Get("/evolution/{filename}", s.handleEvolution)
		r.Get("/fleet", s.handleFleet)
		r.Get("/stats", s.handleStats)
		if s.Stream != nil {
			r.Get("/stream", s.Stream.ServeHTTP)
		}
	})

	r.Route("/ingest", func(r chi.Router) {
		r.Post("/heartbeat", s.handleHeartbeat)
		r.Post("/upload", s.handleUpload)
		r.Post("/telemetry", s.handleTelemetry)
		r.Post("/event", s.handleEvent)
	})

	return r
}
