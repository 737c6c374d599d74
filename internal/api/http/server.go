package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/alangsilva86/leadengine-corban-sub002/internal/application/pipeline"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/domain/poll"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/infrastructure/sse"
)

// MessageRecorder stores the outbound message that currently represents a
// poll in a chat. Rewrite consumers call back through the API after sending.
type MessageRecorder interface {
	Record(ctx context.Context, tenantID, pollID, chatID, messageID string, selectedOptionIDs []string) error
}

// LastEventStore keeps the most recent processed outcome per poll for
// operator inspection. Optional; a nil store disables the feature.
type LastEventStore interface {
	RecordLast(ctx context.Context, pollID string, event interface{}) error
	LastEvent(ctx context.Context, pollID string) (json.RawMessage, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	pipeline      *pipeline.Pipeline
	store         poll.Store
	messages      MessageRecorder
	lastEvents    LastEventStore
	sseHub        *sse.Hub
	defaultTenant string
	logger        zerolog.Logger
}

func NewServer(
	pl *pipeline.Pipeline,
	store poll.Store,
	messages MessageRecorder,
	lastEvents LastEventStore,
	sseHub *sse.Hub,
	defaultTenant string,
	logger zerolog.Logger,
) *Server {
	return &Server{
		pipeline:      pl,
		store:         store,
		messages:      messages,
		lastEvents:    lastEvents,
		sseHub:        sseHub,
		defaultTenant: defaultTenant,
		logger:        logger.With().Str("service", "http").Logger(),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/webhooks/poll-votes", s.ingestVote)

		r.Route("/polls", func(r chi.Router) {
			r.Get("/{pollId}", s.getPoll)
			r.Post("/{pollId}/messages", s.recordMessage)
			r.Get("/{pollId}/events/last", s.getLastEvent)
		})

		r.Get("/events", s.sseEndpoint)
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "OK",
		"sseClients": s.sseHub.ClientCount(),
	})
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
