package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/alangsilva86/leadengine-corban-sub002/internal/application/pipeline"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/infrastructure/sse"
)

const maxEventBody = 1 << 20

type recordMessageRequest struct {
	TenantID          string   `json:"tenantId"`
	ChatID            string   `json:"chatId"`
	MessageID         string   `json:"messageId"`
	SelectedOptionIDs []string `json:"selectedOptionIds,omitempty"`
}

type ingestResponse struct {
	Status              pipeline.Status            `json:"status"`
	Reason              string                     `json:"reason,omitempty"`
	Issues              []string                   `json:"issues,omitempty"`
	PollID              string                     `json:"pollId,omitempty"`
	CandidateMessageIDs []string                   `json:"candidateMessageIds,omitempty"`
	Rewrite             *rewriteResponse           `json:"rewrite,omitempty"`
	Fallback            *fallbackResponse          `json:"fallback,omitempty"`
	Aggregates          interface{}                `json:"aggregates,omitempty"`
	SelectedOptions     interface{}                `json:"selectedOptions,omitempty"`
}

type rewriteResponse struct {
	Status          pipeline.RewriteStatus `json:"status"`
	TenantID        string                 `json:"tenantId,omitempty"`
	ChatID          string                 `json:"chatId,omitempty"`
	MessageID       *string                `json:"messageId,omitempty"`
	MessageIDs      []string               `json:"messageIds,omitempty"`
	PollID          string                 `json:"pollId"`
	VoterJID        string                 `json:"voterJid"`
	SelectedOptions interface{}            `json:"selectedOptions"`
	Timestamp       *string                `json:"timestamp,omitempty"`
	Question        *string                `json:"question,omitempty"`
	Aggregates      interface{}            `json:"aggregates"`
	Options         interface{}            `json:"options"`
	Vote            interface{}            `json:"vote"`
}

type fallbackResponse struct {
	Status            pipeline.FallbackStatus `json:"status"`
	Reason            string                  `json:"reason,omitempty"`
	ChatID            string                  `json:"chatId,omitempty"`
	ExistingMessageID string                  `json:"existingMessageId,omitempty"`
	LookupError       string                  `json:"lookupError,omitempty"`
}

func (s *Server) ingestVote(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "failed to read body")
		return
	}

	tenantOverride := r.Header.Get("X-Tenant-ID")
	if tenantOverride == "" {
		tenantOverride = r.URL.Query().Get("tenantId")
	}
	if tenantOverride == "" {
		tenantOverride = s.defaultTenant
	}

	outcome, err := s.pipeline.Ingest(r.Context(), raw, tenantOverride)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to process vote event")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	resp := outcomeResponse(outcome)
	if outcome.Status == pipeline.StatusInvalid {
		respondJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	if s.lastEvents != nil && outcome.Event != nil {
		if err := s.lastEvents.RecordLast(r.Context(), outcome.Event.PollID, resp); err != nil {
			s.logger.Warn().Err(err).Str("poll_id", outcome.Event.PollID).Msg("failed to record last event")
		}
	}

	s.broadcastOutcome(outcome, resp)

	// A decision blocked on tenant context is accepted, not final: the
	// caller retries once the tenant is known.
	status := http.StatusOK
	if (outcome.Rewrite != nil && outcome.Rewrite.Status == pipeline.RewriteStatusMissingTenant) ||
		(outcome.Fallback != nil && outcome.Fallback.Status == pipeline.FallbackStatusMissingTenant) {
		status = http.StatusAccepted
	}
	respondJSON(w, status, resp)
}

func (s *Server) getLastEvent(w http.ResponseWriter, r *http.Request) {
	if s.lastEvents == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "last-event tracking not enabled")
		return
	}

	pollID := chi.URLParam(r, "pollId")
	payload, err := s.lastEvents.LastEvent(r.Context(), pollID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if payload == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "no event recorded for poll")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (s *Server) getPoll(w http.ResponseWriter, r *http.Request) {
	pollID := chi.URLParam(r, "pollId")
	state, err := s.store.Load(r.Context(), pollID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if state == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "poll not found")
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) recordMessage(w http.ResponseWriter, r *http.Request) {
	pollID := chi.URLParam(r, "pollId")

	var req recordMessageRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if req.TenantID == "" || req.ChatID == "" || req.MessageID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "tenantId, chatId and messageId are required")
		return
	}

	if err := s.messages.Record(r.Context(), req.TenantID, pollID, req.ChatID, req.MessageID, req.SelectedOptionIDs); err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "OK"})
}

func (s *Server) sseEndpoint(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "streaming not supported")
		return
	}

	client := sse.NewClient(uuid.NewString(), r.URL.Query().Get("tenantId"), 32)
	s.sseHub.Register(client)
	defer s.sseHub.Unregister(client.ClientID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case msg := <-client.MessageChan:
			if msg == nil {
				return
			}
			payload, _ := json.Marshal(msg)
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) broadcastOutcome(outcome *pipeline.Outcome, resp *ingestResponse) {
	msg := &sse.Message{Event: "poll_vote", Data: resp}
	if outcome.Rewrite != nil && outcome.Rewrite.TenantID != "" {
		s.sseHub.BroadcastToTenant(outcome.Rewrite.TenantID, msg)
		return
	}
	s.sseHub.BroadcastToAll(msg)
}

func outcomeResponse(outcome *pipeline.Outcome) *ingestResponse {
	resp := &ingestResponse{
		Status:              outcome.Status,
		Reason:              outcome.Reason,
		Issues:              outcome.Issues,
		CandidateMessageIDs: outcome.CandidateMessageIDs,
	}
	if outcome.Event != nil {
		resp.PollID = outcome.Event.PollID
	}
	if outcome.State != nil {
		resp.Aggregates = outcome.State.Aggregates
	}
	if outcome.SelectedOptions != nil {
		resp.SelectedOptions = outcome.SelectedOptions
	}
	if d := outcome.Rewrite; d != nil {
		resp.Rewrite = &rewriteResponse{
			Status:          d.Status,
			TenantID:        d.TenantID,
			ChatID:          d.ChatID,
			MessageID:       d.MessageID,
			MessageIDs:      d.MessageIDs,
			PollID:          d.PollID,
			VoterJID:        d.VoterJID,
			SelectedOptions: d.SelectedOptions,
			Timestamp:       d.Timestamp,
			Question:        d.Question,
			Aggregates:      d.Aggregates,
			Options:         d.Options,
			Vote:            d.Vote,
		}
	}
	if d := outcome.Fallback; d != nil {
		resp.Fallback = &fallbackResponse{
			Status:            d.Status,
			Reason:            d.Reason,
			ChatID:            d.ChatID,
			ExistingMessageID: d.ExistingMessageID,
			LookupError:       d.LookupError,
		}
	}
	return resp
}
