package handlers

import (
	"net/http"

	"slush-dating-backend/internal/middleware"
	"slush-dating-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// EventHandler exposes read-only views of live sessions and the teardown
// endpoint. Monitoring and the ops dashboard consume these; all realtime
// interaction goes over the websocket.
type EventHandler struct {
	engine    *services.EventService
	scheduler *services.EventScheduler
	hub       *services.WSHub
}

// NewEventHandler creates a new event handler
func NewEventHandler(engine *services.EventService, scheduler *services.EventScheduler, hub *services.WSHub) *EventHandler {
	return &EventHandler{
		engine:    engine,
		scheduler: scheduler,
		hub:       hub,
	}
}

// GetStats handles GET /api/v1/events/{event_id}/stats
func (h *EventHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "event_id")

	stats := h.engine.GetSessionStats(eventID)
	if stats == nil {
		respondError(w, "Event not found", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// GetParticipants handles GET /api/v1/events/{event_id}/participants
func (h *EventHandler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "event_id")

	participants := h.engine.GetParticipants(eventID)
	if participants == nil {
		respondError(w, "Event not found", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, participants)
}

// GetState handles GET /api/v1/events/{event_id}/state for the
// authenticated user.
func (h *EventHandler) GetState(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "event_id")
	userID := middleware.GetUserID(r.Context())

	state := h.engine.GetEventState(eventID, userID)
	if state == nil {
		respondError(w, "Not a participant of this event", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

// DeleteEvent handles DELETE /api/v1/events/{event_id} — full teardown at
// the end of an event.
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "event_id")

	h.scheduler.Stop(eventID)
	h.engine.CleanupSession(eventID)
	h.hub.RemoveEvent(eventID)

	log.Info().Str("event_id", eventID).Msg("Event torn down")

	w.WriteHeader(http.StatusNoContent)
}
