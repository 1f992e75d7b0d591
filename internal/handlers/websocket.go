package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"slush-dating-backend/internal/events"
	"slush-dating-backend/internal/middleware"
	"slush-dating-backend/internal/models"
	"slush-dating-backend/internal/notify"
	"slush-dating-backend/internal/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for MVP
	},
}

// WebSocketHandler is the realtime transport glue: it turns client
// websocket messages into engine calls and engine results into broadcasts.
type WebSocketHandler struct {
	hub         *services.WSHub
	engine      *services.EventService
	scheduler   *services.EventScheduler
	authService *services.AuthService
	publisher   *events.Publisher
	notifier    notify.Notifier
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *services.WSHub,
	engine *services.EventService,
	scheduler *services.EventScheduler,
	authService *services.AuthService,
	publisher *events.Publisher,
	notifier notify.Notifier,
) *WebSocketHandler {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &WebSocketHandler{
		hub:         hub,
		engine:      engine,
		scheduler:   scheduler,
		authService: authService,
		publisher:   publisher,
		notifier:    notifier,
	}
}

// wsClientMessage is what clients send over the socket.
type wsClientMessage struct {
	Type         string `json:"type"`
	Gender       string `json:"gender,omitempty"`
	InterestedIn string `json:"interested_in,omitempty"`
	EventType    string `json:"event_type,omitempty"`
	PushToken    string `json:"push_token,omitempty"`
}

// HandleWebSocket handles GET /ws?token=...&event_id=...
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("event_id")
	if eventID == "" {
		respondError(w, "event_id required", http.StatusBadRequest)
		return
	}

	userID, err := middleware.ValidateWebSocketToken(r.URL.Query().Get("token"), h.authService)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	connectionID := uuid.New().String()
	h.hub.Register(eventID, userID, conn)
	defer h.handleConnectionClosed(eventID, userID, conn)

	// A participant who was already in the session gets an immediate
	// resync snapshot; the rest of their state survived the disconnect.
	if state := h.engine.RejoinSession(eventID, userID, connectionID); state != nil {
		h.sendToConn(conn, services.WSMessage{Type: "state", EventID: eventID, Data: state})
	}

	log.Info().Str("event_id", eventID).Str("user_id", userID).Msg("WebSocket connection established")

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg wsClientMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket message")
			h.sendToConn(conn, services.WSMessage{Type: "error", Message: "Invalid message format"})
			continue
		}

		if done := h.handleMessage(eventID, userID, connectionID, conn, msg); done {
			break
		}
	}
}

// handleMessage processes one incoming message. Returns true when the
// connection should close.
func (h *WebSocketHandler) handleMessage(eventID, userID, connectionID string, conn *websocket.Conn, msg wsClientMessage) bool {
	switch msg.Type {
	case "join":
		h.handleJoin(eventID, userID, connectionID, conn, msg)
	case "ready":
		h.engine.MarkReady(eventID, userID)
		h.sendToConn(conn, services.WSMessage{Type: "ready_ack", EventID: eventID})
	case "start_event":
		h.handleStartEvent(eventID, conn)
	case "get_state":
		state := h.engine.GetEventState(eventID, userID)
		if state == nil {
			h.sendToConn(conn, services.WSMessage{Type: "error", Message: "Not in this event"})
			return false
		}
		h.sendToConn(conn, services.WSMessage{Type: "state", EventID: eventID, Data: state})
	case "leave":
		h.engine.LeaveSession(eventID, userID)
		h.hub.BroadcastToEvent(eventID, services.WSMessage{
			Type:    "participant_left",
			EventID: eventID,
			Data:    map[string]interface{}{"user_id": userID},
		})
		return true
	default:
		h.sendToConn(conn, services.WSMessage{Type: "error", Message: "Unknown message type"})
	}
	return false
}

func (h *WebSocketHandler) handleJoin(eventID, userID, connectionID string, conn *websocket.Conn, msg wsClientMessage) {
	profile := models.JoinProfile{
		Gender:       msg.Gender,
		InterestedIn: msg.InterestedIn,
		EventType:    models.EventType(msg.EventType),
		PushToken:    msg.PushToken,
	}
	p := h.engine.JoinSession(eventID, userID, connectionID, profile)

	h.sendToConn(conn, services.WSMessage{Type: "joined", EventID: eventID, Data: p})
	h.hub.BroadcastToEvent(eventID, services.WSMessage{
		Type:    "participant_joined",
		EventID: eventID,
		Data: map[string]interface{}{
			"user_id":     userID,
			"late_joiner": p.IsLateJoiner,
		},
	})
}

func (h *WebSocketHandler) handleStartEvent(eventID string, conn *websocket.Conn) {
	stats := h.engine.GetSessionStats(eventID)
	if stats == nil {
		h.sendToConn(conn, services.WSMessage{Type: "error", Message: "Unknown event"})
		return
	}
	if stats.ReadyCount < 2 {
		h.sendToConn(conn, services.WSMessage{Type: "error", Message: "Need at least two ready participants"})
		return
	}
	h.scheduler.Start(eventID)
}

// handleConnectionClosed runs when a socket's read loop exits. If the user
// already reconnected on a fresh socket this does nothing; otherwise it is
// a real mid-event disconnect.
func (h *WebSocketHandler) handleConnectionClosed(eventID, userID string, conn *websocket.Conn) {
	h.hub.Unregister(userID, conn)
	if h.hub.IsOnline(userID) {
		return
	}

	result := h.engine.HandleDisconnect(eventID, userID)
	if result == nil || !result.WasInDate {
		return
	}

	h.publisher.Publish(eventID, events.TypePartnerDisconnected, events.PartnerDisconnectedPayload{
		EventID:          eventID,
		UserID:           userID,
		PartnerID:        result.PartnerID,
		Round:            result.CurrentRound,
		DateMetThreshold: result.DateMetThreshold,
		DisconnectedAt:   time.Now(),
	})

	if err := h.hub.SendToUser(result.PartnerID, services.WSMessage{
		Type:    "partner_disconnected",
		EventID: eventID,
		Data:    result,
	}); err != nil {
		log.Debug().Str("user_id", result.PartnerID).Msg("Orphaned partner not connected")
		h.pushToUser(eventID, result.PartnerID, "Your date dropped off", "Head back to the event, we're finding you a new match")
	}

	// Try to hand the orphaned partner a fresh match straight away.
	if pair := h.engine.FindWaitingPartner(eventID, result.PartnerID); pair != nil {
		for _, member := range []string{pair.UserAID, pair.UserBID} {
			if err := h.hub.SendToUser(member, services.WSMessage{
				Type:    "partner_matched",
				EventID: eventID,
				Data:    pair,
			}); err != nil {
				log.Debug().Str("user_id", member).Msg("Re-paired member not connected")
			}
		}
	}
}

// pushToUser sends a push notification to a participant's device, if they
// registered a token.
func (h *WebSocketHandler) pushToUser(eventID, userID, title, body string) {
	for _, p := range h.engine.GetParticipants(eventID) {
		if p.UserID == userID {
			if p.PushToken != "" {
				go h.notifier.Push(p.PushToken, title, body)
			}
			return
		}
	}
}

// sendToConn sends a message to the WebSocket connection directly.
func (h *WebSocketHandler) sendToConn(conn *websocket.Conn, msg services.WSMessage) {
	data, _ := json.Marshal(msg)
	conn.WriteMessage(websocket.TextMessage, data)
}
