package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	EventID string      `json:"event_id,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// WSHub manages WebSocket connections and which event each user is in
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*websocket.Conn
	events      map[string]map[string]bool // eventID -> set of userIDs
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		connections: make(map[string]*websocket.Conn),
		events:      make(map[string]map[string]bool),
	}
}

// Register binds a connection to a user within an event. An existing
// connection for the same user is closed first, which is what makes a
// reconnect take over cleanly.
func (h *WSHub) Register(eventID, userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.connections[userID]; ok {
		existing.Close()
	}
	h.connections[userID] = conn

	if h.events[eventID] == nil {
		h.events[eventID] = make(map[string]bool)
	}
	h.events[eventID][userID] = true

	log.Info().Str("event_id", eventID).Str("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes a user's connection. Event membership is kept so the
// user still counts as a session participant while offline.
func (h *WSHub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Only drop the registration if it still points at this connection;
	// a reconnect may already have replaced it.
	if current, ok := h.connections[userID]; ok && current == conn {
		current.Close()
		delete(h.connections, userID)
		log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
	}
}

// RemoveEvent forgets an event's membership at teardown.
func (h *WSHub) RemoveEvent(eventID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.events, eventID)
}

// SendToUser sends a message to a specific user
func (h *WSHub) SendToUser(userID string, message WSMessage) error {
	h.mu.RLock()
	conn, exists := h.connections[userID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("user %s is not connected", userID)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// BroadcastToEvent sends a message to every connected member of an event.
func (h *WSHub) BroadcastToEvent(eventID string, message WSMessage) {
	h.mu.RLock()
	members := make([]string, 0, len(h.events[eventID]))
	for userID := range h.events[eventID] {
		members = append(members, userID)
	}
	h.mu.RUnlock()

	for _, userID := range members {
		if err := h.SendToUser(userID, message); err != nil {
			log.Debug().
				Str("event_id", eventID).
				Str("user_id", userID).
				Msg("Skipping offline member during broadcast")
		}
	}
}

// IsOnline checks if a user is online
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.connections[userID]
	return exists
}
