package services

import (
	"sync"
	"time"

	"slush-dating-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// SessionStore is the registry of live event sessions. It is the only place
// sessions are created or discarded; everything else borrows them.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.EventSession
}

// NewSessionStore creates an empty session store
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*models.EventSession),
	}
}

// GetOrCreate returns the session for an event, creating it if needed.
// Creation is the only mutation; repeated calls return the same session.
func (s *SessionStore) GetOrCreate(eventID string) *models.EventSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[eventID]; ok {
		return session
	}

	session := &models.EventSession{
		EventID:         eventID,
		Participants:    make(map[string]*models.Participant),
		PairingHistory:  make(map[string]bool),
		CurrentPhase:    models.PhaseWaiting,
		CurrentPairings: make(map[int][]models.Pair),
		CreatedAt:       time.Now(),
	}
	s.sessions[eventID] = session

	log.Info().Str("event_id", eventID).Msg("Event session created")

	return session
}

// Get returns the session for an event, or nil if none exists.
func (s *SessionStore) Get(eventID string) *models.EventSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[eventID]
}

// Remove discards a session entirely. Used at event teardown; participants
// go with it.
func (s *SessionStore) Remove(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[eventID]; ok {
		delete(s.sessions, eventID)
		log.Info().Str("event_id", eventID).Msg("Event session removed")
	}
}

// Count returns the number of live sessions.
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
