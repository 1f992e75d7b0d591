package services

import (
	"sync"
	"time"

	"slush-dating-backend/internal/config"
	"slush-dating-backend/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// EventService runs the matchmaking engine for live speed dating events.
// A single mutex serializes all mutations; the transport layer and the
// phase scheduler both funnel through it, so no two mutations for the same
// event ever overlap. Unknown events and unknown participants degrade to
// nil/no-op returns instead of errors — a live event must not crash over
// one malformed message.
type EventService struct {
	mu    sync.Mutex
	store *SessionStore
	cfg   config.EventConfig
	clock clockwork.Clock
}

// NewEventService creates a new event service
func NewEventService(store *SessionStore, cfg config.EventConfig, clock clockwork.Clock) *EventService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &EventService{
		store: store,
		cfg:   cfg,
		clock: clock,
	}
}

// Config returns the timing configuration the service runs with.
func (s *EventService) Config() config.EventConfig {
	return s.cfg
}

// JoinSession adds a participant to an event, creating the session on first
// join. Joining again is a reconnect: the connection is rebound and the
// participant's round history, partner and fairness counters survive.
func (s *EventService) JoinSession(eventID, userID, connectionID string, profile models.JoinProfile) *models.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.store.GetOrCreate(eventID)

	// First joiner fixes the event type for everyone after.
	if session.EventType == "" && profile.EventType != "" {
		session.EventType = profile.EventType
	}

	if p, ok := session.Participants[userID]; ok {
		p.ConnectionID = connectionID
		p.IsOnline = true
		p.IsReady = true
		if profile.PushToken != "" {
			p.PushToken = profile.PushToken
		}
		log.Info().
			Str("event_id", eventID).
			Str("user_id", userID).
			Int("round", session.CurrentRound).
			Msg("Participant reconnected")
		return p
	}

	p := &models.Participant{
		UserID:       userID,
		ConnectionID: connectionID,
		Gender:       profile.Gender,
		InterestedIn: profile.InterestedIn,
		IsOnline:     true,
		PushToken:    profile.PushToken,
		IsLateJoiner: session.CurrentRound > 0,
		JoinedAt:     s.clock.Now(),
	}
	session.Participants[userID] = p

	log.Info().
		Str("event_id", eventID).
		Str("user_id", userID).
		Bool("late_joiner", p.IsLateJoiner).
		Msg("Participant joined")

	return p
}

// LeaveSession marks a participant offline and not ready. If they were
// paired, the partner is freed on both sides, but the pairing stays in
// history: a plain leave is not a mid-date disconnect.
func (s *EventService) LeaveSession(eventID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.store.Get(eventID)
	if session == nil {
		return
	}
	p, ok := session.Participants[userID]
	if !ok {
		return
	}

	p.IsOnline = false
	p.IsReady = false
	s.clearPartnership(session, p)

	log.Info().Str("event_id", eventID).Str("user_id", userID).Msg("Participant left")
}

// MarkReady flags a participant as ready for pairing. No-op if the session
// or participant is unknown.
func (s *EventService) MarkReady(eventID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.store.Get(eventID)
	if session == nil {
		return
	}
	if p, ok := session.Participants[userID]; ok {
		p.IsReady = true
	}
}

// RejoinSession is the reconnect path for a participant coming back after a
// disconnect: it rebinds the connection, clears the disconnect timestamp,
// and returns a fresh state projection so the caller can resync the client.
// Returns nil if the session or participant is unknown.
func (s *EventService) RejoinSession(eventID, userID, connectionID string) *models.EventState {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.store.Get(eventID)
	if session == nil {
		return nil
	}
	p, ok := session.Participants[userID]
	if !ok {
		return nil
	}

	p.ConnectionID = connectionID
	p.IsOnline = true
	p.IsReady = true
	p.LastDisconnectTime = time.Time{}

	log.Info().
		Str("event_id", eventID).
		Str("user_id", userID).
		Int("round", session.CurrentRound).
		Str("phase", string(session.CurrentPhase)).
		Msg("Participant rejoined")

	return s.projectState(session, p)
}

// CleanupSession discards the whole session at event teardown.
func (s *EventService) CleanupSession(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Remove(eventID)
}

// clearPartnership breaks the partner link on both sides. Callers must hold
// the service mutex.
func (s *EventService) clearPartnership(session *models.EventSession, p *models.Participant) {
	if p.CurrentPartner == "" {
		return
	}
	if partner, ok := session.Participants[p.CurrentPartner]; ok && partner.CurrentPartner == p.UserID {
		partner.CurrentPartner = ""
	}
	p.CurrentPartner = ""
}
