package services

import (
	"slush-dating-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// phaseSeconds returns the configured length of a phase. The terminal
// waiting phase has no timer.
func (s *EventService) phaseSeconds(phase models.Phase) int {
	switch phase {
	case models.PhaseLobby:
		return s.cfg.LobbySeconds
	case models.PhaseDate:
		return s.cfg.DateSeconds
	case models.PhaseFeedback:
		return s.cfg.FeedbackSeconds
	}
	return 0
}

// StartRound begins a new round: all partnerships from the previous round
// are cleared, the round counter advances, the session enters the lobby
// phase and the pairing engine runs. Returns nil for an unknown event.
func (s *EventService) StartRound(eventID string) *models.RoundInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.store.Get(eventID)
	if session == nil {
		return nil
	}

	for _, p := range session.Participants {
		p.CurrentPartner = ""
	}

	session.CurrentRound++
	session.CurrentPhase = models.PhaseLobby
	session.PhaseStartTime = s.clock.Now()

	pairs := s.createPairings(session)

	log.Info().
		Str("event_id", eventID).
		Int("round", session.CurrentRound).
		Int("pairs", len(pairs)).
		Msg("Round started")

	return &models.RoundInfo{
		Round:          session.CurrentRound,
		Phase:          session.CurrentPhase,
		Pairings:       pairs,
		PhaseStartTime: session.PhaseStartTime,
		PhaseDuration:  s.cfg.LobbySeconds,
	}
}

// NextPhase advances the session strictly along lobby -> date -> feedback.
// It returns nil from the terminal phase of a round (or an unknown event);
// the caller then decides between a new round and ending the event.
func (s *EventService) NextPhase(eventID string) *models.RoundInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.store.Get(eventID)
	if session == nil {
		return nil
	}

	var next models.Phase
	switch session.CurrentPhase {
	case models.PhaseLobby:
		next = models.PhaseDate
	case models.PhaseDate:
		next = models.PhaseFeedback
	default:
		return nil
	}

	session.CurrentPhase = next
	session.PhaseStartTime = s.clock.Now()

	if next == models.PhaseDate {
		// Dates begin now; the timestamp feeds the minimum-duration
		// rule on disconnect.
		for _, p := range session.Participants {
			if p.CurrentPartner != "" {
				p.DateStartTime = session.PhaseStartTime
			}
		}
	}

	log.Info().
		Str("event_id", eventID).
		Int("round", session.CurrentRound).
		Str("phase", string(next)).
		Msg("Phase advanced")

	return &models.RoundInfo{
		Round:          session.CurrentRound,
		Phase:          next,
		Pairings:       session.CurrentPairings[session.CurrentRound],
		PhaseStartTime: session.PhaseStartTime,
		PhaseDuration:  s.phaseSeconds(next),
	}
}

// EndRound closes out the current round: every still-partnered participant
// gets a completed round credited, partnerships are cleared, and the
// session parks in the waiting phase until the next round starts.
func (s *EventService) EndRound(eventID string) *models.RoundInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.store.Get(eventID)
	if session == nil {
		return nil
	}

	completed := 0
	for _, p := range session.Participants {
		if p.CurrentPartner == "" {
			continue
		}
		p.RoundsCompleted++
		completed++
	}
	for _, p := range session.Participants {
		p.CurrentPartner = ""
	}

	session.CurrentPhase = models.PhaseWaiting
	session.PhaseStartTime = s.clock.Now()

	log.Info().
		Str("event_id", eventID).
		Int("round", session.CurrentRound).
		Int("completed", completed).
		Msg("Round ended")

	return &models.RoundInfo{
		Round:          session.CurrentRound,
		Phase:          models.PhaseWaiting,
		PhaseStartTime: session.PhaseStartTime,
	}
}
