package services

import (
	"sort"

	"slush-dating-backend/internal/models"
)

// GetEventState computes the externally visible snapshot of the session for
// one participant: remaining phase time, current partner, wait status. It
// is a pure function of session state and the clock, which is what lets a
// reconnecting client resynchronize from it alone. Returns nil for an
// unknown event or participant.
func (s *EventService) GetEventState(eventID, userID string) *models.EventState {
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
	return s.projectState(session, p)
}

// projectState builds the snapshot. Callers must hold the service mutex.
func (s *EventService) projectState(session *models.EventSession, p *models.Participant) *models.EventState {
	state := &models.EventState{
		EventID:   session.EventID,
		Round:     session.CurrentRound,
		Phase:     session.CurrentPhase,
		EventType: session.EventType,
		PartnerID: p.CurrentPartner,
		IsWaiting: p.CurrentPartner == "",
	}

	remaining := 0
	if !session.PhaseStartTime.IsZero() {
		elapsed := int(s.clock.Now().Sub(session.PhaseStartTime).Seconds())
		remaining = s.phaseSeconds(session.CurrentPhase) - elapsed
		if remaining < 0 {
			remaining = 0
		}
	}
	state.RemainingSeconds = remaining

	if p.CurrentPartner != "" {
		state.ChannelID = s.channelFor(session, p.UserID, p.CurrentPartner)
	}

	if state.IsWaiting {
		// Everything left of this round's cycle stands between the
		// waiter and the next pairing attempt.
		est := remaining
		switch session.CurrentPhase {
		case models.PhaseLobby:
			est += s.cfg.DateSeconds + s.cfg.FeedbackSeconds
		case models.PhaseDate:
			est += s.cfg.FeedbackSeconds
		}
		state.NextRoundInSeconds = est
	}

	return state
}

// channelFor finds the media channel for the current partnership, taking
// the most recent record in case a reversal made the same couple date
// twice.
func (s *EventService) channelFor(session *models.EventSession, userID, partnerID string) string {
	pairs := session.CurrentPairings[session.CurrentRound]
	for i := len(pairs) - 1; i >= 0; i-- {
		if pairs[i].Contains(userID) && pairs[i].PartnerOf(userID) == partnerID {
			return pairs[i].ChannelID
		}
	}
	return ""
}

// GetSessionStats returns the read-only aggregate view of a session for
// monitoring. Returns nil for an unknown event.
func (s *EventService) GetSessionStats(eventID string) *models.SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.store.Get(eventID)
	if session == nil {
		return nil
	}

	stats := &models.SessionStats{
		EventID:           session.EventID,
		EventType:         session.EventType,
		CurrentRound:      session.CurrentRound,
		CurrentPhase:      session.CurrentPhase,
		TotalParticipants: len(session.Participants),
		PairingsRecorded:  len(session.PairingHistory),
		MaxPossibleRounds: s.maxPossibleRounds(session),
	}
	for _, p := range session.Participants {
		if p.IsOnline {
			stats.OnlineCount++
		}
		if p.IsReady {
			stats.ReadyCount++
		}
		if p.CurrentPartner != "" {
			stats.PairedCount++
		}
	}
	return stats
}

// GetParticipants returns copies of every participant record, sorted by
// user ID. Read-only; mutating the result does not touch the session.
func (s *EventService) GetParticipants(eventID string) []models.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.store.Get(eventID)
	if session == nil {
		return nil
	}

	out := make([]models.Participant, 0, len(session.Participants))
	for _, p := range session.Participants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UserID < out[j].UserID
	})
	return out
}
