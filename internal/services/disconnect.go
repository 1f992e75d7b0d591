package services

import (
	"sort"
	"time"

	"slush-dating-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// minDateThreshold returns the shortest duration that counts as a real date.
func (s *EventService) minDateThreshold() time.Duration {
	return time.Duration(s.cfg.MinDateThreshold) * time.Second
}

// HandleDisconnect reacts to a participant dropping mid-event. They are
// marked offline; if they were in a live date their partner is freed, and
// when the date had not yet met the minimum duration the pairing is erased
// from history so the couple can be retried once the dropper returns.
// Returns nil for an unknown event or participant.
func (s *EventService) HandleDisconnect(eventID, userID string) *models.DisconnectResult {
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

	p.IsOnline = false
	p.IsReady = false
	p.LastDisconnectTime = s.clock.Now()

	result := &models.DisconnectResult{
		CurrentPhase: session.CurrentPhase,
		CurrentRound: session.CurrentRound,
	}

	if p.CurrentPartner != "" && session.CurrentPhase == models.PhaseDate {
		result.PartnerID = p.CurrentPartner
		result.WasInDate = true
		result.DateMetThreshold = !p.DateStartTime.IsZero() &&
			s.clock.Now().Sub(p.DateStartTime) >= s.minDateThreshold()

		if !result.DateMetThreshold {
			// The disconnect cut the date short; let the pair be
			// retried in a later round.
			delete(session.PairingHistory, pairKey(userID, p.CurrentPartner))
		}

		s.clearPartnership(session, p)
	}

	log.Info().
		Str("event_id", eventID).
		Str("user_id", userID).
		Bool("was_in_date", result.WasInDate).
		Bool("met_threshold", result.DateMetThreshold).
		Msg("Participant disconnected")

	return result
}

// FindWaitingPartner tries to immediately re-match a participant who just
// lost their date, without waiting for the next round. It scans the other
// online, ready, unpaired participants for the first compatible one the
// user has not already dated and pairs them on the spot. Returns nil when
// nobody fits.
func (s *EventService) FindWaitingPartner(eventID, userID string) *models.Pair {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.store.Get(eventID)
	if session == nil {
		return nil
	}
	p, ok := session.Participants[userID]
	if !ok || p.CurrentPartner != "" {
		return nil
	}

	// Longest waiters get first crack at the freed slot.
	var others []*models.Participant
	for id, candidate := range session.Participants {
		if id == userID {
			continue
		}
		others = append(others, candidate)
	}
	sort.Slice(others, func(i, j int) bool {
		return others[i].UserID < others[j].UserID
	})
	sort.SliceStable(others, func(i, j int) bool {
		return others[i].ConsecutiveWaits > others[j].ConsecutiveWaits
	})

	for _, candidate := range others {
		key := pairKey(userID, candidate.UserID)
		if session.PairingHistory[key] {
			continue
		}
		if !canPair(p, candidate, session.EventType) {
			continue
		}

		p.CurrentPartner = candidate.UserID
		candidate.CurrentPartner = userID
		p.ConsecutiveWaits = 0
		candidate.ConsecutiveWaits = 0
		session.PairingHistory[key] = true

		if session.CurrentPhase == models.PhaseDate {
			// Mid-date re-pair: the threshold clock restarts for
			// the remainder of the date.
			now := s.clock.Now()
			p.DateStartTime = now
			candidate.DateStartTime = now
		}

		pair := models.Pair{
			UserAID:   userID,
			UserBID:   candidate.UserID,
			ChannelID: uuid.New().String(),
			Round:     session.CurrentRound,
		}
		session.CurrentPairings[session.CurrentRound] = append(session.CurrentPairings[session.CurrentRound], pair)

		log.Info().
			Str("event_id", eventID).
			Str("user_id", userID).
			Str("partner_id", candidate.UserID).
			Msg("Opportunistic re-pair")

		return &pair
	}

	return nil
}

// SetDateStartTime stamps the start of a date for one participant. Normally
// NextPhase does this for the whole session; this is for callers that move
// a single pair into a date outside the phase cycle.
func (s *EventService) SetDateStartTime(eventID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.store.Get(eventID)
	if session == nil {
		return
	}
	if p, ok := session.Participants[userID]; ok {
		p.DateStartTime = s.clock.Now()
	}
}

// ShouldRecordPairing reports whether a participant's current date has run
// long enough to count toward rounds-completed bookkeeping.
func (s *EventService) ShouldRecordPairing(eventID, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.store.Get(eventID)
	if session == nil {
		return false
	}
	p, ok := session.Participants[userID]
	if !ok || p.DateStartTime.IsZero() {
		return false
	}
	return s.clock.Now().Sub(p.DateStartTime) >= s.minDateThreshold()
}
