package services

import (
	"sort"

	"slush-dating-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// pairKey builds the order-independent identifier for two participants,
// used to test "have they already dated".
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// gendersCompatible checks the gender rule for an event type, ignoring
// online/ready/partner state.
func gendersCompatible(p1, p2 *models.Participant, eventType models.EventType) bool {
	switch eventType {
	case models.EventTypeStraight:
		return (p1.Gender == models.GenderMan && p2.Gender == models.GenderWoman) ||
			(p1.Gender == models.GenderWoman && p2.Gender == models.GenderMan)
	case models.EventTypeGay:
		return p1.Gender == p2.Gender
	case models.EventTypeBisexual:
		return true
	}
	return false
}

// canPair reports whether two participants may be paired right now: both
// online, ready, unpaired, distinct, and gender-compatible for the event.
func canPair(p1, p2 *models.Participant, eventType models.EventType) bool {
	if p1 == nil || p2 == nil || p1.UserID == p2.UserID {
		return false
	}
	if !p1.IsOnline || !p2.IsOnline || !p1.IsReady || !p2.IsReady {
		return false
	}
	if p1.CurrentPartner != "" || p2.CurrentPartner != "" {
		return false
	}
	return gendersCompatible(p1, p2, eventType)
}

// createPairings runs the greedy matching pass for the current round.
// Callers must hold the service mutex. This is a heuristic maximal
// matching, not a maximum one; fairness rotation bounds starvation across
// rounds, so single-round optimality is not required.
func (s *EventService) createPairings(session *models.EventSession) []models.Pair {
	var candidates []*models.Participant
	for _, p := range session.Participants {
		if !p.IsOnline || !p.IsReady || p.CurrentPartner != "" {
			continue
		}
		if p.IsLateJoiner {
			// Late joiners sit out the round in progress when they
			// arrived; the flag is consumed so they are eligible
			// next time.
			p.IsLateJoiner = false
			continue
		}
		candidates = append(candidates, p)
	}

	// Longest waiters first. Map iteration order is random, so sort by
	// user ID first to keep the tie-break deterministic.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].UserID < candidates[j].UserID
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].ConsecutiveWaits != candidates[j].ConsecutiveWaits {
			return candidates[i].ConsecutiveWaits > candidates[j].ConsecutiveWaits
		}
		return candidates[i].LastWaitedRound > candidates[j].LastWaitedRound
	})
	if session.EventType == models.EventTypeStraight {
		candidates = interleaveByGender(candidates)
	}

	var pairs []models.Pair
	for i, p1 := range candidates {
		if p1.CurrentPartner != "" {
			continue
		}
		for _, p2 := range candidates[i+1:] {
			if p2.CurrentPartner != "" {
				continue
			}
			key := pairKey(p1.UserID, p2.UserID)
			if session.PairingHistory[key] {
				continue
			}
			if !canPair(p1, p2, session.EventType) {
				continue
			}

			p1.CurrentPartner = p2.UserID
			p2.CurrentPartner = p1.UserID
			p1.ConsecutiveWaits = 0
			p2.ConsecutiveWaits = 0
			session.PairingHistory[key] = true

			pair := models.Pair{
				UserAID:   p1.UserID,
				UserBID:   p2.UserID,
				ChannelID: uuid.New().String(),
				Round:     session.CurrentRound,
			}
			session.CurrentPairings[session.CurrentRound] = append(session.CurrentPairings[session.CurrentRound], pair)
			pairs = append(pairs, pair)
			break
		}
	}

	for _, p := range candidates {
		if p.CurrentPartner == "" {
			p.LastWaitedRound = session.CurrentRound
			p.ConsecutiveWaits++
		}
	}

	log.Info().
		Str("event_id", session.EventID).
		Int("round", session.CurrentRound).
		Int("pairs", len(pairs)).
		Int("waiting", len(candidates)-len(pairs)*2).
		Msg("Round pairings created")

	return pairs
}

// interleaveByGender reorders straight-event candidates man/woman/man/...
// so that compatible partners sit next to each other in the greedy scan.
// The overall wait-priority order within each gender is preserved; this is
// a tie-break heuristic, not a constraint.
func interleaveByGender(candidates []*models.Participant) []*models.Participant {
	var men, women []*models.Participant
	for _, p := range candidates {
		if p.Gender == models.GenderMan {
			men = append(men, p)
		} else {
			women = append(women, p)
		}
	}

	first, second := men, women
	if len(candidates) > 0 && candidates[0].Gender != models.GenderMan {
		first, second = women, men
	}

	out := make([]*models.Participant, 0, len(candidates))
	for i := 0; i < len(first) || i < len(second); i++ {
		if i < len(first) {
			out = append(out, first[i])
		}
		if i < len(second) {
			out = append(out, second[i])
		}
	}
	return out
}

// AreAllPairingsExhausted reports whether no pair of currently online
// participants is both gender-compatible and absent from the pairing
// history. Used to decide whether the event should end early.
func (s *EventService) AreAllPairingsExhausted(eventID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.store.Get(eventID)
	if session == nil {
		return true
	}
	return s.allPairingsExhausted(session)
}

func (s *EventService) allPairingsExhausted(session *models.EventSession) bool {
	var online []*models.Participant
	for _, p := range session.Participants {
		if p.IsOnline {
			online = append(online, p)
		}
	}

	for i, p1 := range online {
		for _, p2 := range online[i+1:] {
			if !gendersCompatible(p1, p2, session.EventType) {
				continue
			}
			if !session.PairingHistory[pairKey(p1.UserID, p2.UserID)] {
				return false
			}
		}
	}
	return true
}

// GetMaxPossibleRounds returns the theoretical round count upper bound for
// the event assuming perfect matching. Display-only; it is never a hard
// stop.
func (s *EventService) GetMaxPossibleRounds(eventID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.store.Get(eventID)
	if session == nil {
		return 0
	}
	return s.maxPossibleRounds(session)
}

func (s *EventService) maxPossibleRounds(session *models.EventSession) int {
	total := 0
	byGender := make(map[string]int)
	for _, p := range session.Participants {
		if !p.IsOnline {
			continue
		}
		total++
		byGender[p.Gender]++
	}

	switch session.EventType {
	case models.EventTypeStraight:
		men, women := byGender[models.GenderMan], byGender[models.GenderWoman]
		if men < women {
			return men
		}
		return women
	case models.EventTypeGay:
		largest := 0
		for _, n := range byGender {
			if n > largest {
				largest = n
			}
		}
		if largest < 1 {
			return 0
		}
		return largest - 1
	case models.EventTypeBisexual:
		if total < 1 {
			return 0
		}
		return total - 1
	}
	return 0
}
