package services

import (
	"context"
	"sync"
	"time"

	"slush-dating-backend/internal/events"
	"slush-dating-backend/internal/models"
	"slush-dating-backend/internal/notify"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// EventScheduler owns the phase timers: one goroutine per live event that
// drives the engine through lobby -> date -> feedback -> round end and
// decides when the event is finished. The engine itself stays
// timer-agnostic; the scheduler is the caller that invokes transitions at
// the right wall-clock moments. Phase durations come from configuration,
// the clock is injectable so tests can fake it.
type EventScheduler struct {
	engine    *EventService
	hub       *WSHub
	publisher *events.Publisher
	notifier  notify.Notifier
	clock     clockwork.Clock

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewEventScheduler creates a new event scheduler
func NewEventScheduler(engine *EventService, hub *WSHub, publisher *events.Publisher, notifier notify.Notifier, clock clockwork.Clock) *EventScheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &EventScheduler{
		engine:    engine,
		hub:       hub,
		publisher: publisher,
		notifier:  notifier,
		clock:     clock,
		running:   make(map[string]context.CancelFunc),
	}
}

// Start launches the round loop for an event. No-op if already running.
func (s *EventScheduler) Start(eventID string) {
	s.mu.Lock()
	if _, ok := s.running[eventID]; ok {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.running[eventID] = cancel
	s.mu.Unlock()

	log.Info().Str("event_id", eventID).Msg("Event scheduler started")
	go s.runLoop(ctx, eventID)
}

// Stop cancels the round loop for an event. The engine state is left as-is;
// cleanup is a separate call.
func (s *EventScheduler) Stop(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.running[eventID]; ok {
		cancel()
		delete(s.running, eventID)
		log.Info().Str("event_id", eventID).Msg("Event scheduler stopped")
	}
}

// IsRunning reports whether an event's round loop is live.
func (s *EventScheduler) IsRunning(eventID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[eventID]
	return ok
}

func (s *EventScheduler) runLoop(ctx context.Context, eventID string) {
	defer s.Stop(eventID)

	for {
		info := s.engine.StartRound(eventID)
		if info == nil {
			// Session was torn down under us.
			return
		}

		s.broadcastRound(eventID, "round_started", info)
		waiting := 0
		if stats := s.engine.GetSessionStats(eventID); stats != nil {
			waiting = stats.ReadyCount - stats.PairedCount
		}
		s.publisher.Publish(eventID, events.TypeRoundStarted, events.RoundStartedPayload{
			EventID:      eventID,
			Round:        info.Round,
			Pairings:     info.Pairings,
			StartedAt:    info.PhaseStartTime,
			LobbySeconds: info.PhaseDuration,
			WaitingUsers: waiting,
		})
		s.pushOfflineReady(eventID)

		if !s.sleep(ctx, time.Duration(info.PhaseDuration)*time.Second) {
			return
		}

		// lobby -> date, date -> feedback
		for {
			next := s.engine.NextPhase(eventID)
			if next == nil {
				break
			}
			s.broadcastRound(eventID, "phase_changed", next)
			s.publisher.Publish(eventID, events.TypePhaseChanged, events.PhaseChangedPayload{
				EventID:       eventID,
				Round:         next.Round,
				Phase:         next.Phase,
				ChangedAt:     next.PhaseStartTime,
				PhaseDuration: next.PhaseDuration,
			})
			if !s.sleep(ctx, time.Duration(next.PhaseDuration)*time.Second) {
				return
			}
		}

		ended := s.engine.EndRound(eventID)
		if ended == nil {
			return
		}
		s.broadcastRound(eventID, "round_ended", ended)
		s.publisher.Publish(eventID, events.TypeRoundEnded, events.RoundEndedPayload{
			EventID: eventID,
			Round:   ended.Round,
			EndedAt: ended.PhaseStartTime,
		})

		if s.eventFinished(eventID) {
			s.complete(eventID, ended.Round)
			return
		}
	}
}

// eventFinished decides whether another round is worth starting: either
// every compatible pairing has already happened, or fewer than two people
// are still online and ready.
func (s *EventScheduler) eventFinished(eventID string) bool {
	if s.engine.AreAllPairingsExhausted(eventID) {
		return true
	}
	stats := s.engine.GetSessionStats(eventID)
	return stats == nil || stats.ReadyCount < 2
}

func (s *EventScheduler) complete(eventID string, totalRounds int) {
	log.Info().Str("event_id", eventID).Int("rounds", totalRounds).Msg("Event complete")

	s.hub.BroadcastToEvent(eventID, WSMessage{
		Type:    "event_complete",
		EventID: eventID,
		Data:    map[string]interface{}{"total_rounds": totalRounds},
	})
	s.publisher.Publish(eventID, events.TypeEventCompleted, events.EventCompletedPayload{
		EventID:     eventID,
		TotalRounds: totalRounds,
		CompletedAt: s.clock.Now(),
	})
}

// sleep waits for a phase to elapse. Returns false when the scheduler was
// cancelled mid-wait.
func (s *EventScheduler) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := s.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.Chan():
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *EventScheduler) broadcastRound(eventID, msgType string, info *models.RoundInfo) {
	s.hub.BroadcastToEvent(eventID, WSMessage{
		Type:    msgType,
		EventID: eventID,
		Data:    info,
	})
}

// pushOfflineReady nudges users who said they were ready but have no live
// connection when a round kicks off.
func (s *EventScheduler) pushOfflineReady(eventID string) {
	for _, p := range s.engine.GetParticipants(eventID) {
		if p.IsReady && p.PushToken != "" && !s.hub.IsOnline(p.UserID) {
			go s.notifier.Push(p.PushToken, "Your next date is starting", "Come back to the event to meet your match")
		}
	}
}
