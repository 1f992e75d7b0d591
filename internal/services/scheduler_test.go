package services_test

import (
	"testing"
	"time"

	"slush-dating-backend/internal/models"
	"slush-dating-backend/internal/services"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(clock clockwork.Clock) (*services.EventScheduler, *services.EventService) {
	engine, _ := newTestEngine(clock)
	hub := services.NewWSHub()
	return services.NewEventScheduler(engine, hub, nil, nil, clock), engine
}

func phaseOf(t *testing.T, engine *services.EventService, eventID string) models.Phase {
	t.Helper()
	stats := engine.GetSessionStats(eventID)
	require.NotNil(t, stats)
	return stats.CurrentPhase
}

func TestSchedulerDrivesFullRoundCycle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched, engine := newTestScheduler(clock)

	joinReady(t, engine, "ev1", "A", models.GenderMan, models.EventTypeBisexual)
	joinReady(t, engine, "ev1", "B", models.GenderMan, models.EventTypeBisexual)

	sched.Start("ev1")

	// Round starts, loop parks on the lobby timer.
	clock.BlockUntil(1)
	assert.Equal(t, models.PhaseLobby, phaseOf(t, engine, "ev1"))
	assert.Equal(t, 1, engine.GetSessionStats("ev1").CurrentRound)

	clock.Advance(5 * time.Second)
	clock.BlockUntil(1)
	assert.Equal(t, models.PhaseDate, phaseOf(t, engine, "ev1"))

	clock.Advance(60 * time.Second)
	clock.BlockUntil(1)
	assert.Equal(t, models.PhaseFeedback, phaseOf(t, engine, "ev1"))

	// Feedback elapses; A and B have now dated everyone they can, so the
	// event completes instead of starting round two.
	clock.Advance(10 * time.Second)
	require.Eventually(t, func() bool {
		return !sched.IsRunning("ev1")
	}, time.Second, 5*time.Millisecond)

	stats := engine.GetSessionStats("ev1")
	assert.Equal(t, models.PhaseWaiting, stats.CurrentPhase)
	assert.Equal(t, 1, stats.CurrentRound)

	for _, p := range engine.GetParticipants("ev1") {
		assert.Equal(t, 1, p.RoundsCompleted)
	}
}

func TestSchedulerStopCancelsMidPhase(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched, engine := newTestScheduler(clock)

	joinReady(t, engine, "ev1", "A", models.GenderMan, models.EventTypeBisexual)
	joinReady(t, engine, "ev1", "B", models.GenderMan, models.EventTypeBisexual)
	joinReady(t, engine, "ev1", "C", models.GenderMan, models.EventTypeBisexual)

	sched.Start("ev1")
	clock.BlockUntil(1)
	require.True(t, sched.IsRunning("ev1"))

	sched.Stop("ev1")
	require.Eventually(t, func() bool {
		return !sched.IsRunning("ev1")
	}, time.Second, 5*time.Millisecond)

	// The loop died mid-lobby; the session keeps its last state.
	assert.Equal(t, models.PhaseLobby, phaseOf(t, engine, "ev1"))
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched, engine := newTestScheduler(clock)

	joinReady(t, engine, "ev1", "A", models.GenderMan, models.EventTypeBisexual)
	joinReady(t, engine, "ev1", "B", models.GenderMan, models.EventTypeBisexual)

	sched.Start("ev1")
	clock.BlockUntil(1)
	sched.Start("ev1")

	// A second loop would leave a second waiter parked on the clock.
	assert.Equal(t, 1, engine.GetSessionStats("ev1").CurrentRound)
	assert.True(t, sched.IsRunning("ev1"))

	sched.Stop("ev1")
}

func TestSchedulerExitsOnUnknownEvent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched, _ := newTestScheduler(clock)

	sched.Start("missing")
	require.Eventually(t, func() bool {
		return !sched.IsRunning("missing")
	}, time.Second, 5*time.Millisecond)
}
