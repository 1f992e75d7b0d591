package services_test

import (
	"testing"

	"slush-dating-backend/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseCycle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	engine, store := newTestEngine(clock)

	joinReady(t, engine, "ev1", "A", models.GenderMan, models.EventTypeBisexual)
	joinReady(t, engine, "ev1", "B", models.GenderMan, models.EventTypeBisexual)

	info := engine.StartRound("ev1")
	require.NotNil(t, info)
	assert.Equal(t, models.PhaseLobby, info.Phase)
	assert.Equal(t, 5, info.PhaseDuration)
	assert.Equal(t, clock.Now(), info.PhaseStartTime)

	info = engine.NextPhase("ev1")
	require.NotNil(t, info)
	assert.Equal(t, models.PhaseDate, info.Phase)
	assert.Equal(t, 60, info.PhaseDuration)

	// Entering the date phase stamps the date start on both partners.
	session := store.Get("ev1")
	assert.Equal(t, clock.Now(), session.Participants["A"].DateStartTime)
	assert.Equal(t, clock.Now(), session.Participants["B"].DateStartTime)

	info = engine.NextPhase("ev1")
	require.NotNil(t, info)
	assert.Equal(t, models.PhaseFeedback, info.Phase)
	assert.Equal(t, 10, info.PhaseDuration)

	// Feedback is the terminal phase of a round.
	assert.Nil(t, engine.NextPhase("ev1"))
}

func TestNextPhaseFromWaitingIsNil(t *testing.T) {
	engine, _ := newTestEngine(clockwork.NewFakeClock())
	joinReady(t, engine, "ev1", "A", models.GenderMan, models.EventTypeBisexual)
	assert.Nil(t, engine.NextPhase("ev1"), "cannot advance before a round starts")
	assert.Nil(t, engine.NextPhase("missing"))
}

func TestEndRoundCreditsCompletedDates(t *testing.T) {
	engine, store := newTestEngine(clockwork.NewFakeClock())

	for _, id := range []string{"A", "B", "C"} {
		joinReady(t, engine, "ev1", id, models.GenderMan, models.EventTypeBisexual)
	}

	info := engine.StartRound("ev1")
	require.Len(t, info.Pairings, 1)

	ended := engine.EndRound("ev1")
	require.NotNil(t, ended)
	assert.Equal(t, models.PhaseWaiting, ended.Phase)

	session := store.Get("ev1")
	completed := 0
	for _, p := range session.Participants {
		assert.Empty(t, p.CurrentPartner, "all partnerships clear at round end")
		if p.RoundsCompleted == 1 {
			completed++
		}
	}
	assert.Equal(t, 2, completed, "only the paired couple gets the round credited")
}

func TestStartRoundUnknownEvent(t *testing.T) {
	engine, _ := newTestEngine(clockwork.NewFakeClock())
	assert.Nil(t, engine.StartRound("missing"))
	assert.Nil(t, engine.EndRound("missing"))
}

func TestRoundCounterIsMonotonic(t *testing.T) {
	engine, store := newTestEngine(clockwork.NewFakeClock())
	joinReady(t, engine, "ev1", "A", models.GenderMan, models.EventTypeBisexual)

	for want := 1; want <= 3; want++ {
		info := engine.StartRound("ev1")
		require.NotNil(t, info)
		assert.Equal(t, want, info.Round)
		engine.EndRound("ev1")
	}
	assert.Equal(t, 3, store.Get("ev1").CurrentRound)
}
