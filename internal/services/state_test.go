package services_test

import (
	"testing"
	"time"

	"slush-dating-backend/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEventStateDuringDate(t *testing.T) {
	clock := clockwork.NewFakeClock()
	engine, _ := newTestEngine(clock)

	joinReady(t, engine, "ev1", "A", models.GenderMan, models.EventTypeBisexual)
	joinReady(t, engine, "ev1", "B", models.GenderMan, models.EventTypeBisexual)

	info := engine.StartRound("ev1")
	require.Len(t, info.Pairings, 1)
	require.NotNil(t, engine.NextPhase("ev1"))

	clock.Advance(20 * time.Second)

	state := engine.GetEventState("ev1", "A")
	require.NotNil(t, state)
	assert.Equal(t, 1, state.Round)
	assert.Equal(t, models.PhaseDate, state.Phase)
	assert.Equal(t, 40, state.RemainingSeconds, "60s date minus 20s elapsed")
	assert.Equal(t, "B", state.PartnerID)
	assert.Equal(t, info.Pairings[0].ChannelID, state.ChannelID)
	assert.False(t, state.IsWaiting)
	assert.Zero(t, state.NextRoundInSeconds)
}

func TestGetEventStateWhileWaiting(t *testing.T) {
	clock := clockwork.NewFakeClock()
	engine, _ := newTestEngine(clock)

	for _, id := range []string{"A", "B", "C"} {
		joinReady(t, engine, "ev1", id, models.GenderMan, models.EventTypeBisexual)
	}

	info := engine.StartRound("ev1")
	require.Len(t, info.Pairings, 1)

	var waiter string
	for _, id := range []string{"A", "B", "C"} {
		if !info.Pairings[0].Contains(id) {
			waiter = id
		}
	}

	clock.Advance(2 * time.Second)

	state := engine.GetEventState("ev1", waiter)
	require.NotNil(t, state)
	assert.True(t, state.IsWaiting)
	assert.Equal(t, 3, state.RemainingSeconds, "5s lobby minus 2s elapsed")
	// Rest of the lobby plus the whole date and feedback phases.
	assert.Equal(t, 3+60+10, state.NextRoundInSeconds)
}

func TestGetEventStateClampsAtZero(t *testing.T) {
	clock := clockwork.NewFakeClock()
	engine, _ := newTestEngine(clock)

	joinReady(t, engine, "ev1", "A", models.GenderMan, models.EventTypeBisexual)
	joinReady(t, engine, "ev1", "B", models.GenderMan, models.EventTypeBisexual)
	engine.StartRound("ev1")

	// The caller is late advancing the phase; remaining time never goes
	// negative.
	clock.Advance(2 * time.Minute)

	state := engine.GetEventState("ev1", "A")
	require.NotNil(t, state)
	assert.Equal(t, 0, state.RemainingSeconds)
}

func TestGetEventStateUnknowns(t *testing.T) {
	engine, _ := newTestEngine(clockwork.NewFakeClock())
	assert.Nil(t, engine.GetEventState("missing", "A"))

	joinReady(t, engine, "ev1", "A", models.GenderMan, models.EventTypeBisexual)
	assert.Nil(t, engine.GetEventState("ev1", "ghost"))
}

func TestGetSessionStats(t *testing.T) {
	engine, _ := newTestEngine(clockwork.NewFakeClock())

	assert.Nil(t, engine.GetSessionStats("missing"))

	joinReady(t, engine, "ev1", "M1", models.GenderMan, models.EventTypeStraight)
	joinReady(t, engine, "ev1", "F1", models.GenderWoman, models.EventTypeStraight)
	engine.JoinSession("ev1", "M2", "conn-M2", models.JoinProfile{Gender: models.GenderMan})
	engine.LeaveSession("ev1", "M2")

	engine.StartRound("ev1")

	stats := engine.GetSessionStats("ev1")
	require.NotNil(t, stats)
	assert.Equal(t, models.EventTypeStraight, stats.EventType)
	assert.Equal(t, 3, stats.TotalParticipants)
	assert.Equal(t, 2, stats.OnlineCount)
	assert.Equal(t, 2, stats.ReadyCount)
	assert.Equal(t, 2, stats.PairedCount)
	assert.Equal(t, 1, stats.PairingsRecorded)
	assert.Equal(t, 1, stats.CurrentRound)
	assert.Equal(t, models.PhaseLobby, stats.CurrentPhase)
	assert.Equal(t, 1, stats.MaxPossibleRounds, "one man and one woman online")
}

func TestGetParticipantsReturnsCopies(t *testing.T) {
	engine, store := newTestEngine(clockwork.NewFakeClock())

	assert.Nil(t, engine.GetParticipants("missing"))

	joinReady(t, engine, "ev1", "B", models.GenderMan, models.EventTypeBisexual)
	joinReady(t, engine, "ev1", "A", models.GenderMan, models.EventTypeBisexual)

	participants := engine.GetParticipants("ev1")
	require.Len(t, participants, 2)
	assert.Equal(t, "A", participants[0].UserID, "sorted by user ID")

	participants[0].IsReady = false
	assert.True(t, store.Get("ev1").Participants["A"].IsReady, "mutating the view must not touch the session")
}
