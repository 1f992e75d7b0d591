package services_test

import (
	"testing"
	"time"

	"slush-dating-backend/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinSessionFirstJoinerFixesEventType(t *testing.T) {
	engine, store := newTestEngine(clockwork.NewFakeClock())

	engine.JoinSession("ev1", "A", "conn-A", models.JoinProfile{
		Gender:    models.GenderMan,
		EventType: models.EventTypeGay,
	})
	engine.JoinSession("ev1", "B", "conn-B", models.JoinProfile{
		Gender:    models.GenderMan,
		EventType: models.EventTypeStraight,
	})

	assert.Equal(t, models.EventTypeGay, store.Get("ev1").EventType,
		"later joiners must not flip the event type")
}

func TestJoinSessionRebindIsNotAFreshInsert(t *testing.T) {
	clock := clockwork.NewFakeClock()
	engine, store := newTestEngine(clock)

	joinReady(t, engine, "ev1", "A", models.GenderMan, models.EventTypeBisexual)
	joinReady(t, engine, "ev1", "B", models.GenderMan, models.EventTypeBisexual)
	engine.StartRound("ev1")

	session := store.Get("ev1")
	session.Participants["A"].ConsecutiveWaits = 2
	session.Participants["A"].RoundsCompleted = 1

	p := engine.JoinSession("ev1", "A", "conn-A2", models.JoinProfile{Gender: models.GenderMan})
	require.NotNil(t, p)
	assert.Equal(t, "conn-A2", p.ConnectionID)
	assert.True(t, p.IsOnline)
	assert.True(t, p.IsReady)
	assert.Equal(t, 2, p.ConsecutiveWaits, "fairness counters survive a rejoin")
	assert.Equal(t, 1, p.RoundsCompleted)
	assert.False(t, p.IsLateJoiner, "a returning participant is not a late joiner")
}

func TestJoinSessionMidEventIsLateJoiner(t *testing.T) {
	engine, _ := newTestEngine(clockwork.NewFakeClock())

	joinReady(t, engine, "ev1", "A", models.GenderMan, models.EventTypeBisexual)
	joinReady(t, engine, "ev1", "B", models.GenderMan, models.EventTypeBisexual)
	engine.StartRound("ev1")

	p := engine.JoinSession("ev1", "C", "conn-C", models.JoinProfile{Gender: models.GenderMan})
	assert.True(t, p.IsLateJoiner)

	q := engine.JoinSession("ev2", "D", "conn-D", models.JoinProfile{Gender: models.GenderMan})
	assert.False(t, q.IsLateJoiner, "joining before round one is on time")
}

func TestLeaveSessionFreesPartnerButKeepsHistory(t *testing.T) {
	engine, store := newTestEngine(clockwork.NewFakeClock())

	joinReady(t, engine, "ev1", "A", models.GenderMan, models.EventTypeBisexual)
	joinReady(t, engine, "ev1", "B", models.GenderMan, models.EventTypeBisexual)
	engine.StartRound("ev1")

	engine.LeaveSession("ev1", "A")

	session := store.Get("ev1")
	a, b := session.Participants["A"], session.Participants["B"]
	assert.False(t, a.IsOnline)
	assert.False(t, a.IsReady)
	assert.Empty(t, a.CurrentPartner)
	assert.Empty(t, b.CurrentPartner, "the deserted partner is freed too")
	assert.True(t, session.PairingHistory["A:B"], "a plain leave never rewinds history")

	engine.LeaveSession("ev1", "ghost")
	engine.LeaveSession("missing", "A")
}

func TestMarkReady(t *testing.T) {
	engine, store := newTestEngine(clockwork.NewFakeClock())

	engine.JoinSession("ev1", "A", "conn-A", models.JoinProfile{Gender: models.GenderMan})
	store.Get("ev1").Participants["A"].IsReady = false

	engine.MarkReady("ev1", "A")
	assert.True(t, store.Get("ev1").Participants["A"].IsReady)

	engine.MarkReady("ev1", "ghost")
	engine.MarkReady("missing", "A")
}

func TestRejoinSessionReturnsSnapshot(t *testing.T) {
	clock := clockwork.NewFakeClock()
	engine, store := newTestEngine(clock)

	joinReady(t, engine, "ev1", "A", models.GenderMan, models.EventTypeBisexual)
	joinReady(t, engine, "ev1", "B", models.GenderMan, models.EventTypeBisexual)
	engine.StartRound("ev1")
	require.NotNil(t, engine.NextPhase("ev1"))

	clock.Advance(45 * time.Second)
	res := engine.HandleDisconnect("ev1", "A")
	require.NotNil(t, res)
	require.True(t, res.DateMetThreshold)

	clock.Advance(3 * time.Second)
	state := engine.RejoinSession("ev1", "A", "conn-A2")
	require.NotNil(t, state)
	assert.Equal(t, models.PhaseDate, state.Phase)
	assert.Equal(t, 12, state.RemainingSeconds)
	assert.True(t, state.IsWaiting, "the old pairing stood, so the rejoiner waits")

	a := store.Get("ev1").Participants["A"]
	assert.True(t, a.IsOnline)
	assert.True(t, a.LastDisconnectTime.IsZero())

	assert.Nil(t, engine.RejoinSession("ev1", "ghost", "conn"))
	assert.Nil(t, engine.RejoinSession("missing", "A", "conn"))
}

func TestCleanupSession(t *testing.T) {
	engine, store := newTestEngine(clockwork.NewFakeClock())

	joinReady(t, engine, "ev1", "A", models.GenderMan, models.EventTypeBisexual)
	require.NotNil(t, store.Get("ev1"))

	engine.CleanupSession("ev1")
	assert.Nil(t, store.Get("ev1"))
	assert.Zero(t, store.Count())
}
