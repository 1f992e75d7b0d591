package events

import (
	"time"

	"slush-dating-backend/internal/models"
)

// Event type names carried on the bus.
const (
	TypeRoundStarted        = "RoundStarted"
	TypePhaseChanged        = "PhaseChanged"
	TypeRoundEnded          = "RoundEnded"
	TypeEventCompleted      = "EventCompleted"
	TypePartnerDisconnected = "PartnerDisconnected"
)

// RoundStartedPayload is published when a new round's pairings are formed.
type RoundStartedPayload struct {
	EventID      string        `json:"event_id"`
	Round        int           `json:"round"`
	Pairings     []models.Pair `json:"pairings"`
	StartedAt    time.Time     `json:"started_at"`
	LobbySeconds int           `json:"lobby_seconds"`
	WaitingUsers int           `json:"waiting_users"`
}

// PhaseChangedPayload is published on every lobby/date/feedback transition.
type PhaseChangedPayload struct {
	EventID       string       `json:"event_id"`
	Round         int          `json:"round"`
	Phase         models.Phase `json:"phase"`
	ChangedAt     time.Time    `json:"changed_at"`
	PhaseDuration int          `json:"phase_duration"`
}

// RoundEndedPayload is published when a round closes out.
type RoundEndedPayload struct {
	EventID string    `json:"event_id"`
	Round   int       `json:"round"`
	EndedAt time.Time `json:"ended_at"`
}

// EventCompletedPayload is published once no further pairings are possible.
type EventCompletedPayload struct {
	EventID     string    `json:"event_id"`
	TotalRounds int       `json:"total_rounds"`
	CompletedAt time.Time `json:"completed_at"`
}

// PartnerDisconnectedPayload is published when a live date loses one side.
type PartnerDisconnectedPayload struct {
	EventID          string    `json:"event_id"`
	UserID           string    `json:"user_id"`
	PartnerID        string    `json:"partner_id"`
	Round            int       `json:"round"`
	DateMetThreshold bool      `json:"date_met_threshold"`
	DisconnectedAt   time.Time `json:"disconnected_at"`
}
