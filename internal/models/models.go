package models

import "time"

// EventType determines which gender combinations may be paired.
type EventType string

const (
	EventTypeStraight EventType = "straight"
	EventTypeGay      EventType = "gay"
	EventTypeBisexual EventType = "bisexual"
)

// Phase is the stage a session is in within the current round.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseLobby    Phase = "lobby"
	PhaseDate     Phase = "date"
	PhaseFeedback Phase = "feedback"
)

const (
	GenderMan   = "man"
	GenderWoman = "woman"
)

// Participant is one user's state within a single event session.
type Participant struct {
	UserID       string `json:"user_id"`
	ConnectionID string `json:"connection_id"`
	Gender       string `json:"gender"`
	InterestedIn string `json:"interested_in"`

	IsOnline bool `json:"is_online"`
	IsReady  bool `json:"is_ready"`

	// CurrentPartner is the userID of this round's date, empty when unpaired.
	// If A.CurrentPartner == B then B.CurrentPartner == A, always.
	CurrentPartner string `json:"current_partner,omitempty"`

	RoundsCompleted  int `json:"rounds_completed"`
	LastWaitedRound  int `json:"last_waited_round"`
	ConsecutiveWaits int `json:"consecutive_waits"`

	DateStartTime      time.Time `json:"date_start_time,omitempty"`
	LastDisconnectTime time.Time `json:"last_disconnect_time,omitempty"`

	// IsLateJoiner marks a user who joined after round 1 started; it is
	// consumed on their first pairing attempt, skipping them one round.
	IsLateJoiner bool `json:"is_late_joiner"`

	// PushToken is the device token for the push collaborator, optional.
	PushToken string `json:"-"`

	JoinedAt time.Time `json:"joined_at"`
}

// Pair is one proposed date: two participants and the channel the media
// collaborator should host their call on.
type Pair struct {
	UserAID   string `json:"user_a_id"`
	UserBID   string `json:"user_b_id"`
	ChannelID string `json:"channel_id"`
	Round     int    `json:"round"`
}

// Contains reports whether userID is one side of the pair.
func (p Pair) Contains(userID string) bool {
	return p.UserAID == userID || p.UserBID == userID
}

// PartnerOf returns the other side of the pair, or "" if userID is not in it.
func (p Pair) PartnerOf(userID string) string {
	switch userID {
	case p.UserAID:
		return p.UserBID
	case p.UserBID:
		return p.UserAID
	}
	return ""
}

// EventSession is the full mutable state of one live speed dating event.
// All mutation goes through the event service, which serializes access.
type EventSession struct {
	EventID      string                  `json:"event_id"`
	Participants map[string]*Participant `json:"participants"`

	// PairingHistory holds the sorted pair key of every couple that has
	// already dated. It only ever shrinks via the sub-threshold
	// disconnect reversal.
	PairingHistory map[string]bool `json:"pairing_history"`

	CurrentRound    int            `json:"current_round"`
	CurrentPhase    Phase          `json:"current_phase"`
	PhaseStartTime  time.Time      `json:"phase_start_time,omitempty"`
	EventType       EventType      `json:"event_type"`
	CurrentPairings map[int][]Pair `json:"current_pairings"`

	CreatedAt time.Time `json:"created_at"`
}

// JoinProfile is what the identity collaborator supplies at join time.
// The engine trusts it as-is.
type JoinProfile struct {
	Gender       string    `json:"gender"`
	InterestedIn string    `json:"interested_in"`
	EventType    EventType `json:"event_type"`
	PushToken    string    `json:"push_token,omitempty"`
}

// RoundInfo describes a round/phase transition for the transport layer to
// broadcast.
type RoundInfo struct {
	Round          int       `json:"round"`
	Phase          Phase     `json:"phase"`
	Pairings       []Pair    `json:"pairings,omitempty"`
	PhaseStartTime time.Time `json:"phase_start_time"`
	PhaseDuration  int       `json:"phase_duration"`
}

// DisconnectResult tells the caller what a disconnect did, so it can notify
// the orphaned partner.
type DisconnectResult struct {
	PartnerID        string `json:"partner_id,omitempty"`
	WasInDate        bool   `json:"was_in_date"`
	DateMetThreshold bool   `json:"date_met_threshold"`
	CurrentPhase     Phase  `json:"current_phase"`
	CurrentRound     int    `json:"current_round"`
}

// EventState is the projection a client resynchronizes from after a
// reconnect. Purely derived from session state and wall-clock time.
type EventState struct {
	EventID            string    `json:"event_id"`
	Round              int       `json:"round"`
	Phase              Phase     `json:"phase"`
	RemainingSeconds   int       `json:"remaining_seconds"`
	PartnerID          string    `json:"partner_id,omitempty"`
	ChannelID          string    `json:"channel_id,omitempty"`
	IsWaiting          bool      `json:"is_waiting"`
	NextRoundInSeconds int       `json:"next_round_in_seconds,omitempty"`
	EventType          EventType `json:"event_type"`
}

// SessionStats is a read-only aggregate view for monitoring.
type SessionStats struct {
	EventID           string    `json:"event_id"`
	EventType         EventType `json:"event_type"`
	CurrentRound      int       `json:"current_round"`
	CurrentPhase      Phase     `json:"current_phase"`
	TotalParticipants int       `json:"total_participants"`
	OnlineCount       int       `json:"online_count"`
	ReadyCount        int       `json:"ready_count"`
	PairedCount       int       `json:"paired_count"`
	PairingsRecorded  int       `json:"pairings_recorded"`
	MaxPossibleRounds int       `json:"max_possible_rounds"`
}
