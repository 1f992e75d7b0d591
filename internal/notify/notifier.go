package notify

import (
	"fmt"

	"slush-dating-backend/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// Notifier is the narrow surface the engine glue uses to nudge users who
// are not looking at the app. Implementations must be safe to call from
// any goroutine and must not block the caller meaningfully.
type Notifier interface {
	Push(deviceToken, title, body string)
}

// Nop is the notifier used when push is not configured.
type Nop struct{}

func (Nop) Push(deviceToken, title, body string) {}

// APNS sends pushes through Apple's push service.
type APNS struct {
	client *apns2.Client
	topic  string
}

// NewAPNS builds an APNs notifier from a p8 signing key.
func NewAPNS(cfg config.APNSConfig) (*APNS, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Sandbox {
		client = client.Development()
	} else {
		client = client.Production()
	}

	return &APNS{client: client, topic: cfg.Topic}, nil
}

// Push sends one alert notification. Failures are logged, not returned;
// a missed push never affects the event.
func (n *APNS) Push(deviceToken, title, body string) {
	if deviceToken == "" {
		return
	}

	notification := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       n.topic,
		Payload:     payload.NewPayload().AlertTitle(title).AlertBody(body).Sound("default"),
	}

	res, err := n.client.Push(notification)
	if err != nil {
		log.Error().Err(err).Msg("Failed to send push notification")
		return
	}
	if !res.Sent() {
		log.Warn().Str("reason", res.Reason).Int("status", res.StatusCode).Msg("Push notification rejected")
	}
}
