package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const subjectPrefix = "slush.event"

// Publisher pushes engine domain events onto NATS for downstream consumers
// (chat, analytics, notification fan-out). Publishing is fire-and-forget
// and must never sit on the engine's mutation path. A nil *Publisher is a
// valid no-op, so the engine runs fine without a broker.
type Publisher struct {
	nc *nats.Conn
}

// NewPublisher connects to NATS. Returns an error if the broker is
// unreachable at startup.
func NewPublisher(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &Publisher{nc: nc}, nil
}

// Publish sends one event payload on slush.event.<eventID>.<type>.
func (p *Publisher) Publish(eventID, eventType string, payload any) {
	if p == nil || p.nc == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("Failed to marshal event payload")
		return
	}

	subject := fmt.Sprintf("%s.%s.%s", subjectPrefix, eventID, eventType)
	if err := p.nc.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Failed to publish event")
	}
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}
