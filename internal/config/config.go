package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig `yaml:"server"`
	Event  EventConfig  `yaml:"event"`
	JWT    JWTConfig    `yaml:"jwt"`
	NATS   NATSConfig   `yaml:"nats"`
	APNS   APNSConfig   `yaml:"apns"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// EventConfig holds the timing rules for live events. All values are in
// seconds; they are data, not protocol invariants.
type EventConfig struct {
	LobbySeconds     int `yaml:"lobby_seconds"`
	DateSeconds      int `yaml:"date_seconds"`
	FeedbackSeconds  int `yaml:"feedback_seconds"`
	MinDateThreshold int `yaml:"min_date_threshold"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// NATSConfig holds the message bus configuration. An empty URL disables
// event publishing.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// APNSConfig holds push notification configuration. An empty key path
// disables pushes.
type APNSConfig struct {
	KeyPath string `yaml:"key_path"`
	KeyID   string `yaml:"key_id"`
	TeamID  string `yaml:"team_id"`
	Topic   string `yaml:"topic"`
	Sandbox bool   `yaml:"sandbox"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Event.applyDefaults()

	return &cfg, nil
}

func (c *EventConfig) applyDefaults() {
	if c.LobbySeconds <= 0 {
		c.LobbySeconds = 10
	}
	if c.DateSeconds <= 0 {
		c.DateSeconds = 180
	}
	if c.FeedbackSeconds <= 0 {
		c.FeedbackSeconds = 20
	}
	if c.MinDateThreshold <= 0 {
		c.MinDateThreshold = 30
	}
}

// PhaseDuration returns the configured duration of a phase by name
// (lobby, date, feedback). Unknown phases have zero duration.
func (c *EventConfig) PhaseDuration(phase string) time.Duration {
	switch phase {
	case "lobby":
		return time.Duration(c.LobbySeconds) * time.Second
	case "date":
		return time.Duration(c.DateSeconds) * time.Second
	case "feedback":
		return time.Duration(c.FeedbackSeconds) * time.Second
	}
	return 0
}
