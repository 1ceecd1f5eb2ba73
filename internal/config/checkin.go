package config

import (
	"os"
	"time"
)

// CheckInConfig holds the check-in and broadcast settings.
//
//	CHECKIN_WINDOW_PEOPLE     default freshness window for adjudicators and speakers (12h)
//	CHECKIN_WINDOW_VENUES     default freshness window for venues (2h)
//	BROADCAST_TIMEOUT         bound on a single broadcast publish (2s)
//	CHECKIN_TOGGLE_LOCK       serialise toggles of one identifier through Redis (false)
//	CHECKIN_TOGGLE_LOCK_TTL   lifetime of a toggle lock (5s)
//	RABBITMQ_URL / AMQP_URL   fan broadcasts out through RabbitMQ when set
//
// Tournaments override the windows with the checkin_window_people and
// checkin_window_venues preferences.
type CheckInConfig struct {
	PeopleWindow     time.Duration
	VenueWindow      time.Duration
	BroadcastTimeout time.Duration
	ToggleLock       bool
	ToggleLockTTL    time.Duration
	RabbitMQURL      string
}

func LoadCheckInConfig() CheckInConfig {
	cfg := CheckInConfig{
		PeopleWindow:     envDur("CHECKIN_WINDOW_PEOPLE", 12*time.Hour),
		VenueWindow:      envDur("CHECKIN_WINDOW_VENUES", 2*time.Hour),
		BroadcastTimeout: envDur("BROADCAST_TIMEOUT", 2*time.Second),
		ToggleLock:       envBool("CHECKIN_TOGGLE_LOCK", false),
		ToggleLockTTL:    envDur("CHECKIN_TOGGLE_LOCK_TTL", 5*time.Second),
		RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
	}
	if cfg.RabbitMQURL == "" {
		cfg.RabbitMQURL = os.Getenv("AMQP_URL")
	}
	if cfg.PeopleWindow <= 0 {
		cfg.PeopleWindow = 12 * time.Hour
	}
	if cfg.VenueWindow <= 0 {
		cfg.VenueWindow = 2 * time.Hour
	}
	if cfg.BroadcastTimeout <= 0 {
		cfg.BroadcastTimeout = 2 * time.Second
	}
	return cfg
}
