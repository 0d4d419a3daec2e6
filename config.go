package main

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is populated from CODECANVAS_* environment variables. A .env file
// in the working directory is loaded first (see main).
type Config struct {
	Addr    string `envconfig:"ADDR" default:":8080"`
	TLSCert string `envconfig:"TLS_CERT"`
	TLSKey  string `envconfig:"TLS_KEY"`

	MaxRooms          int   `envconfig:"MAX_ROOMS" default:"1000"`
	MaxClientsPerRoom int   `envconfig:"MAX_CLIENTS_PER_ROOM" default:"50"`
	MaxMessageSize    int64 `envconfig:"MAX_MESSAGE_SIZE" default:"8388608"`

	// RoomAbandonThreshold is the occupancy at or below which a room's
	// document and canvas state is discarded after a departure. The
	// default treats a single remaining occupant as an abandoned room.
	RoomAbandonThreshold int `envconfig:"ROOM_ABANDON_THRESHOLD" default:"1"`

	RateLimitPerIP float64 `envconfig:"RATE_LIMIT_PER_IP" default:"100"`

	StaticDir    string `envconfig:"STATIC_DIR"`
	ClientOrigin string `envconfig:"CLIENT_ORIGIN" default:"*"`

	ExecuteURL          string        `envconfig:"EXECUTE_URL" default:"https://api.jdoodle.com/v1/execute"`
	ExecuteClientID     string        `envconfig:"EXECUTE_CLIENT_ID"`
	ExecuteClientSecret string        `envconfig:"EXECUTE_CLIENT_SECRET"`
	ExecuteTimeout      time.Duration `envconfig:"EXECUTE_TIMEOUT" default:"15s"`
}

func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("codecanvas", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}
