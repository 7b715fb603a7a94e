package config

import (
	"strings"
	"time"
)

// WorkerConfig configures the Worker Agent process (cmd/worker).
type WorkerConfig struct {
	// BaseURL is the Coordinator Service's base URL, e.g.
	// "http://coordinator:8080".
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// StoreDir holds the worker's persisted identity file
	// (<hostname>.id) and any scratch state.
	StoreDir string `env:"STORE_DIR" envDefault:"./worker-data"`

	// MinSleep is the minimum duration the worker waits between
	// requests, clamped onto the coordinator's SLEEP directive no matter
	// how small a value the coordinator asks for.
	MinSleep time.Duration `env:"MIN_SLEEP" envDefault:"240s"`

	// MaxAttempts is the number of consecutive transport failures the
	// worker tolerates before giving up and entering the DEAD state.
	MaxAttempts int `env:"MAX_ATTEMPTS" envDefault:"5"`

	// BackoffStep is added to the retry sleep delay after each
	// consecutive transport failure.
	BackoffStep time.Duration `env:"BACKOFF_STEP" envDefault:"15m"`

	// ClientVersion and HandlerVersion are reported to the coordinator
	// on every ping and persisted in the Client Registry.
	ClientVersion  string `env:"CLIENT_VERSION"  envDefault:"1"`
	HandlerVersion string `env:"HANDLER_VERSION" envDefault:"1"`
}

// Sanitize clamps worker configuration to safe values.
func (c *WorkerConfig) Sanitize() {
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8080"
	}
	c.StoreDir = strings.TrimSpace(c.StoreDir)
	if c.StoreDir == "" {
		c.StoreDir = "./worker-data"
	}
	if c.MinSleep <= 0 {
		c.MinSleep = 240 * time.Second
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 5
	}
	if c.BackoffStep <= 0 {
		c.BackoffStep = 15 * time.Minute
	}
	c.ClientVersion = strings.TrimSpace(c.ClientVersion)
	c.HandlerVersion = strings.TrimSpace(c.HandlerVersion)
}
