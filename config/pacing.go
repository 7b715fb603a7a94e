package config

import "time"

// PacingConfig controls the optional server-side politeness backstop
// (internal/adapters/pacing). It is pure defense-in-depth: disabled, the
// coordinator behaves exactly as spec.md describes.
type PacingConfig struct {
	Enabled bool `env:"ENABLED" envDefault:"false"`

	// MaxJobsPerWindow is the number of jobs for a given action the
	// guard allows to be assigned within Window before it starts
	// answering /ping with an early SLEEP.
	MaxJobsPerWindow int `env:"MAX_JOBS_PER_WINDOW" envDefault:"60"`

	// Window is the length of the fixed time buckets MaxJobsPerWindow is
	// counted in; each bucket's count starts again from zero.
	Window time.Duration `env:"WINDOW" envDefault:"1m"`

	Redis RedisConfig `envPrefix:"REDIS_"`
}

// Sanitize clamps pacing configuration and disables the guard outright if
// it is missing the Redis connection info it needs.
func (c *PacingConfig) Sanitize() {
	if c.MaxJobsPerWindow < 1 {
		c.MaxJobsPerWindow = 60
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	c.Redis.Sanitize()
	if c.Enabled && c.Redis.URI == "" && !c.Redis.UseCluster && !c.Redis.UseSentinel {
		c.Enabled = false
	}
}
