package config

// AppConfig is the top-level configuration struct composed of the
// domain-specific configuration structs defined alongside it in this
// package.
//
// Configuration is loaded from environment variables using
// github.com/caarlos0/env. See the individual files in this package for
// the environment variables each sub-config recognizes:
//   - scheduler.go: beat interval and queue-sizing knobs
//   - store.go: durable store backend selection (fs/bolt/postgres)
//   - http.go: coordinator HTTP listener and admin token
//   - worker.go: worker agent identity and polling behavior
//   - pacing.go: server-side politeness backstop
//   - observability.go: metrics and failure-notification fan-out
type AppConfig struct {
	Scheduler     SchedulerConfig
	Store         StoreConfig
	HTTP          HTTPConfig
	Worker        WorkerConfig `envPrefix:"WORKER_"`
	Pacing        PacingConfig `envPrefix:"PACING_"`
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to every sub-config. Call this once after
// loading configuration from the environment.
func (c *AppConfig) Sanitize() {
	c.Scheduler.Sanitize()
	c.Store.Sanitize()
	c.HTTP.Sanitize()
	c.Worker.Sanitize()
	c.Pacing.Sanitize()
	c.Observability.Sanitize()
}
