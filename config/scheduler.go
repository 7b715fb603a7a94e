package config

import "time"

// SchedulerConfig controls the in-memory Scheduler's beat cadence and
// queue-sizing thresholds. Field names mirror the constants the original
// distributed crawler hard-coded.
type SchedulerConfig struct {
	// Interval is the period between beats: how often one job is
	// promoted from work_queue to ready_queue and stuck/dead peers are
	// swept.
	Interval time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"120s"`

	// SleepDelaySeconds is added on top of a worker's computed next-poll
	// delay before it is told to SLEEP.
	SleepDelaySeconds int `env:"SCHEDULER_SLEEP_DELAY_SECONDS" envDefault:"10"`

	// MaxReadyWorks is the ready_queue length threshold: a beat promotes
	// work only while ready_queue holds at most this many jobs, so the
	// queue can reach MaxReadyWorks+1.
	MaxReadyWorks int `env:"SCHEDULER_MAX_READY_WORKS" envDefault:"4"`

	// MinLivenessIntervals is the number of beat intervals an active job
	// may go without completion before it is considered stuck and
	// recycled back to work_queue.
	MinLivenessIntervals int `env:"SCHEDULER_MIN_LIVENESS_INTERVALS" envDefault:"10"`

	// MinLivenessCycles scales, together with peer count, the grace
	// period before an unresponsive peer is evicted from the liveness
	// map.
	MinLivenessCycles int `env:"SCHEDULER_MIN_LIVENESS_CYCLES" envDefault:"2"`
}

// Sanitize clamps SchedulerConfig values to the smallest sane values so a
// misconfigured environment cannot wedge the beat loop.
func (c *SchedulerConfig) Sanitize() {
	if c.Interval <= 0 {
		c.Interval = 120 * time.Second
	}
	if c.SleepDelaySeconds < 0 {
		c.SleepDelaySeconds = 10
	}
	if c.MaxReadyWorks < 1 {
		c.MaxReadyWorks = 4
	}
	if c.MinLivenessIntervals < 1 {
		c.MinLivenessIntervals = 10
	}
	if c.MinLivenessCycles < 1 {
		c.MinLivenessCycles = 2
	}
}
