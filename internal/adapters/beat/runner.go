// Package beat drives the Scheduler's periodic beat on a ticker, modeled
// on the teacher's internal/adapters/scheduler.Runner: a time.Ticker
// loop that respects context cancellation and emits per-tick metrics.
package beat

import (
	"context"
	"log/slog"
	"time"

	"github.com/tmacam/dcrawl/internal/domain/scheduler"
	"github.com/tmacam/dcrawl/internal/observability/statsd"
)

// Runner ticks a Scheduler's Beat at its configured interval until its
// context is cancelled.
type Runner struct {
	sched  *scheduler.Scheduler
	logger *slog.Logger
	metric statsd.Sink
}

// NewRunner builds a Runner for sched. logger and metric may be nil.
func NewRunner(sched *scheduler.Scheduler, logger *slog.Logger, metric statsd.Sink) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{sched: sched, logger: logger, metric: metric}
}

// Run beats sched every sched.Interval() until ctx is cancelled. It
// re-reads the interval after every tick, so a /manage reschedule
// takes effect on the ticker's next rearm.
func (r *Runner) Run(ctx context.Context) error {
	interval := r.sched.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("beat runner starting", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("beat runner stopping", "reason", ctx.Err())
			return nil

		case tickTime := <-ticker.C:
			start := time.Now()
			r.sched.Beat()
			r.emitTickMetrics(time.Since(start))
			_ = tickTime

			if next := r.sched.Interval(); next != interval {
				interval = next
				ticker.Reset(interval)
				r.logger.Info("beat runner rearmed", "interval", interval)
			}
		}
	}
}

func (r *Runner) emitTickMetrics(elapsed time.Duration) {
	if r.metric == nil {
		return
	}
	stats := r.sched.Stats()
	tags := map[string]string{"result": "success"}
	r.metric.Count("scheduler.beat", 1, tags)
	r.metric.Timing("scheduler.beat_duration", elapsed, tags)
	r.metric.Gauge("scheduler.work_queue_len", float64(stats.WorkQueueLen), nil)
	r.metric.Gauge("scheduler.ready_queue_len", float64(stats.ReadyQueueLen), nil)
	r.metric.Gauge("scheduler.active_queue_len", float64(stats.ActiveQueueLen), nil)
	r.metric.Gauge("scheduler.peer_count", float64(stats.PeerCount), nil)
}
