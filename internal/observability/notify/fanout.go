package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Registration pairs a sink with a human-readable name for logging.
type Registration struct {
	Name string
	Sink Sink
}

// Fanout dispatches a job failure to every registered sink concurrently,
// the way the teacher's failure notifier service fans alerts out to
// Slack and PagerDuty.
type Fanout struct {
	logger *slog.Logger
	sinks  []Registration
}

// NewFanout builds a Fanout from regs, dropping any nil sinks.
func NewFanout(logger *slog.Logger, regs ...Registration) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	sinks := make([]Registration, 0, len(regs))
	for _, r := range regs {
		if r.Sink == nil {
			continue
		}
		if r.Name == "" {
			r.Name = "sink"
		}
		sinks = append(sinks, r)
	}
	return &Fanout{logger: logger, sinks: sinks}
}

// Enabled reports whether the fanout has any sink to dispatch to.
func (f *Fanout) Enabled() bool {
	return f != nil && len(f.sinks) > 0
}

// SendJobFailure implements Sink by fanning payload out to every
// registered sink and waiting for all of them to finish. Delivery
// errors are logged, never returned: a broken alert channel must not
// block the Task Controller transition that triggered it.
func (f *Fanout) SendJobFailure(ctx context.Context, payload JobFailurePayload) error {
	if f == nil || len(f.sinks) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	for _, entry := range f.sinks {
		wg.Add(1)
		go func(entry Registration) {
			defer wg.Done()
			if err := entry.Sink.SendJobFailure(ctx, payload); err != nil {
				f.logger.Error("notification delivery failed",
					"sink", entry.Name,
					"action", payload.Action,
					"params", payload.Params,
					"error", err,
				)
			}
		}(entry)
	}
	wg.Wait()
	return nil
}

var _ Sink = (*Fanout)(nil)
