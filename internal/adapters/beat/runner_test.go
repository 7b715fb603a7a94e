package beat

import (
	"context"
	"testing"
	"time"

	"github.com/tmacam/dcrawl/config"
	"github.com/tmacam/dcrawl/internal/domain/job"
	"github.com/tmacam/dcrawl/internal/domain/scheduler"
)

func TestRunnerBeatsUntilCancelled(t *testing.T) {
	sched := scheduler.New(config.SchedulerConfig{
		Interval:             10 * time.Millisecond,
		SleepDelaySeconds:    1,
		MaxReadyWorks:        4,
		MinLivenessIntervals: 10,
		MinLivenessCycles:    2,
	})
	j, err := job.New("ARTICLE", "p1")
	if err != nil {
		t.Fatalf("job.New: %v", err)
	}
	sched.AppendWork(j)

	runner := NewRunner(sched, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	if err := runner.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sched.Stats().ReadyQueueLen == 0 {
		t.Fatalf("expected at least one beat to have promoted work to ready_queue")
	}
}
