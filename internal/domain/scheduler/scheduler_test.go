package scheduler

import (
	"testing"
	"time"

	"github.com/tmacam/dcrawl/config"
	"github.com/tmacam/dcrawl/internal/apperr"
	"github.com/tmacam/dcrawl/internal/domain/job"
)

func newTestScheduler(t *testing.T, clock *fakeClock) *Scheduler {
	t.Helper()
	cfg := config.SchedulerConfig{
		Interval:              time.Second,
		SleepDelaySeconds:     10,
		MaxReadyWorks:         4,
		MinLivenessIntervals:  10,
		MinLivenessCycles:     2,
	}
	return New(cfg, WithClock(clock.Now))
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func mustJob(t *testing.T, action, params string) job.Job {
	t.Helper()
	j, err := job.New(action, params)
	if err != nil {
		t.Fatalf("job.New(%q, %q): %v", action, params, err)
	}
	return j
}

// S1: basic assignment, LIFO pop, done not pending.
func TestS1BasicAssignment(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s := newTestScheduler(t, clock)

	a := mustJob(t, "ARTICLE", "A")
	b := mustJob(t, "ARTICLE", "B")
	s.AppendWork(a)
	s.AppendWork(b)

	clock.Advance(time.Second)
	s.Beat()
	clock.Advance(time.Second)
	s.Beat()

	cmd := s.Ping("P1", false, nil)
	if cmd.Action != "ARTICLE" || (cmd.Params != "A" && cmd.Params != "B") {
		t.Fatalf("expected assignment of A or B, got %+v", cmd)
	}

	got := mustJob(t, cmd.Action, cmd.Params)
	if err := s.MarkWorkDone(got); err != nil {
		t.Fatalf("MarkWorkDone: %v", err)
	}

	sleepCmd := s.Ping("P1", true, nil)
	if !sleepCmd.IsSleep() {
		t.Fatalf("expected SLEEP after just_ping, got %+v", sleepCmd)
	}
	n, err := sleepCmd.SleepSeconds()
	if err != nil {
		t.Fatalf("SleepSeconds: %v", err)
	}
	if n < 10 {
		t.Fatalf("expected n >= SLEEP_DELAY(10), got %d", n)
	}
}

// S2: stuck recovery.
func TestS2StuckRecovery(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s := newTestScheduler(t, clock)

	x := mustJob(t, "T", "X")
	s.AppendWork(x)
	clock.Advance(time.Second)
	s.Beat()

	cmd := s.Ping("P1", false, nil)
	if cmd.Action != "T" || cmd.Params != "X" {
		t.Fatalf("expected T X, got %+v", cmd)
	}
	// Never report; let it go stale: MIN_LIVENESS_INTERVALS(10) * interval(1s) + one more beat.
	clock.Advance(11 * time.Second)
	s.Beat()
	// That beat promoted before it recycled, so X is back in work_queue;
	// the next beat promotes it to ready_queue.
	clock.Advance(time.Second)
	s.Beat()

	cmd2 := s.Ping("P2", false, nil)
	if cmd2.Action != "T" || cmd2.Params != "X" {
		t.Fatalf("expected recycled T X reassigned, got %+v", cmd2)
	}
}

// S4: duplicate upload is harmless.
func TestS4DuplicateUpload(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s := newTestScheduler(t, clock)

	z := mustJob(t, "T", "Z")
	s.AppendWork(z)
	clock.Advance(time.Second)
	s.Beat()
	_ = s.Ping("P1", false, nil)

	if err := s.MarkWorkDone(z); err != nil {
		t.Fatalf("first MarkWorkDone: %v", err)
	}
	err := s.MarkWorkDone(z)
	if !apperr.IsUnknownWork(err) {
		t.Fatalf("expected UnknownWork on duplicate, got %v", err)
	}
}

// Invariant 5: |ready_queue| <= MAX_READY_WORKS + 1 across reachable states.
func TestReadyQueueBounded(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s := newTestScheduler(t, clock)

	for i := 0; i < 20; i++ {
		s.AppendWork(mustJob(t, "T", string(rune('a'+i))))
	}
	for i := 0; i < 20; i++ {
		clock.Advance(time.Second)
		s.Beat()
		if got := s.Stats().ReadyQueueLen; got > s.cfg.MaxReadyWorks+1 {
			t.Fatalf("ready_queue exceeded bound: %d", got)
		}
	}
}

// Invariant 7: SLEEP suggestion is never negative.
func TestSleepNeverNegativeUnderPressure(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s := newTestScheduler(t, clock)

	clock.Advance(10 * time.Second) // now is well past nextBeat
	cmd := s.Ping("P1", false, nil)
	n, err := cmd.SleepSeconds()
	if err != nil {
		t.Fatalf("SleepSeconds: %v", err)
	}
	if n < 0 {
		t.Fatalf("sleep seconds went negative: %d", n)
	}
}

func TestPingGuardedAdmitRejectsAction(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s := newTestScheduler(t, clock)

	s.AppendWork(mustJob(t, "ARTICLE", "A"))
	clock.Advance(time.Second)
	s.Beat()

	denyAll := func(string) bool { return false }
	cmd := s.Ping("P1", false, denyAll)
	if !cmd.IsSleep() {
		t.Fatalf("expected SLEEP when admit rejects every action, got %+v", cmd)
	}

	cmd2 := s.Ping("P1", false, nil)
	if cmd2.Action != "ARTICLE" {
		t.Fatalf("expected job still available once admit is lifted, got %+v", cmd2)
	}
}

func TestMarkWorkDoneUnknown(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s := newTestScheduler(t, clock)
	err := s.MarkWorkDone(mustJob(t, "T", "ghost"))
	if !apperr.IsUnknownWork(err) {
		t.Fatalf("expected UnknownWork, got %v", err)
	}
}
