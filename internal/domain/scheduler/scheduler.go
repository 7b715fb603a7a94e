// Package scheduler implements the Scheduler: the in-memory job-state
// machine holding the work, ready, and active queues plus the peer
// liveness map. All mutation is serialized through a single mutex, so
// the Scheduler may be driven concurrently by the beat timer and by
// HTTP handlers without any other synchronization.
package scheduler

import (
	"sync"
	"time"

	"github.com/tmacam/dcrawl/config"
	"github.com/tmacam/dcrawl/internal/apperr"
	"github.com/tmacam/dcrawl/internal/domain/job"
	"github.com/tmacam/dcrawl/internal/protocol"
)

// AdmitFunc vets a candidate action before it is handed out, letting a
// caller (e.g. a server-side pacing guard) veto an assignment without
// the Scheduler knowing anything about why. A nil AdmitFunc always
// admits.
type AdmitFunc func(action string) bool

// Scheduler holds the work_queue, ready_queue, active_queue, and the
// peer liveness map described in the component design, and drives
// their transitions via Ping and Beat.
type Scheduler struct {
	mu  sync.Mutex
	cfg config.SchedulerConfig
	now func() time.Time

	nextBeat time.Time
	peers    map[string]time.Time

	workQueue   []job.Job
	readyQueue  []job.Job
	activeQueue map[job.Job]time.Time
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithClock overrides the Scheduler's notion of "now", for deterministic
// tests. Production callers should leave this unset.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New builds a Scheduler from cfg. The first beat is due immediately.
func New(cfg config.SchedulerConfig, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:         cfg,
		now:         time.Now,
		peers:       make(map[string]time.Time),
		activeQueue: make(map[job.Job]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.nextBeat = s.now()
	return s
}

// AppendWork pushes a job onto the tail of work_queue. Idempotence
// (not re-appending an already-pending job) is the caller's
// responsibility, per the Task Controller contract.
func (s *Scheduler) AppendWork(j job.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workQueue = append(s.workQueue, j)
}

// Ping refreshes peer_id's liveness and returns the Command it should
// act on: a job assignment if ready_queue is non-empty, admit allows
// the job's action (admit may be nil), and justPing is false;
// otherwise a SLEEP command sized to spread pings across the beat
// interval.
func (s *Scheduler) Ping(peerID string, justPing bool, admit AdmitFunc) protocol.Command {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.peers[peerID] = now

	if !justPing {
		if j, ok := s.popReadyFor(admit); ok {
			s.activeQueue[j] = now
			return protocol.Command{Action: j.Action, Params: j.Params}
		}
	}

	nPeers := len(s.peers) - 1
	if nPeers < 0 {
		nPeers = 0
	}
	delay := s.nextBeat.Sub(now) + time.Duration(nPeers)*s.cfg.Interval + time.Duration(s.cfg.SleepDelaySeconds)*time.Second
	seconds := int(delay.Seconds())
	return protocol.Sleep(seconds)
}

// popReadyFor pops the first job off the tail of ready_queue whose
// action admit allows, leaving jobs it rejects in place. With a nil
// admit, it always pops the tail (plain LIFO).
func (s *Scheduler) popReadyFor(admit AdmitFunc) (job.Job, bool) {
	if admit == nil {
		if len(s.readyQueue) == 0 {
			return job.Job{}, false
		}
		last := len(s.readyQueue) - 1
		j := s.readyQueue[last]
		s.readyQueue = s.readyQueue[:last]
		return j, true
	}
	for i := len(s.readyQueue) - 1; i >= 0; i-- {
		j := s.readyQueue[i]
		if !admit(j.Action) {
			continue
		}
		s.readyQueue = append(s.readyQueue[:i], s.readyQueue[i+1:]...)
		return j, true
	}
	return job.Job{}, false
}

// MarkWorkDone removes j from whichever of work_queue, ready_queue, or
// active_queue currently holds it. It fails with apperr.UnknownWork if
// none does.
func (s *Scheduler) MarkWorkDone(j job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.activeQueue[j]; ok {
		delete(s.activeQueue, j)
		return nil
	}
	if idx := indexOf(s.workQueue, j); idx >= 0 {
		s.workQueue = append(s.workQueue[:idx], s.workQueue[idx+1:]...)
		return nil
	}
	if idx := indexOf(s.readyQueue, j); idx >= 0 {
		s.readyQueue = append(s.readyQueue[:idx], s.readyQueue[idx+1:]...)
		return nil
	}
	return apperr.UnknownWork("job %s is not in any scheduler queue", j)
}

// Beat promotes one job from work_queue to ready_queue (if capacity
// allows), recycles active jobs that have gone stale, and evicts dead
// peers. It is driven by a periodic timer (internal/adapters/beat).
func (s *Scheduler) Beat() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.nextBeat = now.Add(s.cfg.Interval)

	if len(s.workQueue) > 0 && len(s.readyQueue) <= s.cfg.MaxReadyWorks {
		j := s.workQueue[0]
		s.workQueue = s.workQueue[1:]
		s.readyQueue = append(s.readyQueue, j)
	}

	livenessThreshold := now.Add(-time.Duration(s.cfg.MinLivenessIntervals) * s.cfg.Interval)
	for j, ts := range s.activeQueue {
		if ts.Before(livenessThreshold) {
			delete(s.activeQueue, j)
			s.workQueue = append([]job.Job{j}, s.workQueue...)
		}
	}

	peerThreshold := now.Add(-time.Duration(s.cfg.MinLivenessCycles) * s.cfg.Interval * time.Duration(len(s.peers)))
	for p, ts := range s.peers {
		if ts.Before(peerThreshold) {
			delete(s.peers, p)
		}
	}
}

// Reschedule changes the beat period. The beat runner is responsible
// for rearming its own ticker after observing the new Interval.
func (s *Scheduler) Reschedule(newInterval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Interval = newInterval
	s.nextBeat = s.now().Add(newInterval)
}

// Interval returns the Scheduler's current beat period.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Interval
}

// Stats is a point-in-time snapshot of queue sizes and peer count, for
// the /manage status view.
type Stats struct {
	WorkQueueLen   int
	ReadyQueueLen  int
	ActiveQueueLen int
	PeerCount      int
	Interval       time.Duration
}

// Stats returns a snapshot of the Scheduler's queues.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		WorkQueueLen:   len(s.workQueue),
		ReadyQueueLen:  len(s.readyQueue),
		ActiveQueueLen: len(s.activeQueue),
		PeerCount:      len(s.peers),
		Interval:       s.cfg.Interval,
	}
}

// Peers reports each known peer's identifier and last-seen time, for
// the Client Registry's rendering of ALIVE/DEAD status.
func (s *Scheduler) Peers() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.peers))
	for p, ts := range s.peers {
		out[p] = ts
	}
	return out
}

func indexOf(jobs []job.Job, target job.Job) int {
	for i, j := range jobs {
		if j == target {
			return i
		}
	}
	return -1
}
