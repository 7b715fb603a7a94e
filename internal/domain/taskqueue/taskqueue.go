// Package taskqueue implements the Task Controller: the per-task-type
// owner of the pending/done/erroneous durable mappings, grounded on
// the teacher's pattern of a small domain type wrapping a store
// dependency and exposing idempotent state-transition methods.
package taskqueue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tmacam/dcrawl/internal/apperr"
	"github.com/tmacam/dcrawl/internal/domain/job"
	"github.com/tmacam/dcrawl/internal/domain/scheduler"
	"github.com/tmacam/dcrawl/internal/observability/metrics"
	"github.com/tmacam/dcrawl/internal/observability/notify"
	"github.com/tmacam/dcrawl/internal/observability/statsd"
	"github.com/tmacam/dcrawl/internal/protocol"
	"github.com/tmacam/dcrawl/internal/store"
)

const doneValue = "1"

// Controller owns the pending, done, and erroneous stores for one task
// type and keeps the Scheduler's work queue in sync with them.
type Controller struct {
	action    string
	pending   store.Store
	done      store.Store
	erroneous store.Store
	sched     *scheduler.Scheduler
	artifacts string

	notify  notify.Sink
	metrics statsd.Sink
}

// Option configures optional Controller collaborators.
type Option func(*Controller)

// WithNotifier makes the Controller report a notify.Sink whenever a
// job is marked erroneous, the way the teacher's job runner reports
// job failures.
func WithNotifier(sink notify.Sink) Option {
	return func(c *Controller) { c.notify = sink }
}

// WithMetrics attaches a statsd.Sink that receives a job.transition
// metric for every AddJob/MarkJobAsDone/MarkJobAsErroneous call.
func WithMetrics(sink statsd.Sink) Option {
	return func(c *Controller) { c.metrics = sink }
}

// New builds a Controller for action, backed by the given stores and
// artifact directory. artifactDir may be empty if this controller
// never receives binary results.
func New(action string, pending, done, erroneous store.Store, sched *scheduler.Scheduler, artifactDir string, opts ...Option) *Controller {
	c := &Controller{
		action:    action,
		pending:   pending,
		done:      done,
		erroneous: erroneous,
		sched:     sched,
		artifacts: artifactDir,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Action returns the task type this controller owns.
func (c *Controller) Action() string { return c.action }

// Recover iterates the pending store and re-registers each key with
// the Scheduler via AppendWork, rebuilding work_queue from disk on
// process startup.
func (c *Controller) Recover(ctx context.Context) error {
	return c.pending.IterateKeys(ctx, func(params string) error {
		j, err := job.New(c.action, params)
		if err != nil {
			return err
		}
		c.sched.AppendWork(j)
		return nil
	})
}

// AddJob registers params as a new unit of work, unless it is already
// known as pending or done. Idempotent.
func (c *Controller) AddJob(ctx context.Context, params string) (err error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() { c.emit("add_job", result, start, err) }()

	if done, derr := c.done.Contains(ctx, params); derr != nil {
		result, err = metrics.ResultError, fmt.Errorf("taskqueue: checking done for %s: %w", params, derr)
		return err
	} else if done {
		result = metrics.ResultNoop
		return nil
	}
	if pending, perr := c.pending.Contains(ctx, params); perr != nil {
		result, err = metrics.ResultError, fmt.Errorf("taskqueue: checking pending for %s: %w", params, perr)
		return err
	} else if pending {
		result = metrics.ResultNoop
		return nil
	}

	if serr := c.pending.Set(ctx, params, doneValue); serr != nil {
		result, err = metrics.ResultError, fmt.Errorf("taskqueue: persisting pending %s: %w", params, serr)
		return err
	}

	j, jerr := job.New(c.action, params)
	if jerr != nil {
		result, err = metrics.ResultError, jerr
		return err
	}
	c.sched.AppendWork(j)
	return nil
}

// MarkJobAsDone records params as finished, durably, before removing
// it from the Scheduler's queues. A prior UnknownWork from the
// Scheduler (the job was already finalized) is swallowed: repeated
// uploads of the same result are not an error.
func (c *Controller) MarkJobAsDone(ctx context.Context, params string) (err error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() { c.emit("mark_done", result, start, err) }()

	if serr := c.done.Set(ctx, params, doneValue); serr != nil {
		result, err = metrics.ResultError, fmt.Errorf("taskqueue: persisting done %s: %w", params, serr)
		return err
	}
	if derr := c.pending.Delete(ctx, params); derr != nil {
		result, err = metrics.ResultError, fmt.Errorf("taskqueue: removing pending %s: %w", params, derr)
		return err
	}

	j, jerr := job.New(c.action, params)
	if jerr != nil {
		result, err = metrics.ResultError, jerr
		return err
	}
	if werr := c.sched.MarkWorkDone(j); werr != nil && !apperr.IsUnknownWork(werr) {
		result, err = metrics.ResultError, werr
		return err
	}
	return nil
}

// MarkJobAsErroneous fails a job permanently. params must currently be
// pending, else it fails with apperr.UnknownJob. A configured notify
// notify.Sink is told about the failure, the way the teacher's job
// runner reports job failures to its alert sinks.
func (c *Controller) MarkJobAsErroneous(ctx context.Context, params string) (err error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() { c.emit("mark_erroneous", result, start, err) }()

	pending, cerr := c.pending.Contains(ctx, params)
	if cerr != nil {
		result, err = metrics.ResultError, fmt.Errorf("taskqueue: checking pending for %s: %w", params, cerr)
		return err
	}
	if !pending {
		result, err = metrics.ResultError, apperr.UnknownJob("job %s %s is not pending", c.action, params)
		return err
	}

	if serr := c.erroneous.Set(ctx, params, doneValue); serr != nil {
		result, err = metrics.ResultError, fmt.Errorf("taskqueue: persisting erroneous %s: %w", params, serr)
		return err
	}
	if derr := c.pending.Delete(ctx, params); derr != nil {
		result, err = metrics.ResultError, fmt.Errorf("taskqueue: removing pending %s: %w", params, derr)
		return err
	}

	j, jerr := job.New(c.action, params)
	if jerr != nil {
		result, err = metrics.ResultError, jerr
		return err
	}
	if werr := c.sched.MarkWorkDone(j); werr != nil && !apperr.IsUnknownWork(werr) {
		result, err = metrics.ResultError, werr
		return err
	}

	if c.notify != nil {
		c.notify.SendJobFailure(ctx, notify.JobFailurePayload{
			Action:     c.action,
			Params:     params,
			Severity:   notify.SeverityCritical,
			OccurredAt: start,
		})
	}
	return nil
}

func (c *Controller) emit(transition, result string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	metrics.EmitJobLifecycle(c.metrics, metrics.JobMetric{
		Action:     c.action,
		Transition: transition,
		Result:     result,
		Duration:   time.Since(start),
		Err:        err,
	})
}

// HandleResult persists upload's payload to the artifact directory,
// marks params done, and returns the Command the uploading peer
// should act on next (a just-ping Scheduler.Ping, per the upload
// protocol's piggyback-next-command convention).
func (c *Controller) HandleResult(ctx context.Context, peerID, params string, upload protocol.ResultUpload) (protocol.Command, error) {
	if c.artifacts != "" && len(upload.Data) > 0 {
		if err := c.writeArtifact(params, upload.Data); err != nil {
			return protocol.Command{}, err
		}
	}
	if err := c.MarkJobAsDone(ctx, params); err != nil {
		return protocol.Command{}, err
	}
	return c.sched.Ping(peerID, true, nil), nil
}

// writeArtifact writes data whole-file under the controller's artifact
// directory, using a filesystem-safe derivation of params (path
// separators replaced by "_") as the filename.
func (c *Controller) writeArtifact(params string, data []byte) error {
	name := strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(params)
	path := filepath.Join(c.artifacts, name)
	if err := os.MkdirAll(c.artifacts, 0o755); err != nil {
		return fmt.Errorf("taskqueue: creating artifact dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("taskqueue: writing artifact %s: %w", name, err)
	}
	return nil
}
