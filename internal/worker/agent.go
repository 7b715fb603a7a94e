// Package worker implements the Worker Agent: a long-running polling
// loop that maintains a stable identity, asks the Coordinator Service
// for work, dispatches commands to locally-registered Task Handlers,
// and enforces a minimum inter-request sleep client-side regardless of
// what the server asks for.
//
// The loop is modeled as an explicit state machine
// (IDLE/PINGING/HANDLING/BACKOFF/DEAD) rather than a catch-all
// exception-driven retry, per the redesign of the legacy client's
// single giant try/except around the whole run loop.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmacam/dcrawl/config"
	"github.com/tmacam/dcrawl/internal/apperr"
	"github.com/tmacam/dcrawl/internal/protocol"
)

// State is one state of the Worker Agent's main loop.
type State int

const (
	StateIdle State = iota
	StatePinging
	StateHandling
	StateBackoff
	StateDead
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StatePinging:
		return "PINGING"
	case StateHandling:
		return "HANDLING"
	case StateBackoff:
		return "BACKOFF"
	case StateDead:
		return "DEAD"
	default:
		return "UNKNOWN"
	}
}

// Agent runs the Worker Agent's main loop.
type Agent struct {
	cfg       config.WorkerConfig
	transport *Transport
	handlers  map[string]TaskHandler
	logger    *slog.Logger

	state      State
	attempts   int
	sleepDelay time.Duration

	sleepFn func(context.Context, time.Duration)
}

// New builds an Agent for the given identity. Register task handlers
// with Register before calling Run.
func New(cfg config.WorkerConfig, peerID, hostname string, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		cfg:       cfg,
		transport: NewTransport(cfg, peerID, hostname),
		handlers:  make(map[string]TaskHandler),
		logger:    logger,
		state:     StateIdle,
		sleepFn:   ctxSleep,
	}
}

// Register binds a Task Handler to an action name. SLEEP is handled
// internally and cannot be overridden.
func (a *Agent) Register(action string, h TaskHandler) {
	if action == protocol.SleepAction {
		return
	}
	a.handlers[action] = h
}

// State reports the Agent's current state, for status reporting and
// tests.
func (a *Agent) State() State {
	return a.state
}

// Run drives the main loop until ctx is cancelled or the Agent gives
// up once consecutive transport failures exceed MaxAttempts (on
// failure MaxAttempts+1), entering StateDead and returning a non-nil
// error.
func (a *Agent) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.cycle(ctx); err != nil {
			return err
		}
	}
}

// cycle runs one ping-and-dispatch round.
func (a *Agent) cycle(ctx context.Context) error {
	a.state = StatePinging
	cmd, err := a.transport.Ping(ctx)
	if err != nil {
		return a.backoff(ctx, "ping", err)
	}
	a.resetBackoff()
	return a.dispatch(ctx, cmd, false)
}

// dispatch executes cmd. When doSleep is true (re-entry after a task
// upload or failure report), any non-SLEEP command or a SLEEP shorter
// than MinSleep is forced to SLEEP for at least MinSleep — the clamp
// applies to the parsed action token, never to the raw command body.
func (a *Agent) dispatch(ctx context.Context, cmd protocol.Command, doSleep bool) error {
	if doSleep {
		cmd = a.clampToMinSleep(cmd)
	}

	if cmd.IsSleep() {
		return a.sleep(ctx, cmd)
	}

	handler, ok := a.handlers[cmd.Action]
	if !ok {
		a.logger.Error("no handler registered for action", "action", cmd.Action)
		a.state = StateIdle
		return nil
	}

	a.state = StateHandling
	result, err := handler.Handle(ctx, cmd.Params)
	if err != nil {
		if apperr.IsHandlerPermanentFailure(err) {
			return a.reportFailure(ctx, cmd.Action, cmd.Params)
		}
		a.logger.Error("task handler failed", "action", cmd.Action, "params", cmd.Params, "error", err)
		a.state = StateIdle
		return nil
	}

	respCmd, err := a.transport.Upload(ctx, cmd.Action, cmd.Params, result)
	if err != nil {
		return a.backoff(ctx, "upload", err)
	}
	a.resetBackoff()
	return a.dispatch(ctx, respCmd, true)
}

func (a *Agent) reportFailure(ctx context.Context, action, params string) error {
	a.logger.Warn("task handler reported permanent failure", "action", action, "params", params)
	respCmd, err := a.transport.ReportFailure(ctx, action, params)
	if err != nil {
		return a.backoff(ctx, "report-failure", err)
	}
	a.resetBackoff()
	return a.dispatch(ctx, respCmd, true)
}

func (a *Agent) clampToMinSleep(cmd protocol.Command) protocol.Command {
	minSeconds := int(a.cfg.MinSleep / time.Second)
	if !cmd.IsSleep() {
		return protocol.Sleep(minSeconds)
	}
	seconds, err := cmd.SleepSeconds()
	if err != nil || seconds < minSeconds {
		return protocol.Sleep(minSeconds)
	}
	return cmd
}

func (a *Agent) sleep(ctx context.Context, cmd protocol.Command) error {
	seconds, err := cmd.SleepSeconds()
	if err != nil {
		seconds = int(a.cfg.MinSleep / time.Second)
	}
	a.state = StateIdle
	a.logger.Debug("sleeping", "seconds", seconds)
	a.sleepFn(ctx, time.Duration(seconds)*time.Second)
	return nil
}

// backoff applies the BACKOFF state: a cumulative +BackoffStep delay
// per consecutive transport failure, giving up once the count of
// consecutive failures exceeds MaxAttempts.
func (a *Agent) backoff(ctx context.Context, op string, err error) error {
	a.state = StateBackoff
	a.attempts++
	a.logger.Warn("transport failure", "op", op, "attempt", a.attempts, "error", err)

	if a.attempts > a.cfg.MaxAttempts {
		a.state = StateDead
		return fmt.Errorf("giving up after %d consecutive failures: %w", a.attempts, err)
	}

	a.sleepDelay += a.cfg.BackoffStep
	a.sleepFn(ctx, a.sleepDelay)
	return nil
}

func (a *Agent) resetBackoff() {
	a.attempts = 0
	a.sleepDelay = 0
}

func ctxSleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
