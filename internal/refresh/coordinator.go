// Package refresh implements the scheduling state machine that keeps
// the host's DNS record published: a periodic timer and the
// connectivity-restored notification both funnel into one debounced,
// mutually-exclusive update attempt pipeline.
//
// The tricky part is re-entrancy: the periodic path's own connection
// probe can fire the connectivity-restored callback while the probe is
// still in flight, which would otherwise start a second, concurrent
// update attempt. The coordinator's state value makes that overlap a
// no-op instead.
package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"gitlab.bluewillows.net/root/dyndns/internal/directory"
	"gitlab.bluewillows.net/root/dyndns/internal/metrics"
)

// DebounceInterval is the minimum spacing between two update attempts,
// regardless of trigger source. This is fixed policy, not a tunable.
const DebounceInterval = 60 * time.Second

// DefaultInterval is the default periodic refresh interval.
const DefaultInterval = 24 * time.Hour

// state is the coordinator's scheduling state. Transitions happen only
// inside the coordinator, under its lock, which makes overlapping
// probes and attempts unrepresentable.
type state int

const (
	stateIdle state = iota
	stateProbing
	stateAttempting
)

// Prober establishes a directory connection as a pre-flight check,
// reporting directory.ErrOffline when the server is unreachable.
type Prober interface {
	Connect(ctx context.Context) error
}

// Executor performs one DNS update attempt.
type Executor interface {
	Update(ctx context.Context) error
}

// Notifier registers a callback to run each time the directory
// backend transitions from offline to online.
type Notifier interface {
	OnOnline(f func())
}

// Coordinator owns the refresh scheduling state and drives both entry
// points (periodic timer, connectivity restored) into a single attempt
// pipeline.
type Coordinator struct {
	prober   Prober
	exec     Executor
	interval time.Duration
	clk      clock.Clock
	timer    Timer
	logger   *slog.Logger

	mu          sync.Mutex
	st          state
	lastAttempt time.Time
	attempted   bool
	ctx         context.Context
	cancel      context.CancelFunc
}

// Option is a functional option for configuring the Coordinator.
type Option func(*Coordinator)

// WithInterval sets the periodic refresh interval. Zero disables the
// periodic timer; online notifications still trigger updates.
func WithInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.interval = d
		}
	}
}

// WithClock sets the clock used for debounce pacing and timer arming.
func WithClock(clk clock.Clock) Option {
	return func(c *Coordinator) {
		if clk != nil {
			c.clk = clk
		}
	}
}

// WithTimer replaces the periodic timer implementation.
func WithTimer(t Timer) Option {
	return func(c *Coordinator) {
		if t != nil {
			c.timer = t
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Coordinator and registers its connectivity-restored
// entry point with the notifier. All three collaborators are required;
// a missing update executor means the host has no resolver configured
// and setup must abort.
func New(prober Prober, exec Executor, notifier Notifier, opts ...Option) (*Coordinator, error) {
	if exec == nil {
		return nil, errors.New("refresh: update executor must be configured for dynamic DNS updates")
	}
	if prober == nil {
		return nil, errors.New("refresh: connection prober is required")
	}
	if notifier == nil {
		return nil, errors.New("refresh: connectivity notifier is required")
	}

	c := &Coordinator{
		prober:   prober,
		exec:     exec,
		interval: DefaultInterval,
		clk:      clock.New(),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.timer == nil {
		c.timer = NewScheduler(c.clk, c.HandleTimer)
	}

	notifier.OnOnline(c.HandleOnline)

	return c, nil
}

// Start arms the first periodic timer. Entry points are no-ops until
// Start is called.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.ctx != nil {
		c.mu.Unlock()
		return errors.New("refresh: coordinator already started")
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	if c.interval > 0 {
		c.timer.Arm(c.interval)
		c.logger.Info("periodic DNS updates enabled",
			slog.Duration("interval", c.interval),
		)
	} else {
		c.logger.Info("periodic DNS updates disabled, updating on connectivity changes only")
	}

	return nil
}

// Stop cancels the periodic timer. An in-flight attempt is abandoned,
// not unwound.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.timer.Stop()
}

// HandleOnline is the connectivity-restored entry point. The offline
// probe outcome leaves the timer disarmed, so the periodic cycle is
// revived here before the attempt runs. The debounce and state guards
// make the attempt safe to invoke at any moment, including mid-probe.
func (c *Coordinator) HandleOnline() {
	ctx := c.runCtx()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	c.rearm()
	c.attempt(ctx)
}

// HandleTimer is the periodic entry point: probe the directory
// connection first, then decide whether to attempt and whether the
// cycle continues.
func (c *Coordinator) HandleTimer() {
	ctx := c.runCtx()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	c.mu.Lock()
	if c.st != stateIdle {
		// An attempt triggered by the other entry point is still in
		// flight. Keep the cycle alive and let it finish.
		c.mu.Unlock()
		c.rearm()
		return
	}
	c.st = stateProbing
	c.mu.Unlock()

	err := c.prober.Connect(ctx)

	c.mu.Lock()
	c.st = stateIdle
	c.mu.Unlock()

	switch {
	case errors.Is(err, directory.ErrOffline):
		metrics.RecordProbe(metrics.OutcomeOffline)
		c.logger.Debug("no directory server is available, dynamic DNS update skipped in offline mode")
		// No re-arm: the next timer is scheduled when the backend comes
		// back online and HandleOnline runs.
	case err != nil:
		metrics.RecordProbe(metrics.OutcomeFailure)
		c.logger.Warn("failed to connect to directory server",
			slog.String("error", err.Error()),
		)
		c.rearm()
	default:
		metrics.RecordProbe(metrics.OutcomeSuccess)
		c.rearm()
		c.attempt(ctx)
	}
}

// attempt is the shared decision function both entry points converge
// on. It is a deliberate no-op while a probe or another attempt is in
// flight, or when the last attempt started less than DebounceInterval
// ago.
func (c *Coordinator) attempt(ctx context.Context) {
	now := c.clk.Now()

	c.mu.Lock()
	if c.st != stateIdle || (c.attempted && now.Sub(c.lastAttempt) < DebounceInterval) {
		c.mu.Unlock()
		c.logger.Debug("last update ran recently or a probe is in progress, not attempting another update")
		return
	}
	c.st = stateAttempting
	// Recorded at attempt start, before the outcome is known: a failing
	// attempt still paces the next one. The periodic cycle is the only
	// retry path.
	c.lastAttempt = now
	c.attempted = true
	c.mu.Unlock()

	start := time.Now()
	err := c.exec.Update(ctx)
	elapsed := time.Since(start)

	c.mu.Lock()
	c.st = stateIdle
	c.mu.Unlock()

	if err != nil {
		metrics.RecordAttempt(metrics.OutcomeFailure, elapsed)
		c.logger.Error("dynamic DNS update failed",
			slog.String("error", err.Error()),
		)
		return
	}

	metrics.RecordAttempt(metrics.OutcomeSuccess, elapsed)
	c.logger.Info("dynamic DNS update finished",
		slog.Duration("duration", elapsed),
	)
}

func (c *Coordinator) rearm() {
	if c.interval > 0 {
		c.timer.Arm(c.interval)
	}
}

func (c *Coordinator) runCtx() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}
