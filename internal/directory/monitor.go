package directory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultRecoveryInterval is how often the monitor re-probes the
// directory while it is offline.
const DefaultRecoveryInterval = 30 * time.Second

// Prober establishes a directory connection, reporting ErrOffline when
// the server is unreachable.
type Prober interface {
	Connect(ctx context.Context) error
}

// Monitor wraps a Prober and tracks the backend's offline/online state
// from the outcomes of Connect calls. Registered callbacks run exactly
// once each time the backend transitions from offline to online; they
// are dispatched on their own goroutine and never block the caller.
//
// The monitor starts offline, so the first successful Connect fires the
// callbacks. This means establishing a connection can itself trigger a
// connectivity-restored notification while the connect caller is still
// running; the refresh coordinator's guards depend on surviving that.
//
// While offline the monitor probes on its own: the periodic refresh
// cycle stops calling Connect during an outage, so without these
// recovery probes the offline-to-online transition would never be
// observed and the daemon would stay silent after the server returned.
type Monitor struct {
	prober Prober
	logger *slog.Logger
	clk    clock.Clock
	retry  time.Duration

	mu         sync.Mutex
	online     bool
	recovering bool
	ctx        context.Context
	callbacks  []func()
}

// MonitorOption is a functional option for configuring the Monitor.
type MonitorOption func(*Monitor)

// WithMonitorLogger sets a custom logger.
func WithMonitorLogger(logger *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRecoveryInterval sets the spacing of the offline recovery probes.
func WithRecoveryInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.retry = d
		}
	}
}

// NewMonitor creates a Monitor around the given prober.
func NewMonitor(prober Prober, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		prober: prober,
		logger: slog.Default(),
		clk:    clock.New(),
		retry:  DefaultRecoveryInterval,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start enables the offline recovery probes. Offline outcomes observed
// before Start do not spawn a recovery loop; ctx cancellation stops any
// running loop.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx = ctx
}

// OnOnline registers f to run on each offline-to-online transition.
func (m *Monitor) OnOnline(f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, f)
}

// Online reports the last observed connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Connect delegates to the prober and updates the connectivity state
// from its outcome. The prober's result is returned unchanged.
func (m *Monitor) Connect(ctx context.Context) error {
	err := m.prober.Connect(ctx)
	switch {
	case err == nil:
		m.markOnline()
	case errors.Is(err, ErrOffline):
		m.markOffline()
	}
	// Other errors say nothing about reachability; state is unchanged.
	return err
}

func (m *Monitor) markOnline() {
	m.mu.Lock()
	wasOnline := m.online
	m.online = true
	cbs := make([]func(), len(m.callbacks))
	copy(cbs, m.callbacks)
	m.mu.Unlock()

	if wasOnline {
		return
	}

	m.logger.Info("directory backend is online")
	go func() {
		for _, f := range cbs {
			f()
		}
	}()
}

func (m *Monitor) markOffline() {
	m.mu.Lock()
	wasOnline := m.online
	m.online = false
	ctx := m.ctx
	spawn := ctx != nil && ctx.Err() == nil && !m.recovering
	if spawn {
		m.recovering = true
	}
	m.mu.Unlock()

	if wasOnline {
		m.logger.Info("directory backend went offline")
	}
	if spawn {
		go m.recover(ctx)
	}
}

// recover probes the directory until it answers again, then fires the
// online transition. At most one recovery loop runs at a time.
func (m *Monitor) recover(ctx context.Context) {
	defer func() {
		m.mu.Lock()
		m.recovering = false
		m.mu.Unlock()
	}()

	m.logger.Debug("probing for directory recovery",
		slog.Duration("interval", m.retry),
	)

	t := m.clk.Timer(m.retry)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		err := m.prober.Connect(ctx)
		switch {
		case err == nil:
			m.markOnline()
			return
		case errors.Is(err, ErrOffline):
			// Still down, keep probing.
		default:
			m.logger.Debug("recovery probe failed",
				slog.String("error", err.Error()),
			)
		}

		t.Reset(m.retry)
	}
}
