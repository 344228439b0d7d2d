package refresh

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Timer arranges one future invocation of a callback. Re-arming before
// the callback fires replaces the pending arming; timers never stack.
type Timer interface {
	Arm(d time.Duration)
	Stop()
}

// Scheduler is the clock-backed Timer implementation.
type Scheduler struct {
	clk clock.Clock
	fn  func()

	mu      sync.Mutex
	timer   *clock.Timer
	stopped bool
}

// NewScheduler creates a Scheduler that invokes fn when the armed
// interval elapses.
func NewScheduler(clk clock.Clock, fn func()) *Scheduler {
	return &Scheduler{clk: clk, fn: fn}
}

// Arm schedules fn to run after d. A pending arming is replaced; the
// last call wins.
func (s *Scheduler) Arm(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.clk.AfterFunc(d, s.fn)
}

// Stop cancels any pending arming. The scheduler accepts no further
// Arm calls afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
