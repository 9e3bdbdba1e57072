// Package scheduler implements the activity flag and the repeating window
// evaluation that decides when the activity callback fires.
package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Veraticus/not-idle/pkg/interfaces"
	"github.com/Veraticus/not-idle/pkg/telemetry"
)

// Policy selects when the callback fires relative to the window boundary.
type Policy int

const (
	// Periodic fires at the first boundary after a window with activity.
	Periodic Policy = iota
	// Immediate fires at the first event of a window.
	Immediate
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case Periodic:
		return "periodic"
	case Immediate:
		return "immediate"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ErrRunning is returned by Start on a scheduler that is already armed.
var ErrRunning = errors.New("scheduler already running")

// Scheduler tracks whether activity happened during the current window and
// invokes the callback at most once per window.
//
// The callback runs with the scheduler lock held. It must not call Stop or
// emit watched events synchronously.
type Scheduler struct {
	policy   Policy
	callback func()
	logger   zerolog.Logger
	metrics  telemetry.Collector

	mu       sync.Mutex
	running  bool
	active   bool
	reported bool
	timer    interfaces.Timer
	handle   interfaces.TimerHandle
}

// Ensure Scheduler implements Handler
var _ interfaces.Handler = (*Scheduler)(nil)

// New creates a stopped scheduler. A nil callback is allowed.
func New(policy Policy, callback func(), logger zerolog.Logger, metrics telemetry.Collector) *Scheduler {
	if metrics == nil {
		metrics = telemetry.Noop()
	}
	return &Scheduler{
		policy:   policy,
		callback: callback,
		logger:   logger,
		metrics:  metrics,
	}
}

// Policy returns the scheduler's policy.
func (s *Scheduler) Policy() Policy {
	return s.policy
}

// Start clears the activity state and arms a repeating tick every period.
func (s *Scheduler) Start(timer interfaces.Timer, period time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrRunning
	}

	s.active = false
	s.reported = false

	handle, err := timer.ScheduleRepeating(period, s.Tick)
	if err != nil {
		return err
	}
	s.timer = timer
	s.handle = handle
	s.running = true

	s.logger.Debug().
		Str("policy", s.policy.String()).
		Dur("period", period).
		Msg("activity scheduler armed")
	return nil
}

// HandleEvent records activity for the current window.
func (s *Scheduler) HandleEvent(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.metrics.IncEvent()

	first := !s.active
	s.active = true

	if s.policy == Immediate && first {
		s.reported = true
		s.fire(telemetry.TriggerImmediate)
	}
}

// Tick evaluates and resets the window. The state is reset before the
// callback runs so a failing callback cannot leave the window pending.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	active, reported := s.active, s.reported
	s.active = false
	s.reported = false
	s.metrics.IncTick(active)

	if active && !reported {
		s.fire(telemetry.TriggerTick)
	}
}

func (s *Scheduler) fire(trigger string) {
	s.metrics.IncCallback(trigger)
	if s.callback != nil {
		s.callback()
	}
}

// Stop disarms the timer. No callback starts after Stop returns.
// Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	s.active = false
	s.reported = false

	timer, handle := s.timer, s.handle
	s.timer, s.handle = nil, nil

	s.logger.Debug().Msg("activity scheduler disarmed")
	return timer.Cancel(handle)
}

// Running reports whether the scheduler is armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Pending reports whether activity has been seen since the last tick.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
