package testutil

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Veraticus/not-idle/pkg/interfaces"
)

// ManualTimer is an interfaces.Timer driven by Advance instead of the wall
// clock. Time starts at zero when the timer is created.
type ManualTimer struct {
	mu          sync.Mutex
	now         time.Duration
	entries     []*manualEntry
	scheduleErr error
	cancelErr   error
}

type manualEntry struct {
	interval  time.Duration
	next      time.Duration
	fn        func()
	cancelled bool
}

func (e *manualEntry) Interval() time.Duration {
	return e.interval
}

// Ensure ManualTimer implements Timer
var _ interfaces.Timer = (*ManualTimer)(nil)

// NewManualTimer creates a timer at t=0.
func NewManualTimer() *ManualTimer {
	return &ManualTimer{}
}

// ScheduleRepeating implements the Timer interface
func (m *ManualTimer) ScheduleRepeating(interval time.Duration, fn func()) (interfaces.TimerHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.scheduleErr != nil {
		return nil, m.scheduleErr
	}
	if interval <= 0 {
		return nil, fmt.Errorf("non-positive interval %v", interval)
	}
	e := &manualEntry{interval: interval, next: m.now + interval, fn: fn}
	m.entries = append(m.entries, e)
	return e, nil
}

// Cancel implements the Timer interface
func (m *ManualTimer) Cancel(h interfaces.TimerHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancelErr != nil {
		return m.cancelErr
	}
	e, ok := h.(*manualEntry)
	if !ok {
		return errors.New("unknown timer handle")
	}
	e.cancelled = true
	return nil
}

// Advance moves time forward by d, running every tick that falls due, in
// time order, on the caller's goroutine.
func (m *ManualTimer) Advance(d time.Duration) {
	m.AdvanceTo(m.Now() + d)
}

// AdvanceTo moves time forward to t.
func (m *ManualTimer) AdvanceTo(t time.Duration) {
	for {
		m.mu.Lock()
		due := m.nextDueLocked(t)
		if due == nil {
			if t > m.now {
				m.now = t
			}
			m.mu.Unlock()
			return
		}
		m.now = due.next
		due.next += due.interval
		fn := due.fn
		m.mu.Unlock()

		fn()
	}
}

func (m *ManualTimer) nextDueLocked(limit time.Duration) *manualEntry {
	var live []*manualEntry
	for _, e := range m.entries {
		if !e.cancelled && e.next <= limit {
			live = append(live, e)
		}
	}
	if len(live) == 0 {
		return nil
	}
	sort.SliceStable(live, func(i, j int) bool { return live[i].next < live[j].next })
	return live[0]
}

// Now returns the elapsed manual time.
func (m *ManualTimer) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Active returns the number of armed, uncancelled timers.
func (m *ManualTimer) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, e := range m.entries {
		if !e.cancelled {
			n++
		}
	}
	return n
}

// SetScheduleError makes ScheduleRepeating fail with err.
func (m *ManualTimer) SetScheduleError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scheduleErr = err
}

// SetCancelError makes Cancel fail with err.
func (m *ManualTimer) SetCancelError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelErr = err
}
