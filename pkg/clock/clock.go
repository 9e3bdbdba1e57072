// Package clock provides the wall-clock timer used by activity watchers.
package clock

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Veraticus/not-idle/pkg/interfaces"
)

// ErrForeignHandle is returned when cancelling a handle that System did not create.
var ErrForeignHandle = errors.New("timer handle was not created by this timer")

var newTicker = func(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

// Ticker is the subset of time.Ticker used by System.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time {
	return r.t.C
}

func (r *realTicker) Stop() {
	r.t.Stop()
}

// System schedules repeating callbacks on time.Ticker. Each armed handle owns
// one goroutine that runs the callback once per tick.
type System struct{}

// Ensure System implements Timer
var _ interfaces.Timer = System{}

type handle struct {
	interval time.Duration
	ticker   Ticker
	done     chan struct{}
	once     sync.Once
}

func (h *handle) Interval() time.Duration {
	return h.interval
}

// ScheduleRepeating runs fn every interval until the handle is cancelled.
func (System) ScheduleRepeating(interval time.Duration, fn func()) (interfaces.TimerHandle, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("non-positive interval %v", interval)
	}
	if fn == nil {
		return nil, errors.New("nil tick function")
	}

	h := &handle{
		interval: interval,
		ticker:   newTicker(interval),
		done:     make(chan struct{}),
	}
	go h.run(fn)
	return h, nil
}

func (h *handle) run(fn func()) {
	for {
		select {
		case <-h.done:
			return
		case <-h.ticker.C():
			select {
			case <-h.done:
				return
			default:
			}
			fn()
		}
	}
}

// Cancel stops the ticker. It does not wait for a tick that is already running.
func (System) Cancel(th interfaces.TimerHandle) error {
	h, ok := th.(*handle)
	if !ok || h == nil {
		return ErrForeignHandle
	}
	h.once.Do(func() {
		h.ticker.Stop()
		close(h.done)
	})
	return nil
}
