// Package idle answers "how long has it been since the last active window".
package idle

import (
	"sync"
	"time"

	"github.com/Veraticus/not-idle/pkg/interfaces"
)

// Detector is an interfaces.IdleDetector fed by activity reports. Wrap the
// watcher callback with Track so every reported window marks activity.
type Detector struct {
	mu           sync.RWMutex
	lastActivity time.Time
	windows      int
	now          func() time.Time
}

// Ensure Detector implements IdleDetector
var _ interfaces.IdleDetector = (*Detector)(nil)

// NewDetector creates a detector whose last activity is now.
func NewDetector() *Detector {
	return &Detector{
		lastActivity: time.Now(),
		now:          time.Now,
	}
}

// IsUserIdle returns true if no activity has been reported within threshold.
func (d *Detector) IsUserIdle(threshold time.Duration) (bool, error) {
	return d.IdleFor() >= threshold, nil
}

// LastActivity returns the time of the last reported activity.
func (d *Detector) LastActivity() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastActivity
}

// IdleFor returns the time elapsed since the last reported activity.
func (d *Detector) IdleFor() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.now().Sub(d.lastActivity)
}

// ActiveWindows returns how many activity reports have been recorded.
func (d *Detector) ActiveWindows() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.windows
}

// UpdateActivity records activity now.
func (d *Detector) UpdateActivity() {
	d.UpdateActivityTime(d.now())
}

// UpdateActivityTime records activity at t.
func (d *Detector) UpdateActivityTime(t time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastActivity = t
	d.windows++
}

// Track returns a callback that records activity and then calls next,
// which may be nil.
func (d *Detector) Track(next func()) func() {
	return func() {
		d.UpdateActivity()
		if next != nil {
			next()
		}
	}
}
