// Package status draws a one-line activity indicator on the last terminal row.
package status

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/not-idle/pkg/interfaces"
)

// Status represents what the indicator last learned about the session
type Status int

const (
	StatusWaiting Status = iota
	StatusActive
	StatusIdle
)

// Indicator manages the status display in the terminal
type Indicator struct {
	mu        sync.Mutex
	status    Status
	lastSeen  time.Time
	enabled   bool
	writer    io.Writer
	detector  interfaces.IdleDetector
	threshold time.Duration

	refreshChan chan struct{}
}

// Ensure Indicator implements Handler
var _ interfaces.Handler = (*Indicator)(nil)

// NewIndicator creates a new status indicator. The session counts as idle
// once detector reports no activity for threshold.
func NewIndicator(writer io.Writer, enabled bool, detector interfaces.IdleDetector, threshold time.Duration) *Indicator {
	return &Indicator{
		status:      StatusWaiting,
		writer:      writer,
		enabled:     enabled,
		detector:    detector,
		threshold:   threshold,
		refreshChan: make(chan struct{}, 1),
	}
}

// Status returns the current status
func (i *Indicator) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}

// MarkActive records an active window reported at t.
func (i *Indicator) MarkActive(t time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.status = StatusActive
	i.lastSeen = t

	// Best effort - don't fail if we can't update the display
	_ = i.draw()
}

// Refresh re-evaluates idleness and redraws.
func (i *Indicator) Refresh() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.detector != nil && i.status == StatusActive {
		if idle, err := i.detector.IsUserIdle(i.threshold); err == nil && idle {
			i.status = StatusIdle
		}
	}
	_ = i.draw()
}

// draw renders the status indicator
func (i *Indicator) draw() error {
	if !i.enabled || i.writer == nil {
		return nil
	}

	statusText := i.getStatusText()
	if statusText == "" {
		return nil
	}

	// \0337 DECSC, \033[r reset scroll region, \033[999;1H last line,
	// \033[2K clear line, \0338 DECRC.
	sequence := fmt.Sprintf("\0337\033[r\033[999;1H\033[2K%s\0338", statusText)

	if _, err := fmt.Fprint(i.writer, sequence); err != nil {
		return err
	}

	return nil
}

// getStatusText returns the appropriate status text with color
func (i *Indicator) getStatusText() string {
	var parts []string

	switch i.status {
	case StatusActive:
		parts = append(parts, "\033[32m▶ active\033[0m")
	case StatusIdle:
		parts = append(parts, "\033[33mⓏ idle\033[0m")
	default:
		return ""
	}

	if !i.lastSeen.IsZero() {
		parts = append(parts, "\033[90m"+i.lastSeen.Format("15:04")+"\033[0m")
	}

	return strings.Join(parts, " ")
}

// Clear removes the status indicator
func (i *Indicator) Clear() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.enabled || i.writer == nil {
		return nil
	}

	sequence := "\0337\033[999;1H\033[2K\0338"
	if _, err := fmt.Fprint(i.writer, sequence); err != nil {
		return err
	}

	return nil
}

// StartAutoRefresh starts a goroutine that refreshes the display every
// interval and whenever HandleEvent asks for it.
func (i *Indicator) StartAutoRefresh(interval time.Duration, stopChan <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				i.Refresh()
			case <-i.refreshChan:
				i.Refresh()
			case <-stopChan:
				_ = i.Clear() // Best effort
				return
			}
		}
	}()
}

// HandleEvent requests a redraw. Subscribed to the wrapped command's screen
// clears, it puts the line back after the command repaints.
func (i *Indicator) HandleEvent(string) {
	if !i.enabled {
		return
	}
	select {
	case i.refreshChan <- struct{}{}:
	default:
		// Refresh already pending
	}
}
