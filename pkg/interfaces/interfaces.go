// Package interfaces defines the core interfaces used throughout the application.
package interfaces

import "time"

// Handler receives occurrences of subscribed events.
// Implementations are compared by identity, so the same value must be
// passed to Subscribe and Unsubscribe, and the dynamic type must be
// comparable: use a pointer, not a func or a struct holding a slice or map.
type Handler interface {
	HandleEvent(event string)
}

// EventSource is anything that can deliver named events to handlers.
type EventSource interface {
	Subscribe(event string, h Handler) error
	Unsubscribe(event string, h Handler) error
}

// TimerHandle identifies an armed repeating timer.
type TimerHandle interface {
	Interval() time.Duration
}

// Timer schedules repeating callbacks.
type Timer interface {
	ScheduleRepeating(interval time.Duration, fn func()) (TimerHandle, error)
	Cancel(handle TimerHandle) error
}

// IdleDetector detects user activity/inactivity.
type IdleDetector interface {
	IsUserIdle(threshold time.Duration) (bool, error)
	LastActivity() time.Time
}

// RateLimiter limits notification frequency.
type RateLimiter interface {
	Allow() bool
	Reset()
}
