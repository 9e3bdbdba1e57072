// Package notification delivers activity reports.
package notification

import "time"

// Notification represents an activity report to be delivered.
type Notification struct {
	Title   string
	Message string
	Time    time.Time
	Trigger string
}

// Notifier sends notifications.
type Notifier interface {
	Send(notification Notification) error
}
