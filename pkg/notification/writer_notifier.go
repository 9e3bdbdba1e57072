package notification

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// WriterNotifier writes one line per notification to an io.Writer.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier creates a notifier writing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Send writes the notification.
func (n *WriterNotifier) Send(notification Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	ts := notification.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := fmt.Fprintf(n.w, "[not-idle %s] %s: %s (trigger: %s)\n",
		ts.Format("15:04:05"),
		notification.Title,
		notification.Message,
		notification.Trigger)
	return err
}
