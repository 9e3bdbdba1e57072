package status

import "github.com/Veraticus/not-idle/pkg/notification"

// Reporter adapts the Indicator to implement notification.Notifier, so that
// every delivered activity notification marks the session active.
type Reporter struct {
	indicator *Indicator
}

// NewReporter creates a new status reporter
func NewReporter(indicator *Indicator) *Reporter {
	return &Reporter{
		indicator: indicator,
	}
}

// Ensure Reporter implements Notifier
var _ notification.Notifier = (*Reporter)(nil)

// Send marks the indicator active at the notification's time.
func (r *Reporter) Send(n notification.Notification) error {
	if r.indicator != nil {
		r.indicator.MarkActive(n.Time)
	}
	return nil
}
