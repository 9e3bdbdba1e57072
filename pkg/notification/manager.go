package notification

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/Veraticus/not-idle/pkg/interfaces"
)

// Manager applies rate limiting and quiet mode in front of a Notifier.
// Delivery is best effort: failures are logged, not returned to the
// activity callback.
type Manager struct {
	notifier    Notifier
	rateLimiter interfaces.RateLimiter
	quiet       bool
	logger      zerolog.Logger

	mu      sync.Mutex
	sent    int
	dropped int
}

// NewManager creates a new notification manager. rateLimiter may be nil.
func NewManager(notifier Notifier, rateLimiter interfaces.RateLimiter, quiet bool, logger zerolog.Logger) *Manager {
	return &Manager{
		notifier:    notifier,
		rateLimiter: rateLimiter,
		quiet:       quiet,
		logger:      logger,
	}
}

// Send delivers the notification unless quiet or rate limited.
func (m *Manager) Send(notification Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.quiet {
		return
	}

	if m.rateLimiter != nil && !m.rateLimiter.Allow() {
		m.dropped++
		m.logger.Debug().Str("trigger", notification.Trigger).Msg("notification rate limited")
		return
	}

	if err := m.notifier.Send(notification); err != nil {
		m.logger.Warn().Err(err).Msg("failed to send notification")
		return
	}
	m.sent++
}

// Stats returns how many notifications were sent and dropped by the limiter.
func (m *Manager) Stats() (sent, dropped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent, m.dropped
}
