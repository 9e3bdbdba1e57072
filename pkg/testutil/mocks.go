// Package testutil provides test doubles for the watcher collaborators.
package testutil

import (
	"sync"
	"time"

	"github.com/Veraticus/not-idle/pkg/interfaces"
	"github.com/Veraticus/not-idle/pkg/notification"
)

// MockNotifier is a thread-safe mock implementation of notification.Notifier for testing
type MockNotifier struct {
	mu            sync.Mutex
	notifications []notification.Notification
	attempts      []notification.Notification
	sendErr       error
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// Send implements the Notifier interface
func (m *MockNotifier) Send(n notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempts = append(m.attempts, n)
	if m.sendErr != nil {
		return m.sendErr
	}
	m.notifications = append(m.notifications, n)
	return nil
}

// GetNotifications returns a copy of successfully sent notifications
func (m *MockNotifier) GetNotifications() []notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]notification.Notification, len(m.notifications))
	copy(result, m.notifications)
	return result
}

// GetAttempts returns a copy of all attempted sends (including failures)
func (m *MockNotifier) GetAttempts() []notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]notification.Notification, len(m.attempts))
	copy(result, m.attempts)
	return result
}

// SetError sets the error to return on Send calls
func (m *MockNotifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// CallCounter counts callback invocations.
type CallCounter struct {
	mu    sync.Mutex
	count int
	hook  func()
}

// Func returns a callback that increments the counter.
func (c *CallCounter) Func() func() {
	return func() {
		c.mu.Lock()
		c.count++
		hook := c.hook
		c.mu.Unlock()
		if hook != nil {
			hook()
		}
	}
}

// Count returns the number of invocations so far.
func (c *CallCounter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// OnCall installs a function run after each counted invocation.
func (c *CallCounter) OnCall(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hook = fn
}

// MockEventSource records subscriptions and can be told to fail them.
// It delivers nothing on its own; use Fire to simulate events.
type MockEventSource struct {
	mu             sync.Mutex
	subscribed     []Subscription
	subscribeErr   error
	unsubscribeErr error
	failAfter      int
	subscribeCalls int
}

// Subscription is one recorded (event, handler) registration.
type Subscription struct {
	Event   string
	Handler interfaces.Handler
}

// Ensure MockEventSource implements EventSource
var _ interfaces.EventSource = (*MockEventSource)(nil)

// NewMockEventSource creates a mock source that accepts every subscription.
func NewMockEventSource() *MockEventSource {
	return &MockEventSource{failAfter: -1}
}

// Subscribe implements the EventSource interface
func (m *MockEventSource) Subscribe(event string, h interfaces.Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subscribeCalls++
	if m.subscribeErr != nil && (m.failAfter < 0 || m.subscribeCalls > m.failAfter) {
		return m.subscribeErr
	}
	m.subscribed = append(m.subscribed, Subscription{Event: event, Handler: h})
	return nil
}

// Unsubscribe implements the EventSource interface
func (m *MockEventSource) Unsubscribe(event string, h interfaces.Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unsubscribeErr != nil {
		return m.unsubscribeErr
	}
	for i, s := range m.subscribed {
		if s.Event == event && s.Handler == h {
			m.subscribed = append(m.subscribed[:i:i], m.subscribed[i+1:]...)
			break
		}
	}
	return nil
}

// Fire delivers event to every handler subscribed to it.
func (m *MockEventSource) Fire(event string) {
	m.mu.Lock()
	var targets []interfaces.Handler
	for _, s := range m.subscribed {
		if s.Event == event {
			targets = append(targets, s.Handler)
		}
	}
	m.mu.Unlock()

	for _, h := range targets {
		h.HandleEvent(event)
	}
}

// SetSubscribeError makes Subscribe fail with err once n subscriptions have
// succeeded. n < 0 fails every call.
func (m *MockEventSource) SetSubscribeError(err error, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribeErr = err
	m.failAfter = n
}

// SetUnsubscribeError makes Unsubscribe fail with err.
func (m *MockEventSource) SetUnsubscribeError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribeErr = err
}

// Subscriptions returns a copy of the live registrations.
func (m *MockEventSource) Subscriptions() []Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]Subscription, len(m.subscribed))
	copy(result, m.subscribed)
	return result
}

// MockRateLimiter is a mock implementation of interfaces.RateLimiter for testing
type MockRateLimiter struct {
	mu          sync.Mutex
	allowResult bool
	allowCount  int
}

// NewMockRateLimiter creates a new mock rate limiter
func NewMockRateLimiter(allowResult bool) *MockRateLimiter {
	return &MockRateLimiter{allowResult: allowResult}
}

// Allow implements the RateLimiter interface
func (m *MockRateLimiter) Allow() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowCount++
	return m.allowResult
}

// Reset implements the RateLimiter interface
func (m *MockRateLimiter) Reset() {}

// GetAllowCount returns how many times Allow was called
func (m *MockRateLimiter) GetAllowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowCount
}

// MockIdleDetector is a mock implementation of interfaces.IdleDetector for testing
type MockIdleDetector struct {
	mu               sync.Mutex
	idle             bool
	lastActivityTime time.Time
}

// NewMockIdleDetector creates a new mock idle detector
func NewMockIdleDetector(idle bool) *MockIdleDetector {
	return &MockIdleDetector{idle: idle, lastActivityTime: time.Now()}
}

// IsUserIdle implements the IdleDetector interface
func (m *MockIdleDetector) IsUserIdle(time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idle, nil
}

// LastActivity implements the IdleDetector interface
func (m *MockIdleDetector) LastActivity() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActivityTime
}
