package interaction

import (
	"sync"

	"github.com/Veraticus/not-idle/pkg/interfaces"
)

// Listeners attaches one handler to a fixed set of pairs and detaches it from
// exactly the pairs it attached.
type Listeners struct {
	pairs   []Pair
	handler interfaces.Handler

	mu       sync.Mutex
	attached []Pair
}

// NewListeners creates a lifecycle manager for handler over pairs.
func NewListeners(pairs []Pair, handler interfaces.Handler) *Listeners {
	return &Listeners{
		pairs:   append([]Pair(nil), pairs...),
		handler: handler,
	}
}

// AttachAll subscribes the handler to every pair. If a source rejects a
// subscription, the pairs attached so far are detached and the source's
// error is returned as is.
func (l *Listeners) AttachAll() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range l.pairs {
		if err := p.Source.Subscribe(p.Event, l.handler); err != nil {
			_ = l.detachLocked()
			return err
		}
		l.attached = append(l.attached, p)
	}
	return nil
}

// DetachAll unsubscribes the handler from every attached pair. All pairs are
// attempted; the first error is returned.
func (l *Listeners) DetachAll() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.detachLocked()
}

func (l *Listeners) detachLocked() error {
	var first error
	for _, p := range l.attached {
		if err := p.Source.Unsubscribe(p.Event, l.handler); err != nil && first == nil {
			first = err
		}
	}
	l.attached = nil
	return first
}

// Attached returns the number of live subscriptions.
func (l *Listeners) Attached() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attached)
}
