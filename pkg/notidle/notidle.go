// Package notidle invokes a callback for every time window in which a watched
// actor showed activity.
//
// A NotIdle is configured through chained calls and then started:
//
//	n := notidle.New(root).
//		Within(2).
//		WatchDefaults().
//		WithImmediatePolicy().
//		WithCallback(func() { log.Println("user is active") })
//	if err := n.Start(); err != nil {
//		return err
//	}
//	defer n.Stop()
//
// Start freezes a copy of the configuration. While running, configuration
// calls are rejected and reported by Err and by the next Start.
package notidle

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Veraticus/not-idle/pkg/clock"
	"github.com/Veraticus/not-idle/pkg/interaction"
	"github.com/Veraticus/not-idle/pkg/interfaces"
	"github.com/Veraticus/not-idle/pkg/scheduler"
	"github.com/Veraticus/not-idle/pkg/telemetry"
)

// DefaultScale is the unit of a window duration when none is given.
const DefaultScale = time.Minute

// Window is a duration expressed in units of Scale.
type Window struct {
	Duration float64
	Scale    time.Duration
}

// Period returns the effective tick period.
func (w Window) Period() time.Duration {
	return time.Duration(w.Duration * float64(w.Scale))
}

type config struct {
	root      interfaces.EventSource
	registry  *interaction.Registry
	window    Window
	windowSet bool
	policy    scheduler.Policy
	callback  func()
}

func (c config) freeze() config {
	c.registry = c.registry.Clone()
	return c
}

// NotIdle watches interaction sources and reports activity per window.
type NotIdle struct {
	settings settings

	// lifecycle serialises Start and Stop for their whole run. mu guards the
	// fields below and is only held briefly, so a callback may read Running.
	lifecycle sync.Mutex

	mu        sync.Mutex
	cfg       config
	err       error
	starting  bool
	sched     *scheduler.Scheduler
	listeners *interaction.Listeners
}

// New creates an unconfigured NotIdle. root is the source used by
// WatchDefaults and may be nil when only Watch is used.
func New(root interfaces.EventSource, opts ...Option) *NotIdle {
	s := settings{
		timer:   clock.System{},
		logger:  zerolog.Nop(),
		metrics: telemetry.Noop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &NotIdle{
		settings: s,
		cfg: config{
			root:     root,
			registry: &interaction.Registry{},
		},
	}
}

// configure applies fn unless the watcher is running.
func (n *NotIdle) configure(op string, fn func(c *config) error) *NotIdle {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.sched != nil || n.starting {
		n.recordLocked(configErr(ErrReconfigureWhileRunning, op))
		return n
	}
	if err := fn(&n.cfg); err != nil {
		n.recordLocked(err)
	}
	return n
}

func (n *NotIdle) recordLocked(err error) {
	n.settings.logger.Warn().Err(err).Msg("configuration rejected")
	if n.err == nil {
		n.err = err
	}
}

// WithWindow sets the window to duration units of scale. A non-positive scale
// means DefaultScale.
func (n *NotIdle) WithWindow(duration float64, scale time.Duration) *NotIdle {
	return n.configure("WithWindow", func(c *config) error {
		if scale <= 0 {
			scale = DefaultScale
		}
		c.window = Window{Duration: duration, Scale: scale}
		c.windowSet = true
		return nil
	})
}

// Within sets the window to duration minutes.
func (n *NotIdle) Within(duration float64) *NotIdle {
	return n.WithWindow(duration, DefaultScale)
}

// WithCallback sets the function invoked for active windows. nil disables it.
func (n *NotIdle) WithCallback(fn func()) *NotIdle {
	return n.configure("WithCallback", func(c *config) error {
		c.callback = fn
		return nil
	})
}

// WatchDefaults watches the default interaction events on the root source.
func (n *NotIdle) WatchDefaults() *NotIdle {
	return n.configure("WatchDefaults", func(c *config) error {
		if c.root == nil {
			return configErr(ErrInvalidSpec, "no root source for default interactions")
		}
		c.registry.AddDefaults(c.root)
		return nil
	})
}

// Watch adds custom interactions. If any spec is invalid none are added.
func (n *NotIdle) Watch(specs ...interaction.Spec) *NotIdle {
	return n.configure("Watch", func(c *config) error {
		for i, s := range specs {
			if err := s.Validate(); err != nil {
				return configErr(ErrInvalidSpec, fmt.Sprintf("spec %d: %v", i, err))
			}
		}
		c.registry.Add(specs...)
		return nil
	})
}

// WithImmediatePolicy fires the callback at the first event of each window
// instead of at the window boundary.
func (n *NotIdle) WithImmediatePolicy() *NotIdle {
	return n.configure("WithImmediatePolicy", func(c *config) error {
		c.policy = scheduler.Immediate
		return nil
	})
}

// Err returns the first rejected configuration call, if any.
func (n *NotIdle) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.err
}

// Running reports whether the watcher has been started and not stopped.
func (n *NotIdle) Running() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sched != nil
}

// Start arms the timer and attaches the activity handler to every watched
// event. Configuration problems are returned as *ConfigurationError before
// anything is attached; a pending rejected configuration is returned once and
// then cleared. Errors from the timer or an event source are returned as is
// and leave nothing armed or attached.
func (n *NotIdle) Start() error {
	n.lifecycle.Lock()
	defer n.lifecycle.Unlock()

	n.mu.Lock()
	if n.sched != nil {
		n.mu.Unlock()
		return configErr(ErrAlreadyRunning, "")
	}
	if err := n.err; err != nil {
		n.err = nil
		n.mu.Unlock()
		return err
	}
	cfg := n.cfg.freeze()
	n.starting = true
	n.mu.Unlock()

	sched, listeners, err := n.arm(cfg)

	n.mu.Lock()
	n.starting = false
	if err == nil {
		n.sched = sched
		n.listeners = listeners
	}
	n.mu.Unlock()
	return err
}

// arm starts a scheduler for cfg and attaches it to every watched event.
func (n *NotIdle) arm(cfg config) (*scheduler.Scheduler, *interaction.Listeners, error) {
	if cfg.registry.Len() == 0 {
		return nil, nil, configErr(ErrNoInteraction, "")
	}
	period := cfg.window.Period()
	if !cfg.windowSet || period <= 0 {
		return nil, nil, configErr(ErrNoWindow, fmt.Sprintf("period %v", period))
	}

	logger := n.settings.logger
	sched := scheduler.New(cfg.policy, cfg.callback, logger, n.settings.metrics)
	listeners := interaction.NewListeners(cfg.registry.Pairs(), sched)

	if err := sched.Start(n.settings.timer, period); err != nil {
		return nil, nil, err
	}
	if err := listeners.AttachAll(); err != nil {
		_ = sched.Stop()
		return nil, nil, err
	}

	logger.Info().
		Int("interactions", cfg.registry.Len()).
		Int("listeners", listeners.Attached()).
		Dur("window", period).
		Str("policy", cfg.policy.String()).
		Msg("watching for activity")
	return sched, listeners, nil
}

// Stop disarms the timer and detaches every listener. After Stop returns the
// callback is not invoked again, including when another Stop is in progress.
// Stopping a stopped watcher is a no-op.
func (n *NotIdle) Stop() error {
	n.lifecycle.Lock()
	defer n.lifecycle.Unlock()

	n.mu.Lock()
	sched, listeners := n.sched, n.listeners
	n.sched, n.listeners = nil, nil
	n.mu.Unlock()

	if sched == nil {
		return nil
	}

	stopErr := sched.Stop()
	detachErr := listeners.DetachAll()

	n.settings.logger.Info().Msg("stopped watching for activity")

	if stopErr != nil && detachErr != nil {
		return errors.Join(stopErr, detachErr)
	}
	if stopErr != nil {
		return stopErr
	}
	return detachErr
}
