package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Veraticus/not-idle/pkg/config"
	"github.com/Veraticus/not-idle/pkg/idle"
	"github.com/Veraticus/not-idle/pkg/interaction"
	"github.com/Veraticus/not-idle/pkg/notidle"
	"github.com/Veraticus/not-idle/pkg/notification"
	"github.com/Veraticus/not-idle/pkg/process"
	"github.com/Veraticus/not-idle/pkg/status"
	"github.com/Veraticus/not-idle/pkg/telemetry"
)

// statusRefresh is how often the status line re-evaluates idleness.
const statusRefresh = 2 * time.Second

// idleThreshold is how long after the last report the session counts as idle.
// Reports come at most once per window and may land anywhere inside it, so
// continuous activity can leave up to two periods between them.
func idleThreshold(period time.Duration) time.Duration {
	return 2 * period
}

// Streams are the terminal streams the wrapped command is attached to.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Dependencies holds all the dependencies for the application
type Dependencies struct {
	Config              *config.Config
	Logger              zerolog.Logger
	Registry            *prometheus.Registry
	Metrics             telemetry.Collector
	IdleDetector        *idle.Detector
	Notifier            notification.Notifier
	RateLimiter         *notification.TokenBucketRateLimiter
	NotificationManager *notification.Manager
	ProcessManager      *process.Manager
	StatusIndicator     *status.Indicator
	Watcher             *notidle.NotIdle
	stopChan            chan struct{}
}

// NewDependencies creates all dependencies with the given configuration.
// opts are applied to the watcher after the defaults derived from cfg.
func NewDependencies(cfg *config.Config, streams Streams, logger zerolog.Logger, opts ...notidle.Option) (*Dependencies, error) {
	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Metrics:  telemetry.Noop(),
		stopChan: make(chan struct{}),
	}

	if cfg.Metrics.Listen != "" {
		deps.Registry = prometheus.NewRegistry()
		collector, err := telemetry.NewPrometheusCollector(deps.Registry)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics: %w", err)
		}
		deps.Metrics = collector
	}

	deps.IdleDetector = idle.NewDetector()
	deps.ProcessManager = process.NewManager(streams.Stdin, streams.Stdout, logger)

	// The status line is only drawn on a terminal, and replaces the
	// one-line-per-window output there.
	statusEnabled := isTerminal(streams.Stderr) && !cfg.Quiet
	deps.StatusIndicator = status.NewIndicator(streams.Stderr, statusEnabled, deps.IdleDetector, idleThreshold(cfg.Period()))
	if statusEnabled {
		deps.Notifier = status.NewReporter(deps.StatusIndicator)
		if err := deps.ProcessManager.Subscribe(process.EventClear, deps.StatusIndicator); err != nil {
			return nil, err
		}
	} else {
		deps.Notifier = notification.NewWriterNotifier(streams.Stderr)
	}

	if cfg.RateLimit.MaxMessages > 0 && cfg.RateLimit.Window > 0 {
		deps.RateLimiter = notification.NewTokenBucketRateLimiter(cfg.RateLimit.MaxMessages, cfg.RateLimit.Window)
		deps.NotificationManager = notification.NewManager(deps.Notifier, deps.RateLimiter, cfg.Quiet, logger)
	} else {
		deps.NotificationManager = notification.NewManager(deps.Notifier, nil, cfg.Quiet, logger)
	}

	watcherOpts := append([]notidle.Option{
		notidle.WithLogger(logger),
		notidle.WithMetrics(deps.Metrics),
	}, opts...)
	deps.Watcher = notidle.New(deps.ProcessManager, watcherOpts...).
		WithWindow(cfg.Window, cfg.Scale).
		WithCallback(deps.IdleDetector.Track(deps.reportActive))
	if len(cfg.Events) > 0 {
		deps.Watcher.Watch(interaction.Spec{Source: deps.ProcessManager, Events: cfg.Events})
	}
	if cfg.WatchDefaults {
		deps.Watcher.WatchDefaults()
	}
	if cfg.Immediate {
		deps.Watcher.WithImmediatePolicy()
	}

	return deps, nil
}

// reportActive is the watcher callback. It runs under the scheduler lock and
// must not write to the wrapped command.
func (d *Dependencies) reportActive() {
	trigger := telemetry.TriggerTick
	if d.Config.Immediate {
		trigger = telemetry.TriggerImmediate
	}
	d.NotificationManager.Send(notification.Notification{
		Title:   "Active",
		Message: fmt.Sprintf("activity within the last %s", d.Config.Period()),
		Time:    time.Now(),
		Trigger: trigger,
	})
}

// Close cleans up all dependencies
func (d *Dependencies) Close() {
	if d.stopChan != nil {
		select {
		case <-d.stopChan:
			// Already closed
		default:
			close(d.stopChan)
		}
		d.stopChan = nil
	}

	if d.Watcher != nil {
		if err := d.Watcher.Stop(); err != nil {
			d.Logger.Warn().Err(err).Msg("failed to stop watcher")
		}
	}

	if d.StatusIndicator != nil {
		_ = d.StatusIndicator.Clear() // Best effort
	}
}

// Application represents the main application
type Application struct {
	deps *Dependencies
}

// NewApplication creates a new application with the given dependencies
func NewApplication(deps *Dependencies) *Application {
	return &Application{
		deps: deps,
	}
}

// Run starts watching, runs the command to completion and stops watching.
func (a *Application) Run(command string, args []string) error {
	if err := a.deps.Watcher.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() {
		if err := a.deps.Watcher.Stop(); err != nil {
			a.deps.Logger.Warn().Err(err).Msg("failed to stop watcher")
		}
	}()

	if err := a.deps.ProcessManager.Start(command, args); err != nil {
		return err
	}

	if a.deps.stopChan != nil {
		a.deps.StatusIndicator.StartAutoRefresh(statusRefresh, a.deps.stopChan)
	}

	return a.deps.ProcessManager.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop() error {
	return a.deps.ProcessManager.Stop()
}

// ExitCode returns the exit code of the wrapped process
func (a *Application) ExitCode() int {
	return a.deps.ProcessManager.ExitCode()
}

// Summary describes the session's activity, for printing at exit.
func (a *Application) Summary() string {
	d := a.deps.IdleDetector
	windows := d.ActiveWindows()
	if windows == 0 {
		return "no active windows"
	}
	return fmt.Sprintf("%d active windows, idle for %s", windows, d.IdleFor().Round(time.Second))
}

// isTerminal reports whether w is a terminal file.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}
