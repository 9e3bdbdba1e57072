package main

import (
	"bytes"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/not-idle/pkg/config"
	"github.com/Veraticus/not-idle/pkg/idle"
	"github.com/Veraticus/not-idle/pkg/notidle"
	"github.com/Veraticus/not-idle/pkg/notification"
	"github.com/Veraticus/not-idle/pkg/process"
	"github.com/Veraticus/not-idle/pkg/telemetry"
	"github.com/Veraticus/not-idle/pkg/testutil"
)

func newTestDeps(t *testing.T, cfg *config.Config, stderr *bytes.Buffer) (*Dependencies, *testutil.ManualTimer) {
	t.Helper()

	timer := testutil.NewManualTimer()
	deps, err := NewDependencies(cfg, Streams{Stdout: &bytes.Buffer{}, Stderr: stderr}, zerolog.Nop(), notidle.WithTimer(timer))
	require.NoError(t, err)
	t.Cleanup(deps.Close)
	return deps, timer
}

func TestNewDependencies(t *testing.T) {
	cfg := config.DefaultConfig()
	deps, _ := newTestDeps(t, cfg, &bytes.Buffer{})

	assert.Same(t, cfg, deps.Config)
	assert.NotNil(t, deps.IdleDetector)
	assert.NotNil(t, deps.ProcessManager)
	assert.NotNil(t, deps.NotificationManager)
	assert.NotNil(t, deps.RateLimiter)
	assert.NotNil(t, deps.Watcher)
	assert.Nil(t, deps.Registry, "metrics are off without a listen address")

	// Not a terminal, so activity is written as lines.
	_, isWriter := deps.Notifier.(*notification.WriterNotifier)
	assert.True(t, isWriter)
	assert.Zero(t, deps.ProcessManager.Subscribers(process.EventClear))
}

func TestNewDependencies_Metrics(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Metrics.Listen = "127.0.0.1:0"

	deps, _ := newTestDeps(t, cfg, &bytes.Buffer{})

	require.NotNil(t, deps.Registry)
	_, isProm := deps.Metrics.(*telemetry.PrometheusCollector)
	assert.True(t, isProm)
}

func TestNewDependencies_NoRateLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RateLimit.MaxMessages = 0

	deps, _ := newTestDeps(t, cfg, &bytes.Buffer{})
	assert.Nil(t, deps.RateLimiter)
}

func TestReportActive(t *testing.T) {
	tests := []struct {
		name      string
		immediate bool
		quiet     bool
		want      string
	}{
		{name: "tick", want: "Active: activity within the last 1m0s (trigger: tick)"},
		{name: "immediate", immediate: true, want: "(trigger: immediate)"},
		{name: "quiet", quiet: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Immediate = tt.immediate
			cfg.Quiet = tt.quiet

			stderr := &bytes.Buffer{}
			deps, _ := newTestDeps(t, cfg, stderr)
			deps.reportActive()

			if tt.want == "" {
				assert.Empty(t, stderr.String())
				return
			}
			assert.Contains(t, stderr.String(), tt.want)
		})
	}
}

func TestIdleThreshold(t *testing.T) {
	period := time.Minute
	threshold := idleThreshold(period)

	tests := []struct {
		name  string
		since time.Duration
		idle  bool
	}{
		// Periodic: the next tick lands just after a full period.
		{name: "just past one period", since: period + 50*time.Millisecond},
		// Immediate: the first event of the next window can come late in it.
		{name: "almost two periods", since: 2*period - time.Second},
		{name: "two silent windows", since: 2*period + time.Second, idle: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := idle.NewDetector()
			d.UpdateActivityTime(time.Now().Add(-tt.since))

			got, err := d.IsUserIdle(threshold)
			require.NoError(t, err)
			assert.Equal(t, tt.idle, got)
		})
	}
}

func TestSummary(t *testing.T) {
	deps, _ := newTestDeps(t, config.DefaultConfig(), &bytes.Buffer{})
	app := NewApplication(deps)

	assert.Equal(t, "no active windows", app.Summary())

	deps.IdleDetector.UpdateActivity()
	deps.IdleDetector.UpdateActivity()
	assert.Contains(t, app.Summary(), "2 active windows, idle for ")
}

func TestRun_StartErrorStopsWatcher(t *testing.T) {
	t.Setenv(process.WrappedEnv, "")

	deps, timer := newTestDeps(t, config.DefaultConfig(), &bytes.Buffer{})
	app := NewApplication(deps)

	require.Error(t, app.Run("/nonexistent/not-idle-test-command", nil))
	assert.False(t, deps.Watcher.Running())
	assert.Zero(t, timer.Active())
	assert.Zero(t, deps.ProcessManager.Total())
}

func TestRun_RefusesNestedWrap(t *testing.T) {
	t.Setenv(process.WrappedEnv, "1")

	deps, _ := newTestDeps(t, config.DefaultConfig(), &bytes.Buffer{})
	app := NewApplication(deps)

	assert.Error(t, app.Run("true", nil))
	assert.False(t, deps.Watcher.Running())
}

func TestRun_InvalidWatchConfiguration(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Events = nil

	deps, _ := newTestDeps(t, cfg, &bytes.Buffer{})
	app := NewApplication(deps)

	err := app.Run("true", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, notidle.ErrNoInteraction)
}

func skipWithoutPTY(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" || os.Getenv("CI") == "true" {
		t.Skip("Skipping PTY test on Windows or CI")
	}
}

func TestRun_ImmediateReportsOutput(t *testing.T) {
	skipWithoutPTY(t)
	t.Setenv(process.WrappedEnv, "")

	cfg := config.DefaultConfig()
	cfg.Immediate = true

	stderr := &bytes.Buffer{}
	deps, timer := newTestDeps(t, cfg, stderr)
	app := NewApplication(deps)

	require.NoError(t, app.Run("echo", []string{"hello"}))

	// One window, however many output chunks echo produced.
	assert.Equal(t, 1, deps.IdleDetector.ActiveWindows())
	assert.Contains(t, stderr.String(), "(trigger: immediate)")
	assert.Equal(t, 0, app.ExitCode())
	assert.False(t, deps.Watcher.Running())
	assert.Zero(t, timer.Active())
}

func TestRun_PeriodicWaitsForTick(t *testing.T) {
	skipWithoutPTY(t)
	t.Setenv(process.WrappedEnv, "")

	stderr := &bytes.Buffer{}
	deps, _ := newTestDeps(t, config.DefaultConfig(), stderr)
	app := NewApplication(deps)

	// The window never closes, so nothing is reported.
	require.NoError(t, app.Run("echo", []string{"hello"}))
	assert.Zero(t, deps.IdleDetector.ActiveWindows())
	assert.Empty(t, stderr.String())
}

func TestRun_ExitCode(t *testing.T) {
	skipWithoutPTY(t)
	t.Setenv(process.WrappedEnv, "")

	deps, _ := newTestDeps(t, config.DefaultConfig(), &bytes.Buffer{})
	app := NewApplication(deps)

	_ = app.Run("sh", []string{"-c", "exit 3"})
	assert.Equal(t, 3, app.ExitCode())
}
