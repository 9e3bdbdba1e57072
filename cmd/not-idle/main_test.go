package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/not-idle/pkg/config"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		command []string
		check   func(t *testing.T, opts *options)
	}{
		{
			name:    "separator",
			args:    []string{"--window", "2", "--", "vim", "-x"},
			command: []string{"vim", "-x"},
			check: func(t *testing.T, opts *options) {
				assert.Equal(t, 2.0, opts.window)
			},
		},
		{
			name:    "stops at first command word",
			args:    []string{"--quiet", "ls", "-la", "--window", "3"},
			command: []string{"ls", "-la", "--window", "3"},
			check: func(t *testing.T, opts *options) {
				assert.True(t, opts.quiet)
				assert.Zero(t, opts.window)
			},
		},
		{
			name:    "scale and immediate",
			args:    []string{"--scale=30s", "--immediate", "--config", "/tmp/c.yaml", "top"},
			command: []string{"top"},
			check: func(t *testing.T, opts *options) {
				assert.Equal(t, 30*time.Second, opts.scale)
				assert.True(t, opts.immediate)
				assert.Equal(t, "/tmp/c.yaml", opts.configPath)
			},
		},
		{
			name: "help without command",
			args: []string{"-h"},
			check: func(t *testing.T, opts *options) {
				assert.True(t, opts.help)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, opts, command, err := parseArgs(tt.args)
			require.NoError(t, err)
			if len(tt.command) == 0 {
				assert.Empty(t, command)
			} else {
				assert.Equal(t, tt.command, command)
			}
			tt.check(t, opts)
		})
	}
}

func TestParseArgs_UnknownFlag(t *testing.T) {
	_, _, _, err := parseArgs([]string{"--bogus", "ls"})
	assert.Error(t, err)
}

func TestApplyFlags(t *testing.T) {
	fs, opts, _, err := parseArgs([]string{"--window", "0.5", "--scale", "10s", "cmd"})
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Quiet = true
	require.NoError(t, applyFlags(fs, opts, cfg))

	assert.Equal(t, 0.5, cfg.Window)
	assert.Equal(t, 10*time.Second, cfg.Scale)
	assert.Equal(t, 5*time.Second, cfg.Period())
	assert.True(t, cfg.Quiet, "unset flags keep the configured value")
	assert.False(t, cfg.Immediate)
}

func TestApplyFlags_Invalid(t *testing.T) {
	fs, opts, _, err := parseArgs([]string{"--window", "-1", "cmd"})
	require.NoError(t, err)

	assert.Error(t, applyFlags(fs, opts, config.DefaultConfig()))
}

func TestLoadConfig_ExplicitPath(t *testing.T) {
	t.Setenv("NOT_IDLE_WINDOW", "")
	t.Setenv("NOT_IDLE_SCALE", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window: 3\nscale: 10s\n"), 0o600))

	_, opts, _, err := parseArgs([]string{"--config", path, "cmd"})
	require.NoError(t, err)

	cfg, err := loadConfig(opts)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Period())
}

func TestLoadConfig_MissingExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")

	_, opts, _, err := parseArgs([]string{"--config", path, "cmd"})
	require.NoError(t, err)

	_, err = loadConfig(opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadConfig_MissingDefaultPath(t *testing.T) {
	t.Setenv("NOT_IDLE_WINDOW", "")
	t.Setenv("NOT_IDLE_SCALE", "")
	t.Setenv("NOT_IDLE_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := loadConfig(&options{})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Period(), cfg.Period())
}
