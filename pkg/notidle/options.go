package notidle

import (
	"github.com/rs/zerolog"

	"github.com/Veraticus/not-idle/pkg/interfaces"
	"github.com/Veraticus/not-idle/pkg/telemetry"
)

// Option customises the collaborators of a NotIdle.
type Option func(*settings)

type settings struct {
	timer   interfaces.Timer
	logger  zerolog.Logger
	metrics telemetry.Collector
}

// WithTimer replaces the wall-clock timer.
func WithTimer(timer interfaces.Timer) Option {
	return func(s *settings) {
		if timer != nil {
			s.timer = timer
		}
	}
}

// WithLogger provides a logger for lifecycle messages.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithMetrics records watcher activity into c.
func WithMetrics(c telemetry.Collector) Option {
	return func(s *settings) {
		if c != nil {
			s.metrics = c
		}
	}
}
