// Package telemetry records activity watcher metrics.
package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Trigger values reported with callback invocations.
const (
	TriggerTick      = "tick"
	TriggerImmediate = "immediate"
)

// Collector captures watcher events.
//
// Hooks run inline with event delivery and ticks, so implementations must be
// cheap and must not call back into the watcher.
type Collector interface {
	IncEvent()
	IncTick(active bool)
	IncCallback(trigger string)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncEvent()          {}
func (noopCollector) IncTick(bool)       {}
func (noopCollector) IncCallback(string) {}

// PrometheusCollector exposes watcher counters via Prometheus.
type PrometheusCollector struct {
	events    prometheus.Counter
	ticks     *prometheus.CounterVec
	callbacks *prometheus.CounterVec
}

// NewPrometheusCollector registers the watcher metrics with reg. Metrics that
// are already registered are reused, so several watchers can share a registry.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	events, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "not_idle_events_total",
		Help: "Number of qualifying interaction events observed.",
	}))
	if err != nil {
		return nil, err
	}
	ticks, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "not_idle_ticks_total",
		Help: "Number of window boundaries evaluated, by whether activity was seen.",
	}, []string{"active"}))
	if err != nil {
		return nil, err
	}
	callbacks, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "not_idle_callbacks_total",
		Help: "Number of activity callback invocations, by trigger.",
	}, []string{"trigger"}))
	if err != nil {
		return nil, err
	}

	return &PrometheusCollector{
		events:    events,
		ticks:     ticks,
		callbacks: callbacks,
	}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}

// IncEvent counts a qualifying event.
func (c *PrometheusCollector) IncEvent() {
	c.events.Inc()
}

// IncTick counts a window boundary.
func (c *PrometheusCollector) IncTick(active bool) {
	c.ticks.WithLabelValues(strconv.FormatBool(active)).Inc()
}

// IncCallback counts a callback invocation.
func (c *PrometheusCollector) IncCallback(trigger string) {
	c.callbacks.WithLabelValues(trigger).Inc()
}
