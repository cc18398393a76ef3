// Package metrics provides Prometheus collectors for the reactive scheduler
// and the reconciler.
//
// A nil *Metrics is valid and records nothing, so library code can call the
// recording methods unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "vtree").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for flush duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "vtree",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the collectors shared by the scheduler and the reconciler.
type Metrics struct {
	flushes         prometheus.Counter
	computationsRun prometheus.Counter
	flushDuration   prometheus.Histogram
	nodesMounted    prometheus.Counter
	nodesUnmounted  prometheus.Counter
	nodesMoved      prometheus.Counter
	textUpdates     prometheus.Counter
	renderErrors    *prometheus.CounterVec
	resourceFetches *prometheus.CounterVec
}

// New registers the collectors with the configured registry.
// Registering twice against the same registry panics, as with promauto.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Buckets == nil {
		config.Buckets = prometheus.DefBuckets
	}

	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}

	return &Metrics{
		flushes:         counter("flushes_total", "Total number of scheduler flushes"),
		computationsRun: counter("computations_run_total", "Total number of computations run by flushes"),
		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Scheduler flush duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
		nodesMounted:   counter("nodes_mounted_total", "Total number of host nodes created by mount"),
		nodesUnmounted: counter("nodes_unmounted_total", "Total number of host nodes released by unmount"),
		nodesMoved:     counter("nodes_moved_total", "Total number of host node moves performed by keyed diffing"),
		textUpdates:    counter("text_updates_total", "Total number of in-place text updates"),
		renderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_errors_total",
			Help:        "Total number of component render errors",
			ConstLabels: config.ConstLabels,
		}, []string{"handled"}),
		resourceFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "resource_fetches_total",
			Help:        "Total number of resource fetch outcomes",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),
	}
}

// ObserveFlush records one flush that ran n computations.
func (m *Metrics) ObserveFlush(d time.Duration, n int) {
	if m == nil {
		return
	}
	m.flushes.Inc()
	m.computationsRun.Add(float64(n))
	m.flushDuration.Observe(d.Seconds())
}

// NodeMounted records a host node creation.
func (m *Metrics) NodeMounted() {
	if m == nil {
		return
	}
	m.nodesMounted.Inc()
}

// NodeUnmounted records a host node release.
func (m *Metrics) NodeUnmounted() {
	if m == nil {
		return
	}
	m.nodesUnmounted.Inc()
}

// NodeMoved records a host node move.
func (m *Metrics) NodeMoved() {
	if m == nil {
		return
	}
	m.nodesMoved.Inc()
}

// TextUpdated records an in-place text update.
func (m *Metrics) TextUpdated() {
	if m == nil {
		return
	}
	m.textUpdates.Inc()
}

// RenderError records a render error. handled reports whether an error
// boundary caught it.
func (m *Metrics) RenderError(handled bool) {
	if m == nil {
		return
	}
	label := "false"
	if handled {
		label = "true"
	}
	m.renderErrors.WithLabelValues(label).Inc()
}

// Resource outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeDiscarded = "discarded"
)

// ResourceFetch records a resource fetch outcome.
func (m *Metrics) ResourceFetch(outcome string) {
	if m == nil {
		return
	}
	m.resourceFetches.WithLabelValues(outcome).Inc()
}
