package diag

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus sink. The zero Namespace and
// Registry are replaced by "paramstate" and prometheus.DefaultRegisterer.
type MetricsConfig struct {
	Namespace   string
	Subsystem   string
	ConstLabels prometheus.Labels
	Registry    prometheus.Registerer
}

// MetricsOption configures the Prometheus sink.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "paramstate",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics counts diagnostics in Prometheus.
//
// Metrics collected:
//   - paramstate_unregistered_parameter_total: lookups of unregistered names
//   - paramstate_migrations_applied_total: migrations applied, by parameter
//   - paramstate_migrated_parameters_total: parameters rewritten by a pass
//   - paramstate_binding_errors_total: binding failures by kind and class
//
// Create one Metrics per registry; registering twice panics.
type Metrics struct {
	unregistered  *prometheus.CounterVec
	migrations    *prometheus.CounterVec
	migrated      *prometheus.CounterVec
	bindingErrors *prometheus.CounterVec
}

var _ Sink = (*Metrics)(nil)

// NewMetrics registers the sink's collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.Registry)
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: cfg.ConstLabels,
		}, labels)
	}

	return &Metrics{
		unregistered:  counter("unregistered_parameter_total", "Lookups of parameters missing from the registry", "param"),
		migrations:    counter("migrations_applied_total", "Migration rules applied, by parameter", "param"),
		migrated:      counter("migrated_parameters_total", "Parameters rewritten by a migration pass", "param"),
		bindingErrors: counter("binding_errors_total", "Failed storage or codec operations, by binding kind", "kind", "error_type"),
	}
}

// UnregisteredParameter implements Sink.
func (m *Metrics) UnregisteredParameter(name string) {
	m.unregistered.WithLabelValues(name).Inc()
}

// MigrationApplied implements Sink.
func (m *Metrics) MigrationApplied(name string, count int, _, _ any) {
	m.migrations.WithLabelValues(name).Add(float64(count))
	m.migrated.WithLabelValues(name).Inc()
}

// BindingError implements Sink. Keys are not used as labels to keep
// cardinality bounded.
func (m *Metrics) BindingError(kind, _ string, err error) {
	m.bindingErrors.WithLabelValues(kind, categorizeError(err)).Inc()
}

// categorizeError returns a low-cardinality class for err.
func categorizeError(err error) string {
	if err == nil {
		return "none"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "decode"), strings.Contains(msg, "unmarshal"):
		return "decode"
	case strings.Contains(msg, "encode"), strings.Contains(msg, "marshal"):
		return "encode"
	default:
		return "storage"
	}
}
