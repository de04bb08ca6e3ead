// Package metrics provides Prometheus metrics for the trekhums batch runs.
//
// A run is short lived, so nothing is scraped. Metrics are written once per
// run to a node-exporter textfile and/or pushed to a Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Manager manages all Prometheus metrics of one process.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         *prometheus.Registry

	// Builder side
	messagesBuilt     *prometheus.CounterVec
	measurementValues prometheus.Counter
	samplesMasked     prometheus.Counter

	// Reader side
	inboundMessages *prometheus.CounterVec
	parseProblems   prometheus.Counter
	resends         prometheus.Counter

	// Run health
	ioErrors       *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	lastSuccessUTC *prometheus.GaugeVec
}

// Global metrics manager instance.
var globalManager = NewManager() //nolint:gochecknoglobals // process-wide recorder behind the Record* helpers

// Setup replaces the global manager with one built from opts. Values recorded
// before the call are dropped, so it belongs at process start.
func Setup(opts ...Option) *Manager {
	globalManager = NewManager(opts...)
	return globalManager
}

// NewManager creates a new metrics manager. Without WithRegistry it records
// on a fresh private registry, which keeps the default Go collectors out.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "trekhums",
		subsystem:        "batch",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		customLabels:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.messagesBuilt = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "messages_built_total",
		Help:        "Messages emitted, by kind (usage_report, acknowledgment, observation)",
		ConstLabels: labels,
	}, []string{"kind"})

	m.measurementValues = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "measurement_values_total",
		Help:        "Measurement values encoded into usage reports",
		ConstLabels: labels,
	})

	m.samplesMasked = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "samples_masked_total",
		Help:        "Track rows whose position was redacted",
		ConstLabels: labels,
	})

	m.inboundMessages = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "inbound_messages_total",
		Help:        "Inbound messages, by the state they reached before answering",
		ConstLabels: labels,
	}, []string{"state"})

	m.parseProblems = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "parse_problems_total",
		Help:        "Missing or invalid fields reported in observations",
		ConstLabels: labels,
	})

	m.resends = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "resends_total",
		Help:        "Outputs that replaced an existing file of the same uid",
		ConstLabels: labels,
	})

	m.ioErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "io_errors_total",
		Help:        "Directory store failures, by operation",
		ConstLabels: labels,
	}, []string{"op"})

	m.runDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "run_duration_seconds",
		Help:        "Duration of one batch run, by command",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"command"})

	m.lastSuccessUTC = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "last_success_timestamp_seconds",
		Help:        "Unix time of the last run that completed without error, by command",
		ConstLabels: labels,
	}, []string{"command"})
}

// Registry returns the registry the manager records on.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically, as the node-exporter textfile collector
// expects.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("%w: textfile %s: %w", ErrExportFailed, path, err)
	}
	return nil
}

// Push sends every metric to the Pushgateway at url under job.
func (m *Manager) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("%w: push %s: %w", ErrExportFailed, url, err)
	}
	return nil
}

// RecordMessageBuilt increments the emitted messages counter for kind.
func RecordMessageBuilt(kind string) {
	globalManager.messagesBuilt.WithLabelValues(kind).Inc()
}

// RecordMeasurementValues adds n encoded values.
func RecordMeasurementValues(n int) {
	globalManager.measurementValues.Add(float64(n))
}

// RecordSamplesMasked adds n redacted rows.
func RecordSamplesMasked(n int) {
	globalManager.samplesMasked.Add(float64(n))
}

// RecordInbound increments the inbound counter for state.
func RecordInbound(state string) {
	globalManager.inboundMessages.WithLabelValues(state).Inc()
}

// RecordParseProblems adds n reported problems.
func RecordParseProblems(n int) {
	globalManager.parseProblems.Add(float64(n))
}

// RecordResend increments the resend counter.
func RecordResend() {
	globalManager.resends.Inc()
}

// RecordIOError increments the i/o error counter for op.
func RecordIOError(op string) {
	globalManager.ioErrors.WithLabelValues(op).Inc()
}

// RecordRun observes the duration of a run and, when it succeeded, stamps
// the last success time.
func RecordRun(command string, d time.Duration, success bool) {
	globalManager.runDuration.WithLabelValues(command).Observe(d.Seconds())
	if success {
		globalManager.lastSuccessUTC.WithLabelValues(command).SetToCurrentTime()
	}
}

// WriteTextfile writes the global metrics to path.
func WriteTextfile(path string) error { return globalManager.WriteTextfile(path) }

// Push sends the global metrics to a Pushgateway.
func Push(ctx context.Context, url, job string) error { return globalManager.Push(ctx, url, job) }
