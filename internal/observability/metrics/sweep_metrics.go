package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SweepMetrics tracks the milestone sweeper and the outbox backlog.
type SweepMetrics struct {
	milestoneSweepDuration prometheus.Histogram
	milestonesMarked       *prometheus.CounterVec
	outboxBacklog          prometheus.Gauge
	outboxBacklogOldest    prometheus.Gauge
}

var (
	sweepMetricsOnce sync.Once
	sweepMetrics     *SweepMetrics
)

// Sweep returns the process-wide sweep metrics with default labels.
func Sweep() *SweepMetrics {
	return SweepWithConfig(Config{})
}

// SweepWithConfig returns the process-wide sweep metrics, registering them on
// first use.
func SweepWithConfig(cfg Config) *SweepMetrics {
	sweepMetricsOnce.Do(func() {
		sweepMetrics = newSweepMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return sweepMetrics
}

// ResetSweepMetricsForTest clears the singleton between test runs.
func ResetSweepMetricsForTest() {
	sweepMetricsOnce = sync.Once{}
	sweepMetrics = nil
}

func newSweepMetrics(registerer prometheus.Registerer, cfg Config) *SweepMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "assistente"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	milestoneSweepDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "assistente_milestone_sweep_duration_seconds",
			Help:        "Duration of one overdue-milestone sweep cycle.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			ConstLabels: constLabels,
		},
	)

	milestonesMarked := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "assistente_milestones_marked_total",
			Help:        "Milestones processed by the sweeper.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // overdue | skipped | failed
	)

	outboxBacklog := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "assistente_outbox_backlog_total",
			Help:        "Number of domain events waiting in the outbox.",
			ConstLabels: constLabels,
		},
	)

	outboxBacklogOldest := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "assistente_outbox_backlog_oldest_seconds",
			Help:        "Age of the oldest unpublished domain event.",
			ConstLabels: constLabels,
		},
	)

	registerer.MustRegister(
		milestoneSweepDuration,
		milestonesMarked,
		outboxBacklog,
		outboxBacklogOldest,
	)

	return &SweepMetrics{
		milestoneSweepDuration: milestoneSweepDuration,
		milestonesMarked:       milestonesMarked,
		outboxBacklog:          outboxBacklog,
		outboxBacklogOldest:    outboxBacklogOldest,
	}
}

// ObserveSweepDuration records how long one sweep cycle took.
func (m *SweepMetrics) ObserveSweepDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.milestoneSweepDuration.Observe(duration.Seconds())
}

// IncMilestoneMarked counts one processed milestone by result.
func (m *SweepMetrics) IncMilestoneMarked(result string) {
	if m == nil {
		return
	}
	m.milestonesMarked.WithLabelValues(result).Inc()
}

// SetOutboxBacklog publishes the current outbox depth.
func (m *SweepMetrics) SetOutboxBacklog(value int) {
	if m == nil {
		return
	}
	m.outboxBacklog.Set(float64(value))
}

// SetOutboxBacklogOldest publishes the age of the oldest unpublished event.
func (m *SweepMetrics) SetOutboxBacklogOldest(age time.Duration) {
	if m == nil {
		return
	}
	seconds := age.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.outboxBacklogOldest.Set(seconds)
}
