package cyclemetrics

import (
	"time"

	"github.com/evertel/billrun/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// Metrics collects per-stage instruments for one cycle run and pushes
// them once at the end. No /metrics listener: the runner is a batch job.
type Metrics struct {
	registry *prometheus.Registry
	pusher   *push.Pusher
	log      *zap.Logger

	stageRuns      *prometheus.CounterVec
	stageErrors    *prometheus.CounterVec
	stageDuration  *prometheus.GaugeVec
	itemsSubmitted *prometheus.CounterVec
}

func New(cfg config.Config, log *zap.Logger) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		log:      log.Named("cyclemetrics"),
		stageRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billrun_stage_runs_total",
			Help: "Stage executions per cycle run.",
		}, []string{"stage"}),
		stageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billrun_stage_errors_total",
			Help: "Stage failures per cycle run.",
		}, []string{"stage"}),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "billrun_stage_duration_seconds",
			Help: "Duration of the most recent stage execution.",
		}, []string{"stage"}),
		itemsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billrun_items_submitted_total",
			Help: "Line items submitted for rating, per phase.",
		}, []string{"phase"}),
	}
	registry.MustRegister(m.stageRuns, m.stageErrors, m.stageDuration, m.itemsSubmitted)

	if cfg.Metrics.Enabled && cfg.Metrics.Endpoint != "" {
		m.pusher = push.New(cfg.Metrics.Endpoint, cfg.Metrics.JobName).Gatherer(registry)
	}
	return m
}

func (m *Metrics) IncStageRun(stage string) {
	m.stageRuns.WithLabelValues(stage).Inc()
}

func (m *Metrics) IncStageError(stage string) {
	m.stageErrors.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveStageDuration(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Set(d.Seconds())
}

func (m *Metrics) AddItemsSubmitted(phase string, n int) {
	m.itemsSubmitted.WithLabelValues(phase).Add(float64(n))
}

// Flush pushes the collected run metrics. Failures are logged, never
// fatal: accounting must not block billing.
func (m *Metrics) Flush() {
	if m.pusher == nil {
		return
	}
	if err := m.pusher.Push(); err != nil {
		m.log.Warn("metrics push failed", zap.Error(err))
	}
}
