package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ScanMetrics 单次扫描进程的指标，使用独立 registry
type ScanMetrics struct {
	Registry *prometheus.Registry

	StateTransitions *prometheus.CounterVec
	Attempts         prometheus.Counter
	Resolutions      *prometheus.CounterVec
	Findings         *prometheus.CounterVec
	Outcomes         *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	ScanDuration     prometheus.Histogram
	LastScore        prometheus.Gauge
}

func NewScanMetrics() *ScanMetrics {
	m := &ScanMetrics{
		Registry: prometheus.NewRegistry(),
		StateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartscan_state_transitions_total",
			Help: "Scan state machine transitions by target state",
		}, []string{"state"}),
		Attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartscan_attempts_total",
			Help: "Pipeline attempts including retries",
		}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartscan_resolutions_total",
			Help: "Contract resolutions by chain and result (source, bytecode, failed)",
		}, []string{"chain", "result"}),
		Findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartscan_static_findings_total",
			Help: "Static analysis findings by tool and impact",
		}, []string{"tool", "impact"}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartscan_scans_total",
			Help: "Finished scans by chain and outcome",
		}, []string{"chain", "outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "smartscan_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "smartscan_scan_duration_seconds",
			Help:    "Wall time of a whole scan including retries",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		LastScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "smartscan_last_security_score",
			Help: "Security score of the last scan, -1 when unavailable",
		}),
	}
	m.Registry.MustRegister(
		m.StateTransitions,
		m.Attempts,
		m.Resolutions,
		m.Findings,
		m.Outcomes,
		m.StageDuration,
		m.ScanDuration,
		m.LastScore,
	)
	return m
}

// ObserveStage 返回一个结束计时的函数
func (m *ScanMetrics) ObserveStage(stage string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

func (m *ScanMetrics) Transition(state string) {
	if m == nil {
		return
	}
	m.StateTransitions.WithLabelValues(state).Inc()
}

// WriteTextfile 以 node_exporter textfile 格式写出
func (m *ScanMetrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
