package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for the intake pipeline.
type PipelineMetrics struct {
	gateChecks       *prometheus.CounterVec
	analyzerCalls    *prometheus.CounterVec
	reportsTotal     *prometheus.CounterVec
	lockContention   prometheus.Counter
	reportLatency    prometheus.Histogram
	referralsTotal   *prometheus.CounterVec
	messagesAccepted *prometheus.CounterVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		gateChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "gate",
			Name:      "checks_total",
			Help:      "Completeness gate checks by outcome",
		}, []string{"triggered", "action"}),
		analyzerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "analyzer",
			Name:      "calls_total",
			Help:      "Completion analyzer evaluations by source",
		}, []string{"source", "complete"}),
		reportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "reports",
			Name:      "generated_total",
			Help:      "Automatic diagnostic report attempts by status",
		}, []string{"status"}),
		lockContention: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "reports",
			Name:      "lock_contention_total",
			Help:      "Report generation attempts rejected by an active lock",
		}),
		reportLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "reports",
			Name:      "generation_seconds",
			Help:      "Latency of automatic report generation",
			Buckets:   prometheus.DefBuckets,
		}),
		referralsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "referrals",
			Name:      "detected_total",
			Help:      "Specialist referrals detected by source",
		}, []string{"source"}),
		messagesAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "collector",
			Name:      "messages_total",
			Help:      "Patient messages processed by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.gateChecks,
		m.analyzerCalls,
		m.reportsTotal,
		m.lockContention,
		m.reportLatency,
		m.referralsTotal,
		m.messagesAccepted,
	)
	return m
}

func (m *PipelineMetrics) ObserveGateCheck(triggered bool, action string) {
	if m == nil {
		return
	}
	m.gateChecks.WithLabelValues(boolLabel(triggered), action).Inc()
}

func (m *PipelineMetrics) ObserveAnalyzer(source string, complete bool) {
	if m == nil {
		return
	}
	m.analyzerCalls.WithLabelValues(source, boolLabel(complete)).Inc()
}

func (m *PipelineMetrics) ObserveReport(status string, seconds float64) {
	if m == nil {
		return
	}
	m.reportsTotal.WithLabelValues(status).Inc()
	if seconds >= 0 {
		m.reportLatency.Observe(seconds)
	}
}

func (m *PipelineMetrics) ObserveLockContention() {
	if m == nil {
		return
	}
	m.lockContention.Inc()
}

func (m *PipelineMetrics) ObserveReferral(source string) {
	if m == nil {
		return
	}
	m.referralsTotal.WithLabelValues(source).Inc()
}

func (m *PipelineMetrics) ObserveMessage(outcome string) {
	if m == nil {
		return
	}
	m.messagesAccepted.WithLabelValues(outcome).Inc()
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
