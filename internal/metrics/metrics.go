// Package metrics exposes Prometheus collectors for interview and oracle activity.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/spigell/hh-interviewer/internal/interview"
)

const namespace = "hh_interviewer"

// Metrics implements the observer hooks of the evaluator and the orchestrator.
// A nil *Metrics is a valid no-op.
type Metrics struct {
	oracleCalls      *prometheus.CounterVec
	oracleLatency    *prometheus.HistogramVec
	verdicts         *prometheus.CounterVec
	qualityFlags     *prometheus.CounterVec
	sessionsStarted  prometheus.Counter
	sessionsComplete prometheus.Counter
	transitions      *prometheus.CounterVec
	fallbackPicks    prometheus.Counter
	storeErrors      *prometheus.CounterVec
	overallScore     prometheus.Histogram
}

// MustNewMetrics registers the collectors with reg, reusing collectors that
// are already registered. Any other registration error panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &Metrics{
		oracleCalls: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "calls_total",
			Help:      "Oracle grading calls by outcome.",
		}, []string{"outcome"})),
		oracleLatency: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "call_duration_seconds",
			Help:      "Latency of oracle grading calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"outcome"})),
		verdicts: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "verdicts_total",
			Help:      "Graded answers by confidence and whether consensus was used.",
		}, []string{"confidence", "consensus"})),
		qualityFlags: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "quality_flags_total",
			Help:      "Quality flags raised on answers.",
		}, []string{"flag"})),
		sessionsStarted: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "started_total",
			Help:      "Interviews started.",
		})),
		sessionsComplete: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "completed_total",
			Help:      "Interviews that reached the complete phase.",
		})),
		transitions: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "phase_transitions_total",
			Help:      "Phase transitions applied by the orchestrator.",
		}, []string{"from", "to"})),
		fallbackPicks: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "questions",
			Name:      "fallback_total",
			Help:      "Generic questions emitted after the bank was exhausted.",
		})),
		storeErrors: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Swallowed persistence failures by operation.",
		}, []string{"op"})),
		overallScore: register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "overall_score",
			Help:      "Overall score of completed interviews.",
			Buckets:   prometheus.LinearBuckets(10, 10, 9),
		})),
	}
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// OracleCall records one oracle sample.
func (m *Metrics) OracleCall(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.oracleCalls.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		m.oracleLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
	}
}

// Verdict records a graded answer.
func (m *Metrics) Verdict(v interview.Verdict) {
	if m == nil {
		return
	}
	consensus := "false"
	if v.ConsensusUsed {
		consensus = "true"
	}
	m.verdicts.WithLabelValues(string(v.Confidence), consensus).Inc()
	for _, f := range v.QualityFlags {
		m.qualityFlags.WithLabelValues(string(f)).Inc()
	}
}

// SessionStarted counts a new interview.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

// PhaseTransition counts a phase change.
func (m *Metrics) PhaseTransition(from, to interview.Phase) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// SessionCompleted records a finished interview and its score.
func (m *Metrics) SessionCompleted(summary interview.Summary) {
	if m == nil {
		return
	}
	m.sessionsComplete.Inc()
	m.overallScore.Observe(summary.OverallScore)
}

// FallbackQuestion counts a generic question pick.
func (m *Metrics) FallbackQuestion() {
	if m == nil {
		return
	}
	m.fallbackPicks.Inc()
}

// StoreError counts a swallowed persistence failure.
func (m *Metrics) StoreError(op string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(op).Inc()
}
