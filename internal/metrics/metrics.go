package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's collectors. A nil *Metrics records nothing.
type Metrics struct {
	// LinksCreated counts links handed out to admins.
	LinksCreated prometheus.Counter
	// Admissions counts admission attempts by outcome (admitted, readmitted, full, not_found).
	Admissions *prometheus.CounterVec
	// Submissions counts recorded submissions by path (link, direct) and mode (manual, auto).
	Submissions *prometheus.CounterVec
	// SubmissionRejections counts refused submissions by reason.
	SubmissionRejections *prometheus.CounterVec
	// LiveAttempts is the number of attempts currently held in memory.
	LiveAttempts prometheus.Gauge
	// ScorePercentage observes the percentage of every recorded result.
	ScorePercentage prometheus.Histogram
	// Events counts published domain events by type.
	Events *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LinksCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "quizlink_links_created_total",
			Help: "Total number of quiz links created",
		}),
		Admissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quizlink_admissions_total",
			Help: "Total number of admission attempts by outcome",
		}, []string{"outcome"}),
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quizlink_submissions_total",
			Help: "Total number of recorded submissions by path and mode",
		}, []string{"path", "mode"}),
		SubmissionRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quizlink_submission_rejections_total",
			Help: "Total number of refused submissions by reason",
		}, []string{"reason"}),
		LiveAttempts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "quizlink_live_attempts",
			Help: "Number of attempts in progress",
		}),
		ScorePercentage: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "quizlink_score_percentage",
			Help:    "Distribution of result percentages",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quizlink_event_total",
			Help: "Total number of events by event type",
		}, []string{"event_type"}),
	}
}

// RecordLinkCreated records a new link.
func (m *Metrics) RecordLinkCreated() {
	if m == nil {
		return
	}
	m.LinksCreated.Inc()
}

// RecordAdmission records an admission outcome.
func (m *Metrics) RecordAdmission(outcome string) {
	if m == nil {
		return
	}
	m.Admissions.WithLabelValues(outcome).Inc()
}

// RecordSubmission records a stored result.
func (m *Metrics) RecordSubmission(path string, auto bool, percentage int) {
	if m == nil {
		return
	}
	mode := "manual"
	if auto {
		mode = "auto"
	}
	m.Submissions.WithLabelValues(path, mode).Inc()
	m.ScorePercentage.Observe(float64(percentage))
}

// RecordRejection records a refused submission.
func (m *Metrics) RecordRejection(reason string) {
	if m == nil {
		return
	}
	m.SubmissionRejections.WithLabelValues(reason).Inc()
}

// SetLiveAttempts sets the live attempt gauge.
func (m *Metrics) SetLiveAttempts(n int) {
	if m == nil {
		return
	}
	m.LiveAttempts.Set(float64(n))
}

// RecordEvent records an event with the given event type.
func (m *Metrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(eventType).Inc()
}
