package infrastructure

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"referral-intake/domain"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Submissions     *prometheus.CounterVec
	Scoring         *prometheus.CounterVec
	ScoringDuration prometheus.Histogram
	StatusChanges   *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "referral_submissions_total",
			Help: "Referral submissions by outcome (accepted, invalid, error).",
		}, []string{"outcome"}),
		Scoring: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "referral_scoring_total",
			Help: "Scoring calls by result status (scored, fallback).",
		}, []string{"status"}),
		ScoringDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "referral_scoring_duration_seconds",
			Help:    "Time spent obtaining a fit score, including retries.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		StatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "referral_status_changes_total",
			Help: "Applied reviewer status transitions by target status.",
		}, []string{"to"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "referral_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
	}
	reg.MustRegister(m.Submissions, m.Scoring, m.ScoringDuration, m.StatusChanges, m.HTTPRequests)
	return m
}

func (m *Metrics) ObserveScoring(status domain.ScoringStatus, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Scoring.WithLabelValues(string(status)).Inc()
	m.ScoringDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStatusChange(to domain.Status) {
	if m == nil {
		return
	}
	m.StatusChanges.WithLabelValues(string(to)).Inc()
}

func (m *Metrics) ObserveRequest(method, route, code string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, code).Inc()
}
