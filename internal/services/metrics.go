package services

import (
	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ReviewMetrics counts review outcomes. A nil registerer yields unregistered
// collectors.
type ReviewMetrics struct {
	transitions *prometheus.CounterVec
	bulkSize    prometheus.Histogram
	gradingJobs *prometheus.CounterVec
}

func NewReviewMetrics(reg prometheus.Registerer) *ReviewMetrics {
	factory := promauto.With(reg)

	return &ReviewMetrics{
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "result_review_transitions_total",
				Help: "Approval transitions attempted, by target status and outcome",
			},
			[]string{"target_status", "outcome"},
		),
		bulkSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "result_review_bulk_selection_size",
				Help:    "Distinct results per bulk transition request",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		gradingJobs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "result_review_grading_jobs_total",
				Help: "Grading jobs finished, by final status",
			},
			[]string{"status"},
		),
	}
}

func (m *ReviewMetrics) ObserveTransition(target models.ApprovalStatus, err error) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(target), OperationStatus(err)).Inc()
}

func (m *ReviewMetrics) ObserveBulkSize(n int) {
	if m == nil {
		return
	}
	m.bulkSize.Observe(float64(n))
}

func (m *ReviewMetrics) ObserveGradingJob(status models.GradingJobStatus) {
	if m == nil {
		return
	}
	m.gradingJobs.WithLabelValues(string(status)).Inc()
}
