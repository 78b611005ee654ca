package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caseflow_transitions_total",
			Help: "Total number of stage transitions by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	ApprovalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caseflow_approvals_total",
			Help: "Total number of approval decisions by action",
		},
		[]string{"action"},
	)

	DeadlinesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caseflow_deadlines_created_total",
			Help: "Total number of deadlines created by type",
		},
		[]string{"type"},
	)

	DeadlinesEscalated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "caseflow_deadlines_escalated_total",
			Help: "Total number of missed deadlines escalated",
		},
	)

	RemindersSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "caseflow_deadline_reminders_total",
			Help: "Total number of deadline reminders sent",
		},
	)

	ActionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caseflow_action_failures_total",
			Help: "Total number of stage action executions that failed",
		},
		[]string{"action_type"},
	)

	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "caseflow_sweep_duration_seconds",
			Help:    "Scheduler sweep duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"job"},
	)
)
