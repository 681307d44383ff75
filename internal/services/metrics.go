package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// submissionsTotal counts HandleSubmission calls by result
	// (accepted, invalid_uid, invalid_requester, error).
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invitegate_submissions_total",
			Help: "UID submissions by result.",
		},
		[]string{"result"},
	)

	// decisionsTotal counts HandleDecision calls by decision and outcome.
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invitegate_decisions_total",
			Help: "Operator decisions by decision and outcome.",
		},
		[]string{"decision", "outcome"},
	)

	// sideEffectDuration records blocking external calls on the approve path.
	sideEffectDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "invitegate_side_effect_duration_seconds",
			Help:    "Duration of invite creation and delivery calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"call", "result"},
	)

	// dispatchDropped counts best-effort jobs dropped on a full queue.
	dispatchDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invitegate_dispatch_dropped_total",
			Help: "Best-effort notifications dropped because the queue was full.",
		},
		[]string{"job"},
	)
)

func init() {
	prometheus.MustRegister(submissionsTotal, decisionsTotal, sideEffectDuration, dispatchDropped)
}

func observeCall(call string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	sideEffectDuration.WithLabelValues(call, result).Observe(time.Since(start).Seconds())
}
