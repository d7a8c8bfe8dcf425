// Package metrics holds the Prometheus collectors served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarkAttempts counts attendance submissions by outcome.
	MarkAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "mark_attempts_total",
		Help:      "Attendance mark attempts by outcome.",
	}, []string{"outcome"})

	// TokensIssued counts generated tokens by session kind.
	TokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "tokens_issued_total",
		Help:      "Attendance tokens generated by session kind.",
	}, []string{"kind"})

	ExportsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "exports_written_total",
		Help:      "Attendance report files written.",
	})
)
