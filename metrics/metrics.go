/*
Package metrics exposes Prometheus counters for the settlement paths.

PURPOSE:
  Settlement failures in best-effort mode do not fail the user-facing
  request, so the counters here (plus logs) are the operator's only view
  of drift between schedules and the energy ledger.
*/
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SettlementAttempts counts settlement calls by operation
	// (lock, return, forfeit).
	SettlementAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "energy_settlement_attempts_total",
		Help: "Energy settlement calls by operation.",
	}, []string{"operation"})

	// SettlementFailures counts failed settlement calls by operation and
	// failure reason (insufficient, conflict, not_found, unavailable).
	SettlementFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "energy_settlement_failures_total",
		Help: "Failed energy settlement calls by operation and reason.",
	}, []string{"operation", "reason"})

	// LockConflicts counts lock attempts rejected because an active lock
	// already existed for the wallet and job.
	LockConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "energy_lock_conflicts_total",
		Help: "Lock attempts rejected by an existing active lock.",
	})

	// NoShowsRecorded counts schedules resolved as no-shows.
	NoShowsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schedule_no_shows_total",
		Help: "Schedules resolved as no-shows.",
	})
)

// Handler returns the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
