package sessioncore

// This file is the single source of truth for metric names, labels, and
// help strings. The host application exposes them by serving the default
// Prometheus registry.

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "session"

// LoginsTotal counts login attempts by outcome.
// Label:
//   - result: "success", "rejected" (client-class error), or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// RefreshesTotal counts background refresh attempts by outcome.
// Label:
//   - result: "success", "failure", or "discarded" (stale epoch)
var RefreshesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "refreshes_total",
		Help:      "Total number of credential refresh attempts, by result.",
	},
	[]string{"result"},
)

// ForcedLogoutsTotal counts sessions dropped without explicit user action.
// A failed background refresh is the only path that increments this.
var ForcedLogoutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "forced_logouts_total",
		Help:      "Total number of sessions dropped by a failed background refresh.",
	},
)

// LogoutsTotal counts explicit logouts, including repeats on an already
// unauthenticated session.
var LogoutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "logouts_total",
		Help:      "Total number of explicit logout calls.",
	},
)

// GuardDecisionsTotal counts route guard outcomes.
// Label:
//   - decision: "allow", "deny", or "pending"
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of route guard decisions, by outcome.",
	},
	[]string{"decision"},
)

// SessionsRestoredTotal counts sessions rebuilt from persisted credentials
// at startup.
var SessionsRestoredTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "sessions_restored_total",
		Help:      "Total number of sessions restored from the credential store at initialize.",
	},
)
