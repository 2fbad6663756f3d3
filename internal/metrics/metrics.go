// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "castlink"

var (
	AuthRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "requests_total",
		Help:      "GraphQL calls made by the credential machine, by operation and result.",
	}, []string{"op", "result"})

	RefreshRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "refresh_runs_total",
		Help:      "Completed refresh runs by outcome.",
	}, []string{"outcome"})

	Sessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "active",
		Help:      "Sessions currently held by the registry.",
	})

	EmptyRooms = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "empty_room_events_total",
		Help:      "Times the last attendee left a session.",
	})
)
