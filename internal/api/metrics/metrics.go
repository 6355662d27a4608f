// Package metrics defines and registers all custom Prometheus metrics for
// the chatsync service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics register with the default Prometheus registry via promauto at
// package load; the router exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chatsync"

// SyncOperationsTotal counts synchronization operations that completed.
// Label:
//   - operation: "provision_identity", "provision_room", "sync_membership"
var SyncOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_operations_total",
		Help:      "Total number of chat synchronization operations that completed successfully.",
	},
	[]string{"operation"},
)

// SoftFailuresTotal counts internal failures absorbed at the isolation
// boundary. The owning domain transaction succeeds in every one of these.
// Label:
//   - operation: the boundary entry point that failed
var SoftFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "soft_failures_total",
		Help:      "Total number of internal failures logged and swallowed at the subsystem boundary.",
	},
	[]string{"operation"},
)

// MembershipTransitionsTotal counts membership transitions by direction.
// Label:
//   - desired: "member" or "non-member"
var MembershipTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "membership_transitions_total",
		Help:      "Total number of membership transitions dispatched, by desired state.",
	},
	[]string{"desired"},
)

// QueueDepth tracks the number of membership transitions waiting in each
// dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index ("0", "1", …)
var QueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current number of membership transitions pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// SyncDuration measures how long one membership transition takes from
// dequeue to completion. Failures are not distinguished here; they are
// counted by SoftFailuresTotal at the boundary.
var SyncDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sync_duration_seconds",
		Help:      "Duration of membership synchronization from dequeue to completion.",
		Buckets:   prometheus.DefBuckets,
	},
)
