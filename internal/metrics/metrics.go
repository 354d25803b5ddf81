// Package metrics exposes the Prometheus counters the observability
// plumbing component needs: presign issuance, rate-limit rejections,
// sweeper progress, and signaling session counts.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PresignsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sharesync_presigns_issued_total",
		Help: "Presigned URLs issued by the object-storage gateway.",
	}, []string{"operation"})

	ShareErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sharesync_share_errors_total",
		Help: "Errors returned while serving share operations, by taxonomy code.",
	}, []string{"code"})

	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sharesync_rate_limit_rejections_total",
		Help: "Requests rejected by the admission controller, by bucket.",
	}, []string{"bucket"})

	RateLimitStoreDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sharesync_rate_limit_store_degraded_total",
		Help: "Times the shared rate-limit store was unavailable and local counters were used instead.",
	})

	SweepBatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sharesync_sweep_batches_total",
		Help: "Sweeper batches processed.",
	})

	SweepSharesExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sharesync_sweep_shares_expired_total",
		Help: "Shares transitioned to expired by the sweeper.",
	})

	SweepDeletionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sharesync_sweep_deletion_failures_total",
		Help: "Object deletions that failed and were scheduled for retry.",
	})

	SignalingSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sharesync_signaling_sessions_active",
		Help: "Peer sessions currently joined to a room.",
	})

	SignalingRoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sharesync_signaling_rooms_active",
		Help: "Rooms currently holding at least one peer.",
	})
)
