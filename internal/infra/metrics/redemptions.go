package metrics

import (
	"restaurant-loyalty/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		redemptionTransitionsTotal,
		redemptionFailuresTotal,
		redemptionsSweptTotal,
		redemptionsByStatus,
	)
}

var (
	redemptionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redemption_transitions_total",
			Help: "Redemption lifecycle transitions by resulting status.",
		},
		[]string{"status"}, // 'pending', 'activated', 'completed', 'expired'
	)

	redemptionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redemption_failures_total",
			Help: "Rejected redemption operations by reason.",
		},
		[]string{"op", "reason"},
	)

	redemptionsSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "redemptions_swept_total",
			Help: "Stale activated redemptions expired by the sweep worker.",
		},
	)

	redemptionsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "redemptions_by_status",
			Help: "Current number of redemptions by restaurant and status.",
		},
		[]string{"restaurant", "status"},
	)
)

func IncRedemptionTransition(status model.RedemptionStatus) {
	redemptionTransitionsTotal.WithLabelValues(string(status)).Inc()
}

func IncRedemptionFailure(op, reason string) {
	redemptionFailuresTotal.WithLabelValues(op, reason).Inc()
}

func IncRedemptionsSwept(count int) {
	redemptionsSweptTotal.Add(float64(count))
}

func SetRedemptionsByStatus(restaurantID string, counts map[model.RedemptionStatus]int) {
	statuses := []model.RedemptionStatus{
		model.RedemptionStatusPending,
		model.RedemptionStatusActivated,
		model.RedemptionStatusCompleted,
		model.RedemptionStatusExpired,
	}
	for _, status := range statuses {
		if count, ok := counts[status]; ok {
			redemptionsByStatus.WithLabelValues(restaurantID, string(status)).Set(float64(count))
		}
	}
}
