package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		balanceAdjustmentsTotal,
		pointsLiability,
	)
}

var (
	balanceAdjustmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "balance_adjustments_total",
			Help: "Ledger adjustments by direction and outcome.",
		},
		[]string{"direction", "outcome"}, // earn|spend, applied|refused
	)

	pointsLiability = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "points_liability",
			Help: "Sum of outstanding points per restaurant.",
		},
		[]string{"restaurant"},
	)
)

func IncBalanceAdjustment(direction, outcome string) {
	balanceAdjustmentsTotal.WithLabelValues(direction, outcome).Inc()
}

func SetPointsLiability(restaurantID string, points int) {
	pointsLiability.WithLabelValues(restaurantID).Set(float64(points))
}
