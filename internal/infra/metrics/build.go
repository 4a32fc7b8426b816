package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(buildInfo)
}

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "loyalty_build_info",
		Help: "Build metadata; value is always 1.",
	},
	[]string{"version"},
)

func SetBuildInfo(version string) {
	buildInfo.WithLabelValues(version).Set(1)
}
