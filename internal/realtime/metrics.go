package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "circulate_ws_connections",
		Help: "Currently connected websocket clients.",
	})

	metricWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "circulate_ws_writes_total",
		Help: "Full-set replace writes applied via the gateway.",
	})

	metricSnapshots = promauto.NewCounter(prometheus.CounterOpts{
		Name: "circulate_ws_snapshots_sent_total",
		Help: "Snapshot envelopes pushed to clients.",
	})

	metricErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "circulate_ws_errors_total",
		Help: "Error envelopes sent to clients.",
	})
)
