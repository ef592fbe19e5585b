package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	EventsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_events_received_total",
			Help: "Raw events received, by source",
		},
		[]string{"source"},
	)

	EventsMalformed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "order_events_malformed_total",
			Help: "Events dropped because the payload could not be parsed",
		},
	)

	EventsDuplicate = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "order_events_duplicate_total",
			Help: "Confirmed orders rejected by the dedup window",
		},
	)

	OrdersAccepted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_accepted_total",
			Help: "Confirmed orders accepted for printing",
		},
	)

	PrintJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "print_jobs_total",
			Help: "Print copy submissions, by destination and result",
		},
		[]string{"destination", "result"},
	)

	StreamConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_connected",
			Help: "1 while the event stream connection is up",
		},
	)
)

func init() {
	prometheus.MustRegister(
		EventsReceived,
		EventsMalformed,
		EventsDuplicate,
		OrdersAccepted,
		PrintJobs,
		StreamConnected,
	)
}
