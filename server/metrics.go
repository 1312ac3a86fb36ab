package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "pgpchat"

var (
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_sessions",
			Help:      "Number of live sessions",
		},
	)
	relayedMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "relayed_messages_total",
			Help:      "Number of messages appended to conversation logs",
		},
	)
	droppedDeliveries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dropped_deliveries_total",
			Help:      "Number of notifications not delivered because the peer was offline or slow",
		},
	)
	handledRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Number of requests handled, by action",
		},
		[]string{"action"},
	)
	requestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "request_errors_total",
			Help:      "Number of error notifications sent, by failure class",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(activeSessions)
	prometheus.MustRegister(relayedMessages)
	prometheus.MustRegister(droppedDeliveries)
	prometheus.MustRegister(handledRequests)
	prometheus.MustRegister(requestErrors)
}
