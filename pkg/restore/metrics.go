package restore

import (
	"github.com/frostworks/thawd/pkg/debug"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	messagesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "thawd",
		Subsystem: "restore",
		Name:      "messages_received_total",
		Help:      "Total queue messages received",
	})

	messagesAcked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "thawd",
		Subsystem: "restore",
		Name:      "messages_acked_total",
		Help:      "Total queue messages deleted",
	}, []string{"reason"}) // reason: "processed", "malformed"

	decodeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "thawd",
		Subsystem: "restore",
		Name:      "decode_failures_total",
		Help:      "Total envelope decode failures",
	}, []string{"kind"}) // kind: "parse", "missing_field"

	receiveErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "thawd",
		Subsystem: "restore",
		Name:      "receive_errors_total",
		Help:      "Total queue receive call failures",
	})

	restoresProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "thawd",
		Subsystem: "restore",
		Name:      "requests_processed_total",
		Help:      "Total restore requests processed",
	}, []string{"outcome"}) // outcome: "ok", "no_items", "store_unavailable"

	retrievalsInitiated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "thawd",
		Subsystem: "restore",
		Name:      "retrievals_initiated_total",
		Help:      "Total retrievals accepted by the archive service",
	}, []string{"tier"})

	retrievalFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "thawd",
		Subsystem: "restore",
		Name:      "retrieval_failures_total",
		Help:      "Total terminally failed retrieval initiations",
	}, []string{"tier"})

	orphanedRetrievals = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "thawd",
		Subsystem: "restore",
		Name:      "orphaned_retrievals_total",
		Help:      "Retrievals accepted by the archive service whose job id could not be persisted",
	})
)

func init() {
	debug.Registry().MustRegister(
		messagesReceived,
		messagesAcked,
		decodeFailures,
		receiveErrors,
		restoresProcessed,
		retrievalsInitiated,
		retrievalFailures,
		orphanedRetrievals,
	)
}
