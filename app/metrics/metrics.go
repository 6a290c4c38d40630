// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	paymentTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_status_transitions_total",
		Help: "Payment ledger status transitions",
	}, []string{"from", "to"})

	verificationClaimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verification_claims_total",
		Help: "Verification queue claim attempts by outcome",
	}, []string{
		"outcome", // claimed, empty, already_claimed
	})

	verificationDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verification_decisions_total",
		Help: "Verification decisions by decision and verifier kind",
	}, []string{"decision", "verifier_kind"})

	verificationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "verification_queue_depth",
		Help: "Verifications waiting in PENDING_QUEUE, sampled by the stale-claim sweep",
	})

	staleClaimsReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verification_stale_claims_released_total",
		Help: "Claims returned to the queue after the claim timeout",
	})

	disputeTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispute_transitions_total",
		Help: "Dispute stage transitions",
	}, []string{"to_stage", "resolution_status"})

	disputeHistoryMismatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispute_history_mismatches_total",
		Help: "Disputes whose replayed history disagrees with the stored state",
	})

	refundsRequestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refunds_requested_total",
		Help: "Refund requests by cancelling party and outcome",
	}, []string{
		"cancelled_by",
		"kind", // full, partial, none
	})

	outboxDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_deliveries_total",
		Help: "Outbox event delivery attempts",
	}, []string{
		"event_type",
		"status", // published, retry, failed
	})

	outboxDeliveryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_delivery_duration_seconds",
		Help:    "Time spent publishing one outbox event",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"publisher"})
)

func RecordPaymentTransition(from, to string) {
	paymentTransitionsTotal.WithLabelValues(from, to).Inc()
}

func RecordClaim(outcome string) {
	verificationClaimsTotal.WithLabelValues(outcome).Inc()
}

func RecordDecision(decision, verifierKind string) {
	verificationDecisionsTotal.WithLabelValues(decision, verifierKind).Inc()
}

func SetQueueDepth(depth int64) {
	verificationQueueDepth.Set(float64(depth))
}

func RecordStaleClaimsReleased(count int64) {
	if count > 0 {
		staleClaimsReleasedTotal.Add(float64(count))
	}
}

func RecordDisputeTransition(toStage, resolution string) {
	disputeTransitionsTotal.WithLabelValues(toStage, resolution).Inc()
}

func RecordHistoryMismatch() {
	disputeHistoryMismatchesTotal.Inc()
}

func RecordRefund(cancelledBy, kind string) {
	refundsRequestedTotal.WithLabelValues(cancelledBy, kind).Inc()
}

// RecordOutboxDelivery records one publish attempt and its latency in seconds.
func RecordOutboxDelivery(publisher, eventType, status string, duration float64) {
	outboxDeliveriesTotal.WithLabelValues(eventType, status).Inc()
	outboxDeliveryDuration.WithLabelValues(publisher).Observe(duration)
}
