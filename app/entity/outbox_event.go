package entity

import "time"

const (
	OutboxPending   int32 = 1
	OutboxPublished int32 = 10
	OutboxFailed    int32 = 20
)

const (
	AggregatePayment = "payment"
	AggregateDispute = "dispute"
)

const (
	EventPaymentSubmitted       = "payment.submitted"
	EventPaymentVerified        = "payment.verified"
	EventPaymentRejected        = "payment.rejected"
	EventPaymentAuthorized      = "payment.authorized"
	EventPaymentCaptured        = "payment.captured"
	EventPaymentRefundRequested = "payment.refund_requested"
	EventPaymentRefunded        = "payment.refunded"
	EventPaymentFailed          = "payment.failed"
	EventDisputeRaised          = "dispute.raised"
	EventDisputeEscalated       = "dispute.escalated"
	EventDisputeResolved        = "dispute.resolved"
)

type OutboxEvent struct {
	ID      uint64
	EventID string

	AggregateType string
	AggregateID   uint64
	EventType     string

	RecipientUserID *string
	PayloadJSON     string

	Status        int32
	Attempts      int32
	NextAttemptAt *time.Time
	LastError     *string
	PublishedAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
