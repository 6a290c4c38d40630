package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
)

// PaymentEventPayload is the JSON body of payment.* outbox events.
type PaymentEventPayload struct {
	PaymentID     uint64 `json:"payment_id"`
	AppointmentID string `json:"appointment_id"`
	PatientUserID string `json:"patient_user_id"`
	DoctorID      string `json:"doctor_id"`
	FromStatus    string `json:"from_status,omitempty"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	RefundAmount  string `json:"refund_amount,omitempty"`
	ActorKind     string `json:"actor_kind,omitempty"`
	ActorID       string `json:"actor_id,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

// DisputeEventPayload is the JSON body of dispute.* outbox events.
type DisputeEventPayload struct {
	DisputeID        uint64 `json:"dispute_id"`
	VerificationID   uint64 `json:"verification_id"`
	PaymentID        uint64 `json:"payment_id"`
	FromStage        string `json:"from_stage,omitempty"`
	Stage            string `json:"stage"`
	ResolutionStatus string `json:"resolution_status"`
	ActorKind        string `json:"actor_kind"`
	ActorID          string `json:"actor_id"`
	OccurredAt       string `json:"occurred_at"`
}

var paymentEventTypes = map[entity.PaymentStatus]string{
	entity.PaymentPendingVerification: entity.EventPaymentSubmitted,
	entity.PaymentVerified:            entity.EventPaymentVerified,
	entity.PaymentRejected:            entity.EventPaymentRejected,
	entity.PaymentAuthorized:          entity.EventPaymentAuthorized,
	entity.PaymentCaptured:            entity.EventPaymentCaptured,
	entity.PaymentRefundRequested:     entity.EventPaymentRefundRequested,
	entity.PaymentRefunded:            entity.EventPaymentRefunded,
	entity.PaymentFailed:              entity.EventPaymentFailed,
}

func (s *PaymentService) enqueuePaymentEvent(ctx context.Context, payment *entity.Payment, from entity.PaymentStatus, actor entity.Actor, now time.Time) error {
	payload := PaymentEventPayload{
		PaymentID:     payment.ID,
		AppointmentID: payment.AppointmentID,
		PatientUserID: payment.PatientUserID,
		DoctorID:      payment.DoctorID,
		FromStatus:    string(from),
		Status:        string(payment.Status),
		Amount:        payment.Amount.String(),
		Currency:      payment.Currency,
		ActorKind:     string(actor.Kind),
		ActorID:       actor.ID,
		OccurredAt:    now.Format(time.RFC3339Nano),
	}
	if payment.RefundAmount.Valid {
		payload.RefundAmount = payment.RefundAmount.Decimal.String()
	}

	return s.enqueue(ctx, entity.AggregatePayment, payment.ID, paymentEventTypes[payment.Status], payment.PatientUserID, payload, now)
}

func (s *PaymentService) enqueueDisputeEvent(ctx context.Context, eventType string, dispute *entity.PaymentDispute, from *entity.DisputeStage, recipient string, actor entity.Actor, now time.Time) error {
	payload := DisputeEventPayload{
		DisputeID:        dispute.ID,
		VerificationID:   dispute.VerificationID,
		PaymentID:        dispute.PaymentID,
		Stage:            string(dispute.Stage),
		ResolutionStatus: string(dispute.ResolutionStatus),
		ActorKind:        string(actor.Kind),
		ActorID:          actor.ID,
		OccurredAt:       now.Format(time.RFC3339Nano),
	}
	if from != nil {
		payload.FromStage = string(*from)
	}

	return s.enqueue(ctx, entity.AggregateDispute, dispute.ID, eventType, recipient, payload, now)
}

// enqueue writes a pending outbox row on the caller's transaction.
func (s *PaymentService) enqueue(ctx context.Context, aggregateType string, aggregateID uint64, eventType, recipient string, payload interface{}, now time.Time) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return s.outboxRepo.Create(ctx, &entity.OutboxEvent{
		EventID:         uuid.NewString(),
		AggregateType:   aggregateType,
		AggregateID:     aggregateID,
		EventType:       eventType,
		RecipientUserID: stringPtr(recipient),
		PayloadJSON:     string(body),
		Status:          entity.OutboxPending,
		NextAttemptAt:   timePtr(now),
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}
