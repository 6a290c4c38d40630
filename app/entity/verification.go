package entity

import "time"

type VerificationStatus string

const (
	VerificationPendingQueue    VerificationStatus = "PENDING_QUEUE"
	VerificationVerified        VerificationStatus = "VERIFIED"
	VerificationRejected        VerificationStatus = "REJECTED"
	VerificationEscalated       VerificationStatus = "ESCALATED"
	VerificationRefundRequested VerificationStatus = "REFUND_REQUESTED"
)

func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationPendingQueue, VerificationVerified, VerificationRejected,
		VerificationEscalated, VerificationRefundRequested:
		return true
	default:
		return false
	}
}

// IsDecision reports whether the status is an outcome a verifier can record.
func (s VerificationStatus) IsDecision() bool {
	return s.Valid() && s != VerificationPendingQueue
}

// Disputable reports whether a patient or doctor may contest the decision.
func (s VerificationStatus) Disputable() bool {
	return s == VerificationVerified || s == VerificationRejected
}

type PaymentVerification struct {
	ID        uint64
	PaymentID uint64

	VerifierUserID *string
	VerifierKind   *ActorKind
	ClaimedAt      *time.Time

	Status     VerificationStatus
	Notes      *string
	VerifiedAt *time.Time
	Disputed   bool

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (v *PaymentVerification) Claimed() bool {
	return v.VerifierUserID != nil && *v.VerifierUserID != ""
}

func (v *PaymentVerification) ClaimedBy(actor Actor) bool {
	return v.Claimed() && *v.VerifierUserID == actor.ID && v.VerifierKind != nil && *v.VerifierKind == actor.Kind
}

func (v *PaymentVerification) ReleaseClaim() {
	v.VerifierUserID = nil
	v.VerifierKind = nil
	v.ClaimedAt = nil
}
