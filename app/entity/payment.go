package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPendingVerification PaymentStatus = "PENDING_VERIFICATION"
	PaymentVerified            PaymentStatus = "VERIFIED"
	PaymentRejected            PaymentStatus = "REJECTED"
	PaymentAuthorized          PaymentStatus = "AUTHORIZED"
	PaymentCaptured            PaymentStatus = "CAPTURED"
	PaymentRefundRequested     PaymentStatus = "REFUND_REQUESTED"
	PaymentRefunded            PaymentStatus = "REFUNDED"
	PaymentFailed              PaymentStatus = "FAILED"
)

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodWallet       PaymentMethod = "WALLET"
	MethodCard         PaymentMethod = "CARD"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodWallet, MethodCard:
		return true
	default:
		return false
	}
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPendingVerification, PaymentVerified, PaymentRejected, PaymentAuthorized,
		PaymentCaptured, PaymentRefundRequested, PaymentRefunded, PaymentFailed:
		return true
	default:
		return false
	}
}

// Active reports whether the payment still holds the appointment's single payment slot.
func (s PaymentStatus) Active() bool {
	switch s {
	case PaymentRejected, PaymentFailed, PaymentRefunded:
		return false
	default:
		return true
	}
}

// CanTransitionTo walks the ledger graph. REJECTED only moves on (to a refund request)
// while the decision is under dispute.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus, disputed bool) bool {
	switch s {
	case PaymentPendingVerification:
		return target == PaymentVerified || target == PaymentRejected
	case PaymentVerified:
		return target == PaymentAuthorized || target == PaymentRefundRequested || target == PaymentFailed
	case PaymentAuthorized:
		return target == PaymentCaptured || target == PaymentRefundRequested || target == PaymentFailed
	case PaymentCaptured:
		return target == PaymentRefundRequested
	case PaymentRejected:
		return disputed && target == PaymentRefundRequested
	case PaymentRefundRequested:
		return target == PaymentRefunded || target == PaymentFailed
	default:
		return false
	}
}

func (s PaymentStatus) Refundable() bool {
	return s == PaymentVerified || s == PaymentAuthorized || s == PaymentCaptured
}

type Payment struct {
	ID uint64

	AppointmentID string
	PatientUserID string
	DoctorID      string
	AppointmentAt time.Time

	Amount   decimal.Decimal
	Currency string
	Method   PaymentMethod
	Status   PaymentStatus

	TransactionReference *string
	ReceiptURL           *string

	ExternalProvider *string
	ExternalStatus   *string

	AttemptCount  int32
	LastAttemptAt *time.Time

	VerifiedByUserID  *string
	VerificationNotes *string
	VerifiedAt        *time.Time
	CapturedAt        *time.Time

	RefundAmount      decimal.NullDecimal
	RefundRequestedAt *time.Time
	RefundedAt        *time.Time
	FailureReason     *string

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Payment) IncrementAttempt(now time.Time) {
	p.AttemptCount++
	p.LastAttemptAt = &now
}
