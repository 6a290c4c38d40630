package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
	"github.com/vibast-solutions/ms-go-payment-verification/app/metrics"
	"github.com/vibast-solutions/ms-go-payment-verification/app/refund"
	"github.com/vibast-solutions/ms-go-payment-verification/app/repository"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

type submitPaymentRequest interface {
	GetAppointmentID() string
	GetPatientUserID() string
	GetDoctorID() string
	GetAppointmentAt() time.Time
	GetAmount() decimal.Decimal
	GetCurrency() string
	GetMethod() string
	GetTransactionReference() string
	GetReceiptURL() string
}

type listPaymentsRequest interface {
	GetAppointmentID() string
	GetPatientUserID() string
	GetDoctorID() string
	GetStatus() string
	GetLimit() int32
	GetOffset() int32
}

type verifyPaymentRequest interface {
	GetPaymentID() uint64
	GetStatus() string
	GetVerificationNotes() string
}

type refundPaymentRequest interface {
	GetPaymentID() uint64
	GetCancelledBy() string
	GetCancelledAt() time.Time
}

type failRefundRequest interface {
	GetPaymentID() uint64
	GetReason() string
}

// SubmitPayment records payment evidence for an appointment and enqueues it for verification.
func (s *PaymentService) SubmitPayment(ctx context.Context, actor entity.Actor, req submitPaymentRequest) (*entity.Payment, error) {
	if err := s.authorize(actor, entity.ActorPatient); err != nil {
		return nil, err
	}

	patientID := strings.TrimSpace(req.GetPatientUserID())
	if actor.Kind == entity.ActorPatient {
		if patientID != "" && patientID != actor.ID {
			return nil, fmt.Errorf("%w: patients submit only their own payments", ErrForbidden)
		}
		patientID = actor.ID
	}

	appointmentID := strings.TrimSpace(req.GetAppointmentID())
	doctorID := strings.TrimSpace(req.GetDoctorID())
	currency := strings.ToUpper(strings.TrimSpace(req.GetCurrency()))
	method := entity.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.GetMethod())))
	amount := req.GetAmount()

	switch {
	case appointmentID == "" || doctorID == "" || patientID == "":
		return nil, fmt.Errorf("%w: appointment, doctor and patient are required", ErrInvalidRequest)
	case req.GetAppointmentAt().IsZero():
		return nil, fmt.Errorf("%w: appointment_at is required", ErrInvalidRequest)
	case !amount.IsPositive():
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	case amount.Exponent() < -refund.MinorUnitPlaces(currency):
		return nil, fmt.Errorf("%w: amount has more decimals than %s allows", ErrInvalidRequest, currency)
	case !currencyPattern.MatchString(currency):
		return nil, fmt.Errorf("%w: currency must be an ISO 4217 code", ErrInvalidRequest)
	case !method.Valid():
		return nil, fmt.Errorf("%w: unsupported payment method", ErrInvalidRequest)
	}

	now := s.now()
	payment := &entity.Payment{
		AppointmentID:        appointmentID,
		PatientUserID:        patientID,
		DoctorID:             doctorID,
		AppointmentAt:        req.GetAppointmentAt().UTC(),
		Amount:               amount,
		Currency:             currency,
		Method:               method,
		Status:               entity.PaymentPendingVerification,
		TransactionReference: stringPtr(strings.TrimSpace(req.GetTransactionReference())),
		ReceiptURL:           stringPtr(strings.TrimSpace(req.GetReceiptURL())),
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.paymentRepo.FindActiveByAppointmentForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: appointment %s already has payment %d in %s", ErrInvalidState, appointmentID, existing.ID, existing.Status)
		}
		if err := s.ensureNoDisputedRejection(ctx, appointmentID); err != nil {
			return err
		}

		if err := s.paymentRepo.Create(ctx, payment); err != nil {
			return mapRepoErr(err)
		}

		verification := &entity.PaymentVerification{
			PaymentID: payment.ID,
			Status:    entity.VerificationPendingQueue,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.verifyRepo.Create(ctx, verification); err != nil {
			return err
		}

		return s.enqueuePaymentEvent(ctx, payment, "", actor, now)
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, id uint64) (*entity.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

func (s *PaymentService) GetAppointmentPayment(ctx context.Context, appointmentID string) (*entity.Payment, error) {
	appointmentID = strings.TrimSpace(appointmentID)
	if appointmentID == "" {
		return nil, ErrInvalidRequest
	}
	payment, err := s.paymentRepo.FindLatestByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// ViewPayment returns the payment when actor may see it.
func (s *PaymentService) ViewPayment(ctx context.Context, actor entity.Actor, id uint64) (*entity.Payment, error) {
	if err := s.authorize(actor, entity.ActorPatient); err != nil {
		return nil, err
	}
	payment, err := s.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canViewPayment(actor, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, actor entity.Actor, req listPaymentsRequest) ([]*entity.Payment, error) {
	if err := s.authorize(actor, entity.ActorPatient); err != nil {
		return nil, err
	}

	status := entity.PaymentStatus(strings.ToUpper(strings.TrimSpace(req.GetStatus())))
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, req.GetStatus())
	}

	filter := repository.PaymentFilter{
		AppointmentID: strings.TrimSpace(req.GetAppointmentID()),
		PatientUserID: strings.TrimSpace(req.GetPatientUserID()),
		DoctorID:      strings.TrimSpace(req.GetDoctorID()),
		Status:        status,
		Limit:         listLimit(req.GetLimit()),
		Offset:        req.GetOffset(),
	}
	if actor.Kind == entity.ActorPatient {
		filter.PatientUserID = actor.ID
	}

	return s.paymentRepo.List(ctx, filter)
}

// ReceiptURL resolves the stored receipt reference into a URL the caller can open.
func (s *PaymentService) ReceiptURL(ctx context.Context, payment *entity.Payment) (string, error) {
	if payment == nil || payment.ReceiptURL == nil {
		return "", nil
	}
	if s.receipts == nil {
		return *payment.ReceiptURL, nil
	}
	return s.receipts.ResolveReceiptURL(ctx, *payment.ReceiptURL)
}

// VerifyPayment applies a verifier's ledger decision. VERIFIED and REJECTED go
// through the payment's pending verification; the remaining statuses move the
// ledger directly.
func (s *PaymentService) VerifyPayment(ctx context.Context, actor entity.Actor, req verifyPaymentRequest) (*entity.Payment, error) {
	if err := s.authorize(actor, entity.ActorStaff); err != nil {
		return nil, err
	}

	target := entity.PaymentStatus(strings.ToUpper(strings.TrimSpace(req.GetStatus())))
	notes := strings.TrimSpace(req.GetVerificationNotes())

	switch target {
	case entity.PaymentVerified, entity.PaymentRejected:
		return s.verifyThroughQueue(ctx, actor, req.GetPaymentID(), entity.VerificationStatus(target), notes)
	case entity.PaymentAuthorized, entity.PaymentCaptured, entity.PaymentFailed:
	default:
		return nil, fmt.Errorf("%w: status must be VERIFIED, REJECTED, AUTHORIZED, CAPTURED or FAILED", ErrInvalidRequest)
	}

	var payment *entity.Payment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.lockPayment(ctx, req.GetPaymentID())
		if err != nil {
			return err
		}

		now := s.now()
		from := payment.Status
		if err := s.movePayment(payment, target, false, actor, now); err != nil {
			return err
		}
		if target == entity.PaymentFailed {
			payment.FailureReason = stringPtr(truncate(notes, 1024))
		}
		return s.savePayment(ctx, payment, from, actor, now)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) verifyThroughQueue(ctx context.Context, actor entity.Actor, paymentID uint64, decision entity.VerificationStatus, notes string) (*entity.Payment, error) {
	var payment *entity.Payment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		verification, err := s.verifyRepo.FindOpenByPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}

		payment, err = s.lockPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if verification == nil {
			return fmt.Errorf("%w: payment %d is %s", ErrIllegalTransition, payment.ID, payment.Status)
		}
		if verification.Status == entity.VerificationEscalated {
			return fmt.Errorf("%w: payment %d is under dispute", ErrIllegalTransition, payment.ID)
		}

		now := s.now()
		if !verification.ClaimedBy(actor) {
			if verification.Claimed() && !s.claimStale(verification, now) {
				metrics.RecordClaim("already_claimed")
				return ErrAlreadyClaimed
			}
			s.assignClaim(verification, payment, actor, now)
		}

		return s.decideLocked(ctx, verification, payment, actor, decision, notes, now)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// RequestRefund computes the refundable amount from the doctor's policy and
// moves the payment to REFUND_REQUESTED.
func (s *PaymentService) RequestRefund(ctx context.Context, actor entity.Actor, req refundPaymentRequest) (*entity.Payment, error) {
	if err := s.authorize(actor, entity.ActorPatient); err != nil {
		return nil, err
	}

	cancelledBy := entity.CancelledBy(strings.ToUpper(strings.TrimSpace(req.GetCancelledBy())))
	if cancelledBy == "" {
		cancelledBy = entity.CancelledByPatient
		if actor.Kind != entity.ActorPatient {
			cancelledBy = entity.CancelledByDoctor
		}
	}
	if !cancelledBy.Valid() {
		return nil, fmt.Errorf("%w: cancelled_by must be PATIENT or DOCTOR", ErrInvalidRequest)
	}
	if actor.Kind == entity.ActorPatient && cancelledBy != entity.CancelledByPatient {
		return nil, fmt.Errorf("%w: patients may only cancel as PATIENT", ErrForbidden)
	}

	var payment *entity.Payment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.lockPayment(ctx, req.GetPaymentID())
		if err != nil {
			return err
		}
		if err := canViewPayment(actor, payment); err != nil {
			return err
		}
		if !payment.Status.Refundable() {
			return fmt.Errorf("%w: payment %d is %s", ErrIllegalTransition, payment.ID, payment.Status)
		}

		now := s.now()
		cancelledAt := req.GetCancelledAt()
		if cancelledAt.IsZero() {
			cancelledAt = now
		}
		return s.refundLocked(ctx, payment, false, cancelledBy, cancelledAt, actor, now)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// SettleRefund records that the refund was paid out.
func (s *PaymentService) SettleRefund(ctx context.Context, actor entity.Actor, paymentID uint64) (*entity.Payment, error) {
	return s.closeRefund(ctx, actor, paymentID, entity.PaymentRefunded, "")
}

func (s *PaymentService) FailRefund(ctx context.Context, actor entity.Actor, req failRefundRequest) (*entity.Payment, error) {
	reason := strings.TrimSpace(req.GetReason())
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidRequest)
	}
	return s.closeRefund(ctx, actor, req.GetPaymentID(), entity.PaymentFailed, reason)
}

func (s *PaymentService) closeRefund(ctx context.Context, actor entity.Actor, paymentID uint64, target entity.PaymentStatus, reason string) (*entity.Payment, error) {
	if err := s.authorize(actor, entity.ActorStaff); err != nil {
		return nil, err
	}

	var payment *entity.Payment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.lockPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != entity.PaymentRefundRequested {
			return fmt.Errorf("%w: payment %d is %s, not REFUND_REQUESTED", ErrIllegalTransition, payment.ID, payment.Status)
		}

		now := s.now()
		from := payment.Status
		if err := s.movePayment(payment, target, false, actor, now); err != nil {
			return err
		}
		if reason != "" {
			payment.FailureReason = stringPtr(truncate(reason, 1024))
		}
		return s.savePayment(ctx, payment, from, actor, now)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// refundLocked computes and records the refund on a payment locked by the caller.
func (s *PaymentService) refundLocked(ctx context.Context, payment *entity.Payment, disputed bool, cancelledBy entity.CancelledBy, cancelledAt time.Time, actor entity.Actor, now time.Time) error {
	policy, err := s.refundPolicy(ctx, payment.DoctorID)
	if err != nil {
		return err
	}

	amount := refund.Compute(refund.Input{
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		Policy:        policy,
		CancelledBy:   cancelledBy,
		CancelTime:    cancelledAt,
		AppointmentAt: payment.AppointmentAt,
	})

	from := payment.Status
	if err := s.movePayment(payment, entity.PaymentRefundRequested, disputed, actor, now); err != nil {
		return err
	}
	payment.RefundAmount = decimal.NewNullDecimal(amount)

	if err := s.savePayment(ctx, payment, from, actor, now); err != nil {
		return err
	}

	kind := "partial"
	switch {
	case amount.Equal(payment.Amount):
		kind = "full"
	case amount.IsZero():
		kind = "none"
	}
	metrics.RecordRefund(string(cancelledBy), kind)
	return nil
}

func (s *PaymentService) refundPolicy(ctx context.Context, doctorID string) (entity.RefundPolicy, error) {
	if s.policyRepo != nil {
		policy, err := s.policyRepo.FindByDoctorID(ctx, doctorID)
		if err != nil {
			return entity.RefundPolicy{}, err
		}
		if policy != nil {
			return *policy, nil
		}
	}

	return entity.RefundPolicy{
		DoctorID:                            doctorID,
		RefundCutoffMinutes:                 s.refundCfg.DefaultCutoffMinutes,
		RefundDeductionPercent:              s.refundCfg.DefaultDeductionPercent,
		AllowFullRefundOnDoctorCancellation: s.refundCfg.AllowFullRefundOnDoctorCancellation,
	}, nil
}

func (s *PaymentService) lockPayment(ctx context.Context, id uint64) (*entity.Payment, error) {
	payment, err := s.paymentRepo.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// ensureNoDisputedRejection refuses a new payment while the appointment's latest
// payment is a rejection under dispute: a patient-favored outcome would put that
// payment back into the appointment's active slot.
func (s *PaymentService) ensureNoDisputedRejection(ctx context.Context, appointmentID string) error {
	latest, err := s.paymentRepo.FindLatestByAppointment(ctx, appointmentID)
	if err != nil || latest == nil || latest.Status != entity.PaymentRejected {
		return err
	}
	// Serializes with RaiseDispute, which locks the same row.
	if _, err := s.lockPayment(ctx, latest.ID); err != nil {
		return err
	}
	verification, err := s.verifyRepo.FindLatestByPayment(ctx, latest.ID)
	if err != nil {
		return err
	}
	if verification != nil && verification.Disputed {
		return fmt.Errorf("%w: payment %d for appointment %s is under dispute", ErrInvalidState, latest.ID, appointmentID)
	}
	return nil
}

// movePayment checks the status graph and stamps the fields owned by the target status.
func (s *PaymentService) movePayment(payment *entity.Payment, target entity.PaymentStatus, disputed bool, actor entity.Actor, now time.Time) error {
	if !payment.Status.CanTransitionTo(target, disputed) {
		return fmt.Errorf("%w: payment %d cannot move from %s to %s", ErrIllegalTransition, payment.ID, payment.Status, target)
	}

	switch target {
	case entity.PaymentVerified, entity.PaymentRejected:
		payment.VerifiedByUserID = stringPtr(actor.ID)
		payment.VerifiedAt = timePtr(now)
	case entity.PaymentCaptured:
		payment.CapturedAt = timePtr(now)
		payment.IncrementAttempt(now)
	case entity.PaymentRefundRequested:
		payment.RefundRequestedAt = timePtr(now)
	case entity.PaymentRefunded:
		payment.RefundedAt = timePtr(now)
	}

	payment.Status = target
	payment.UpdatedAt = now
	return nil
}

// savePayment persists the payment and writes the outbox event for its new status.
func (s *PaymentService) savePayment(ctx context.Context, payment *entity.Payment, from entity.PaymentStatus, actor entity.Actor, now time.Time) error {
	payment.UpdatedAt = now
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return mapRepoErr(err)
	}
	if from == payment.Status {
		return nil
	}

	metrics.RecordPaymentTransition(string(from), string(payment.Status))
	return s.enqueuePaymentEvent(ctx, payment, from, actor, now)
}

func canViewPayment(actor entity.Actor, payment *entity.Payment) error {
	if actor.Kind == entity.ActorPatient && payment.PatientUserID != actor.ID {
		return fmt.Errorf("%w: payment belongs to another patient", ErrForbidden)
	}
	return nil
}
