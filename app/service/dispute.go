package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
	"github.com/vibast-solutions/ms-go-payment-verification/app/metrics"
)

type raiseDisputeRequest interface {
	GetVerificationID() uint64
	GetNotes() string
}

type escalateDisputeRequest interface {
	GetDisputeID() uint64
	GetNote() string
}

type resolveDisputeRequest interface {
	GetDisputeID() uint64
	GetResolutionStatus() string
	GetNote() string
}

// RaiseDispute contests a decided verification. Patients may dispute their own
// payments; staff may not raise disputes.
func (s *PaymentService) RaiseDispute(ctx context.Context, actor entity.Actor, req raiseDisputeRequest) (*entity.PaymentDispute, error) {
	if err := s.authorize(actor, entity.ActorPatient); err != nil {
		return nil, err
	}
	if actor.Kind != entity.ActorPatient && actor.Kind != entity.ActorDoctor {
		return nil, fmt.Errorf("%w: only patients and doctors raise disputes", ErrForbidden)
	}

	var dispute *entity.PaymentDispute
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		verification, err := s.lockVerification(ctx, req.GetVerificationID())
		if err != nil {
			return err
		}
		payment, err := s.lockPayment(ctx, verification.PaymentID)
		if err != nil {
			return err
		}
		if err := canViewPayment(actor, payment); err != nil {
			return err
		}

		open, err := s.disputeRepo.FindOpenByVerificationForUpdate(ctx, verification.ID)
		if err != nil {
			return err
		}
		if open != nil {
			return fmt.Errorf("%w: dispute %d", ErrDuplicateDispute, open.ID)
		}
		if !verification.Status.Disputable() {
			return fmt.Errorf("%w: verification %d is %s", ErrIllegalTransition, verification.ID, verification.Status)
		}
		if err := s.ensureDisputablePayment(ctx, payment); err != nil {
			return err
		}

		now := s.now()
		verification.Disputed = true
		verification.UpdatedAt = now
		if err := s.verifyRepo.Update(ctx, verification); err != nil {
			return mapRepoErr(err)
		}

		dispute, err = s.openDispute(ctx, verification, payment, actor, strings.TrimSpace(req.GetNotes()), now)
		return err
	})
	if err != nil {
		return nil, err
	}

	return dispute, nil
}

// EscalateDispute moves an open dispute up one review tier.
func (s *PaymentService) EscalateDispute(ctx context.Context, actor entity.Actor, req escalateDisputeRequest) (*entity.PaymentDispute, error) {
	if err := s.authorize(actor, entity.ActorStaff); err != nil {
		return nil, err
	}

	var dispute *entity.PaymentDispute
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		dispute, _, _, err = s.lockDispute(ctx, req.GetDisputeID(), false)
		if err != nil {
			return err
		}
		if !dispute.Open() {
			return ErrDisputeClosed
		}

		next, ok := dispute.Stage.Next()
		if !ok {
			return fmt.Errorf("%w: dispute %d is already at %s", ErrIllegalTransition, dispute.ID, dispute.Stage)
		}
		if actor.Kind.Rank() < dispute.Stage.Rank() {
			return fmt.Errorf("%w: %s cannot escalate from %s", ErrForbidden, actor.Kind, dispute.Stage)
		}

		now := s.now()
		from := dispute.Stage
		dispute.Stage = next
		if next == entity.StageAdminReview {
			dispute.ResolutionStatus = entity.ResolutionAdminPending
		}
		dispute.UpdatedAt = now
		if err := s.disputeRepo.Update(ctx, dispute); err != nil {
			return mapRepoErr(err)
		}

		return s.recordDisputeTransition(ctx, entity.EventDisputeEscalated, dispute, &from, actor, req.GetNote(), now)
	})
	if err != nil {
		return nil, err
	}

	return dispute, nil
}

// ResolveDispute closes an open dispute and feeds the outcome back into the
// verification and the ledger.
func (s *PaymentService) ResolveDispute(ctx context.Context, actor entity.Actor, req resolveDisputeRequest) (*entity.PaymentDispute, error) {
	if err := s.authorize(actor, entity.ActorStaff); err != nil {
		return nil, err
	}

	resolution := entity.ResolutionStatus(strings.ToUpper(strings.TrimSpace(req.GetResolutionStatus())))
	if !resolution.Terminal() {
		return nil, fmt.Errorf("%w: resolution must be PATIENT_FAVORED, PRACTICE_FAVORED, CLOSED or UPHELD", ErrInvalidRequest)
	}

	var dispute *entity.PaymentDispute
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var (
			verification *entity.PaymentVerification
			payment      *entity.Payment
			err          error
		)
		dispute, verification, payment, err = s.lockDispute(ctx, req.GetDisputeID(), true)
		if err != nil {
			return err
		}
		if !dispute.Open() {
			return ErrDisputeClosed
		}
		if actor.Kind != entity.ActorAdmin && actor.Kind.Rank() < dispute.Stage.Rank() {
			return fmt.Errorf("%w: %s cannot resolve at %s", ErrForbidden, actor.Kind, dispute.Stage)
		}

		now := s.now()
		if err := s.applyResolution(ctx, verification, payment, resolution, actor, now); err != nil {
			return err
		}

		from := dispute.Stage
		dispute.Stage = entity.StageResolved
		dispute.ResolutionStatus = resolution
		dispute.ResolvedByUserID = stringPtr(actor.ID)
		dispute.ResolvedAt = timePtr(now)
		dispute.UpdatedAt = now
		if err := s.disputeRepo.Update(ctx, dispute); err != nil {
			return mapRepoErr(err)
		}

		return s.recordDisputeTransition(ctx, entity.EventDisputeResolved, dispute, &from, actor, req.GetNote(), now)
	})
	if err != nil {
		return nil, err
	}

	return dispute, nil
}

// ViewDispute returns a dispute to a verifier or to the patient who owns the payment.
func (s *PaymentService) ViewDispute(ctx context.Context, actor entity.Actor, id uint64) (*entity.PaymentDispute, error) {
	if err := s.authorize(actor, entity.ActorPatient); err != nil {
		return nil, err
	}

	dispute, err := s.GetDispute(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Kind == entity.ActorPatient {
		payment, err := s.GetPayment(ctx, dispute.PaymentID)
		if err != nil {
			return nil, err
		}
		if err := canViewPayment(actor, payment); err != nil {
			return nil, err
		}
	}
	return dispute, nil
}

func (s *PaymentService) GetDispute(ctx context.Context, id uint64) (*entity.PaymentDispute, error) {
	dispute, err := s.disputeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dispute == nil {
		return nil, ErrDisputeNotFound
	}
	return dispute, nil
}

// lockDispute locks the dispute's verification before the dispute row so every
// dispute path takes locks in the same order as the queue. withPayment also locks
// the payment in between.
func (s *PaymentService) lockDispute(ctx context.Context, id uint64, withPayment bool) (*entity.PaymentDispute, *entity.PaymentVerification, *entity.Payment, error) {
	current, err := s.GetDispute(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	verification, err := s.lockVerification(ctx, current.VerificationID)
	if err != nil {
		return nil, nil, nil, err
	}

	var payment *entity.Payment
	if withPayment {
		if payment, err = s.lockPayment(ctx, current.PaymentID); err != nil {
			return nil, nil, nil, err
		}
	}

	dispute, err := s.disputeRepo.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	if dispute == nil {
		return nil, nil, nil, ErrDisputeNotFound
	}
	return dispute, verification, payment, nil
}

// applyResolution updates the verification and ledger for a terminal resolution.
func (s *PaymentService) applyResolution(ctx context.Context, verification *entity.PaymentVerification, payment *entity.Payment, resolution entity.ResolutionStatus, actor entity.Actor, now time.Time) error {
	if verification.Status == entity.VerificationEscalated {
		from := payment.Status
		switch resolution {
		case entity.ResolutionPatientFavored:
			if err := s.movePayment(payment, entity.PaymentVerified, true, actor, now); err != nil {
				return err
			}
			verification.Status = entity.VerificationVerified
			verification.VerifiedAt = timePtr(now)
		case entity.ResolutionPracticeFavored, entity.ResolutionUpheld:
			if err := s.movePayment(payment, entity.PaymentRejected, true, actor, now); err != nil {
				return err
			}
			verification.Status = entity.VerificationRejected
			verification.VerifiedAt = timePtr(now)
		case entity.ResolutionClosed:
			verification.Status = entity.VerificationPendingQueue
			verification.ReleaseClaim()
		}
		if err := s.savePayment(ctx, payment, from, actor, now); err != nil {
			return err
		}
	} else if resolution == entity.ResolutionPatientFavored {
		if err := s.refundLocked(ctx, payment, verification.Disputed, entity.CancelledByDoctor, now, actor, now); err != nil {
			return err
		}
		verification.Status = entity.VerificationRefundRequested
	}

	verification.Disputed = false
	verification.UpdatedAt = now
	return mapRepoErr(s.verifyRepo.Update(ctx, verification))
}

// ensureDisputablePayment requires a payment a patient-favored outcome can still
// refund. A rejection is only disputable while it is the appointment's latest
// payment, so the refund cannot collide with a newer active payment.
func (s *PaymentService) ensureDisputablePayment(ctx context.Context, payment *entity.Payment) error {
	if payment.Status.Refundable() {
		return nil
	}
	if payment.Status != entity.PaymentRejected {
		return fmt.Errorf("%w: payment %d is %s", ErrIllegalTransition, payment.ID, payment.Status)
	}

	latest, err := s.paymentRepo.FindLatestByAppointment(ctx, payment.AppointmentID)
	if err != nil {
		return err
	}
	if latest != nil && latest.ID != payment.ID {
		return fmt.Errorf("%w: appointment %s has a newer payment %d", ErrInvalidState, payment.AppointmentID, latest.ID)
	}
	return nil
}

// openDispute creates a STAFF_REVIEW dispute for verification and records its first history row.
func (s *PaymentService) openDispute(ctx context.Context, verification *entity.PaymentVerification, payment *entity.Payment, actor entity.Actor, notes string, now time.Time) (*entity.PaymentDispute, error) {
	dispute := &entity.PaymentDispute{
		VerificationID:   verification.ID,
		PaymentID:        payment.ID,
		Stage:            entity.StageStaffReview,
		ResolutionStatus: entity.ResolutionOpen,
		RaisedByUserID:   actor.ID,
		RaisedByKind:     actor.Kind,
		Notes:            stringPtr(notes),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.disputeRepo.Create(ctx, dispute); err != nil {
		return nil, mapRepoErr(err)
	}

	if err := s.recordDisputeTransition(ctx, entity.EventDisputeRaised, dispute, nil, actor, notes, now); err != nil {
		return nil, err
	}
	return dispute, nil
}

// recordDisputeTransition appends the history row and outbox event for a dispute
// mutation already written on the current transaction.
func (s *PaymentService) recordDisputeTransition(ctx context.Context, eventType string, dispute *entity.PaymentDispute, from *entity.DisputeStage, actor entity.Actor, note string, now time.Time) error {
	if err := s.appendHistory(ctx, dispute, from, actor, note, now); err != nil {
		return err
	}
	if err := s.enqueueDisputeEvent(ctx, eventType, dispute, from, dispute.RaisedByUserID, actor, now); err != nil {
		return err
	}

	metrics.RecordDisputeTransition(string(dispute.Stage), string(dispute.ResolutionStatus))
	s.logger.WithFields(logrus.Fields{
		"dispute_id":        dispute.ID,
		"stage":             dispute.Stage,
		"resolution_status": dispute.ResolutionStatus,
		"actor_id":          actor.ID,
	}).Info(eventType)
	return nil
}
