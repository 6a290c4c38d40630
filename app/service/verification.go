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

type decideVerificationRequest interface {
	GetVerificationID() uint64
	GetDecision() string
	GetNotes() string
}

type listQueueRequest interface {
	GetStatus() string
	GetLimit() int32
	GetOffset() int32
}

// ClaimNext assigns the oldest unclaimed pending verification to actor.
func (s *PaymentService) ClaimNext(ctx context.Context, actor entity.Actor) (*entity.PaymentVerification, error) {
	if err := s.authorize(actor, entity.ActorStaff); err != nil {
		return nil, err
	}

	var verification *entity.PaymentVerification
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		verification, err = s.verifyRepo.ClaimNextForUpdate(ctx)
		if err != nil {
			return err
		}
		if verification == nil {
			return ErrQueueEmpty
		}

		payment, err := s.lockPayment(ctx, verification.PaymentID)
		if err != nil {
			return err
		}

		now := s.now()
		s.assignClaim(verification, payment, actor, now)
		return s.saveClaim(ctx, verification, payment, actor, now)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordClaim("claimed")
	return verification, nil
}

// Claim assigns a specific pending verification to actor. Re-claiming one's own
// verification is a no-op; a stale claim held by someone else can be taken over.
func (s *PaymentService) Claim(ctx context.Context, actor entity.Actor, verificationID uint64) (*entity.PaymentVerification, error) {
	if err := s.authorize(actor, entity.ActorStaff); err != nil {
		return nil, err
	}

	var verification *entity.PaymentVerification
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		verification, err = s.lockVerification(ctx, verificationID)
		if err != nil {
			return err
		}
		if verification.Status != entity.VerificationPendingQueue {
			return fmt.Errorf("%w: verification %d is %s", ErrAlreadyDecided, verification.ID, verification.Status)
		}
		if verification.ClaimedBy(actor) {
			return nil
		}

		now := s.now()
		if verification.Claimed() && !s.claimStale(verification, now) {
			metrics.RecordClaim("already_claimed")
			return ErrAlreadyClaimed
		}

		payment, err := s.lockPayment(ctx, verification.PaymentID)
		if err != nil {
			return err
		}

		s.assignClaim(verification, payment, actor, now)
		return s.saveClaim(ctx, verification, payment, actor, now)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordClaim("claimed")
	return verification, nil
}

// Decide records the claiming verifier's outcome for a pending verification.
func (s *PaymentService) Decide(ctx context.Context, actor entity.Actor, req decideVerificationRequest) (*entity.PaymentVerification, error) {
	if err := s.authorize(actor, entity.ActorStaff); err != nil {
		return nil, err
	}

	decision := entity.VerificationStatus(strings.ToUpper(strings.TrimSpace(req.GetDecision())))
	if !decision.IsDecision() {
		return nil, fmt.Errorf("%w: decision must be VERIFIED, REJECTED, ESCALATED or REFUND_REQUESTED", ErrInvalidRequest)
	}

	var verification *entity.PaymentVerification
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		verification, err = s.lockVerification(ctx, req.GetVerificationID())
		if err != nil {
			return err
		}
		payment, err := s.lockPayment(ctx, verification.PaymentID)
		if err != nil {
			return err
		}

		return s.decideLocked(ctx, verification, payment, actor, decision, strings.TrimSpace(req.GetNotes()), s.now())
	})
	if err != nil {
		return nil, err
	}

	return verification, nil
}

// Release hands a pending claim back to the queue. Admins may release any claim.
func (s *PaymentService) Release(ctx context.Context, actor entity.Actor, verificationID uint64) (*entity.PaymentVerification, error) {
	if err := s.authorize(actor, entity.ActorStaff); err != nil {
		return nil, err
	}

	var verification *entity.PaymentVerification
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		verification, err = s.lockVerification(ctx, verificationID)
		if err != nil {
			return err
		}
		if verification.Status != entity.VerificationPendingQueue {
			return fmt.Errorf("%w: verification %d is %s", ErrAlreadyDecided, verification.ID, verification.Status)
		}
		if !verification.Claimed() {
			return ErrNotClaimed
		}
		if !verification.ClaimedBy(actor) && actor.Kind != entity.ActorAdmin {
			return ErrNotClaimed
		}

		verification.ReleaseClaim()
		verification.UpdatedAt = s.now()
		return mapRepoErr(s.verifyRepo.Update(ctx, verification))
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordClaim("released")
	return verification, nil
}

func (s *PaymentService) GetVerification(ctx context.Context, actor entity.Actor, id uint64) (*entity.PaymentVerification, error) {
	if err := s.authorize(actor, entity.ActorStaff); err != nil {
		return nil, err
	}
	verification, err := s.verifyRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if verification == nil {
		return nil, ErrVerificationNotFound
	}
	return verification, nil
}

// ListQueue lists verifications by status in FIFO order, PENDING_QUEUE by default.
func (s *PaymentService) ListQueue(ctx context.Context, actor entity.Actor, req listQueueRequest) ([]*entity.PaymentVerification, error) {
	if err := s.authorize(actor, entity.ActorStaff); err != nil {
		return nil, err
	}

	status := entity.VerificationStatus(strings.ToUpper(strings.TrimSpace(req.GetStatus())))
	if status == "" {
		status = entity.VerificationPendingQueue
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, req.GetStatus())
	}

	return s.verifyRepo.ListByStatus(ctx, status, listLimit(req.GetLimit()), req.GetOffset())
}

func (s *PaymentService) decideLocked(ctx context.Context, verification *entity.PaymentVerification, payment *entity.Payment, actor entity.Actor, decision entity.VerificationStatus, notes string, now time.Time) error {
	if !verification.ClaimedBy(actor) {
		return ErrNotClaimed
	}
	if verification.Status != entity.VerificationPendingQueue {
		return fmt.Errorf("%w: verification %d is %s", ErrAlreadyDecided, verification.ID, verification.Status)
	}

	from := payment.Status
	switch decision {
	case entity.VerificationVerified, entity.VerificationRejected:
		if err := s.movePayment(payment, entity.PaymentStatus(decision), false, actor, now); err != nil {
			return err
		}
		payment.VerificationNotes = stringPtr(notes)
		verification.VerifiedAt = timePtr(now)

	case entity.VerificationRefundRequested:
		if err := s.movePayment(payment, entity.PaymentVerified, false, actor, now); err != nil {
			return err
		}
		payment.VerificationNotes = stringPtr(notes)
		metrics.RecordPaymentTransition(string(from), string(payment.Status))
		verification.VerifiedAt = timePtr(now)

	case entity.VerificationEscalated:
		verification.Disputed = true
	}

	verification.Status = decision
	verification.Notes = stringPtr(notes)
	verification.UpdatedAt = now
	if err := s.verifyRepo.Update(ctx, verification); err != nil {
		return mapRepoErr(err)
	}

	switch decision {
	case entity.VerificationRefundRequested:
		if err := s.refundLocked(ctx, payment, false, entity.CancelledByDoctor, now, actor, now); err != nil {
			return err
		}
	case entity.VerificationEscalated:
		if err := s.savePayment(ctx, payment, from, actor, now); err != nil {
			return err
		}
		if _, err := s.openDispute(ctx, verification, payment, actor, notes, now); err != nil {
			return err
		}
	default:
		if err := s.savePayment(ctx, payment, from, actor, now); err != nil {
			return err
		}
	}

	metrics.RecordDecision(string(decision), string(actor.Kind))
	s.logger.WithFields(logrus.Fields{
		"verification_id": verification.ID,
		"payment_id":      payment.ID,
		"decision":        decision,
		"verifier_id":     actor.ID,
	}).Info("verification decided")
	return nil
}

func (s *PaymentService) lockVerification(ctx context.Context, id uint64) (*entity.PaymentVerification, error) {
	verification, err := s.verifyRepo.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if verification == nil {
		return nil, ErrVerificationNotFound
	}
	return verification, nil
}

func (s *PaymentService) claimStale(verification *entity.PaymentVerification, now time.Time) bool {
	return verification.ClaimedAt != nil && verification.ClaimedAt.Before(now.Add(-s.claimTimeout()))
}

// assignClaim marks actor as the verifier and counts the attempt on the payment.
func (s *PaymentService) assignClaim(verification *entity.PaymentVerification, payment *entity.Payment, actor entity.Actor, now time.Time) {
	kind := actor.Kind
	verification.VerifierUserID = stringPtr(actor.ID)
	verification.VerifierKind = &kind
	verification.ClaimedAt = timePtr(now)
	verification.UpdatedAt = now
	payment.IncrementAttempt(now)
}

func (s *PaymentService) saveClaim(ctx context.Context, verification *entity.PaymentVerification, payment *entity.Payment, actor entity.Actor, now time.Time) error {
	if err := s.verifyRepo.Update(ctx, verification); err != nil {
		return mapRepoErr(err)
	}
	return s.savePayment(ctx, payment, payment.Status, actor, now)
}
