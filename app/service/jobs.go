package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
	"github.com/vibast-solutions/ms-go-payment-verification/app/metrics"
)

// RunReleaseStaleClaimsBatch returns claims older than the claim timeout to the
// unclaimed pool. Each batch is one conditional UPDATE, so runs may overlap with
// live claims and with each other.
func (s *PaymentService) RunReleaseStaleClaimsBatch(ctx context.Context) error {
	now := s.now()
	cutoff := now.Add(-s.claimTimeout())

	var released int64
	for {
		n, err := s.verifyRepo.ReleaseStaleClaims(ctx, cutoff, now, s.batchSize())
		if err != nil {
			return err
		}
		released += n
		if n < int64(s.batchSize()) {
			break
		}
	}

	metrics.RecordStaleClaimsReleased(released)
	if depth, err := s.verifyRepo.CountByStatus(ctx, entity.VerificationPendingQueue); err == nil {
		metrics.SetQueueDepth(depth)
	}

	s.logger.WithFields(logrus.Fields{
		"released": released,
		"cutoff":   cutoff.Format(time.RFC3339),
	}).Info("stale verification claims released")
	return nil
}

// RunDispatchOutboxBatch publishes due outbox events. Rows stay locked while they
// are published; failed deliveries are rescheduled until the attempt limit.
func (s *PaymentService) RunDispatchOutboxBatch(ctx context.Context) error {
	if s.publisher == nil {
		return errors.New("outbox publisher is not configured")
	}

	var firstErr error
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		now := s.now()
		items, err := s.outboxRepo.ListDueForUpdate(ctx, now, s.batchSize())
		if err != nil {
			return err
		}

		for _, event := range items {
			if event == nil {
				continue
			}
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
			publishErr, err := s.dispatchEvent(ctx, event, now)
			if err != nil {
				return err
			}
			firstErr = keepFirstErr(firstErr, publishErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return firstErr
}

// dispatchEvent publishes one event and records the outcome on its row. The
// publish failure is returned apart from the persist error; only the latter
// aborts the batch.
func (s *PaymentService) dispatchEvent(ctx context.Context, event *entity.OutboxEvent, now time.Time) (publishErr, err error) {
	started := time.Now()
	publishErr = s.publisher.Publish(ctx, event)
	elapsed := time.Since(started).Seconds()

	event.Attempts++
	event.UpdatedAt = now
	if publishErr == nil {
		event.Status = entity.OutboxPublished
		event.PublishedAt = timePtr(now)
		event.NextAttemptAt = nil
		event.LastError = nil
		metrics.RecordOutboxDelivery(s.publisher.Name(), event.EventType, "published", elapsed)
		return nil, s.outboxRepo.Update(ctx, event)
	}

	lastErr := truncate(publishErr.Error(), 1024)
	event.LastError = &lastErr

	maxAttempts := s.outboxCfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	status := "retry"
	if event.Attempts >= maxAttempts {
		status = "failed"
		event.Status = entity.OutboxFailed
		event.NextAttemptAt = nil
	} else {
		retryInterval := s.outboxCfg.RetryInterval
		if retryInterval <= 0 {
			retryInterval = time.Minute
		}
		event.NextAttemptAt = timePtr(now.Add(retryInterval))
	}
	metrics.RecordOutboxDelivery(s.publisher.Name(), event.EventType, status, elapsed)

	s.logger.WithError(publishErr).WithFields(logrus.Fields{
		"event_id":   event.EventID,
		"event_type": event.EventType,
		"attempts":   event.Attempts,
	}).Warn("outbox delivery failed")

	if err := s.outboxRepo.Update(ctx, event); err != nil {
		return publishErr, err
	}
	return publishErr, nil
}

// RunDisputeAuditBatch replays the history of recently updated disputes and
// reports any dispute whose stored state its history does not reproduce.
func (s *PaymentService) RunDisputeAuditBatch(ctx context.Context) error {
	lookback := s.paymentsCfg.AuditLookback
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	since := s.now().Add(-lookback)

	var (
		afterID    uint64
		checked    int
		mismatched int
		firstErr   error
	)
	for {
		disputes, err := s.disputeRepo.ListUpdatedSince(ctx, since, afterID, s.batchSize())
		if err != nil {
			return err
		}

		for _, dispute := range disputes {
			afterID = dispute.ID
			checked++

			timeline, err := s.timeline(ctx, dispute)
			if err != nil {
				firstErr = keepFirstErr(firstErr, err)
				continue
			}
			if timeline.Consistent {
				continue
			}

			mismatched++
			metrics.RecordHistoryMismatch()
			s.logger.WithFields(logrus.Fields{
				"dispute_id":          dispute.ID,
				"stage":               dispute.Stage,
				"resolution_status":   dispute.ResolutionStatus,
				"replayed_stage":      timeline.ReplayedStage,
				"replayed_resolution": timeline.ReplayedResolution,
			}).Error("dispute history mismatch")
		}

		if len(disputes) < int(s.batchSize()) {
			break
		}
	}

	s.logger.WithFields(logrus.Fields{
		"checked":    checked,
		"mismatched": mismatched,
	}).Info("dispute history audit finished")
	return firstErr
}
