package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
)

// DisputeTimeline is a dispute with its ordered history and the state the history replays to.
type DisputeTimeline struct {
	Dispute            *entity.PaymentDispute
	Entries            []*entity.PaymentDisputeHistory
	ReplayedStage      entity.DisputeStage
	ReplayedResolution entity.ResolutionStatus
	Consistent         bool
}

func (s *PaymentService) appendHistory(ctx context.Context, dispute *entity.PaymentDispute, from *entity.DisputeStage, actor entity.Actor, note string, now time.Time) error {
	return s.historyRepo.Append(ctx, &entity.PaymentDisputeHistory{
		DisputeID:        dispute.ID,
		FromStage:        from,
		ToStage:          dispute.Stage,
		ResolutionStatus: dispute.ResolutionStatus,
		ChangedByUserID:  actor.ID,
		ChangedByKind:    actor.Kind,
		Note:             stringPtr(truncate(strings.TrimSpace(note), 1024)),
		CreatedAt:        now,
	})
}

// ReplayHistory folds ordered history entries into the (stage, resolution) they
// describe. Every entry must start where the previous one ended.
func ReplayHistory(entries []*entity.PaymentDisputeHistory) (entity.DisputeStage, entity.ResolutionStatus, error) {
	var (
		stage      entity.DisputeStage
		resolution entity.ResolutionStatus
	)

	for i, entry := range entries {
		if i == 0 {
			if entry.FromStage != nil {
				return "", "", fmt.Errorf("%w: history for dispute %d does not start at creation", ErrInvalidState, entry.DisputeID)
			}
		} else if entry.FromStage == nil || *entry.FromStage != stage {
			return "", "", fmt.Errorf("%w: history gap before entry %d of dispute %d", ErrInvalidState, entry.ID, entry.DisputeID)
		}

		stage = entry.ToStage
		resolution = entry.ResolutionStatus
	}

	return stage, resolution, nil
}

// DisputeHistory returns the ordered history of a dispute the actor may view.
func (s *PaymentService) DisputeHistory(ctx context.Context, actor entity.Actor, disputeID uint64) (*DisputeTimeline, error) {
	dispute, err := s.ViewDispute(ctx, actor, disputeID)
	if err != nil {
		return nil, err
	}
	return s.timeline(ctx, dispute)
}

// GetDisputeHistory is the unauthenticated internal read used by the gRPC API.
func (s *PaymentService) GetDisputeHistory(ctx context.Context, disputeID uint64) (*DisputeTimeline, error) {
	dispute, err := s.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	return s.timeline(ctx, dispute)
}

func (s *PaymentService) timeline(ctx context.Context, dispute *entity.PaymentDispute) (*DisputeTimeline, error) {
	entries, err := s.historyRepo.ListByDispute(ctx, dispute.ID)
	if err != nil {
		return nil, err
	}

	timeline := &DisputeTimeline{Dispute: dispute, Entries: entries}
	stage, resolution, err := ReplayHistory(entries)
	if err != nil {
		s.logger.WithError(err).WithField("dispute_id", dispute.ID).Warn("dispute history does not replay")
		return timeline, nil
	}

	timeline.ReplayedStage = stage
	timeline.ReplayedResolution = resolution
	timeline.Consistent = stage == dispute.Stage && resolution == dispute.ResolutionStatus
	return timeline, nil
}
