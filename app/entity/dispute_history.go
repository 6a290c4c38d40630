package entity

import "time"

// PaymentDisputeHistory rows are insert-only.
type PaymentDisputeHistory struct {
	ID        uint64
	DisputeID uint64

	FromStage        *DisputeStage
	ToStage          DisputeStage
	ResolutionStatus ResolutionStatus

	ChangedByUserID string
	ChangedByKind   ActorKind
	Note            *string

	CreatedAt time.Time
}
