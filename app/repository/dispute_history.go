package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
)

// DisputeHistoryRepository only appends and reads; the table rejects updates and deletes.
type DisputeHistoryRepository struct {
	db DBTX
}

func NewDisputeHistoryRepository(db DBTX) *DisputeHistoryRepository {
	return &DisputeHistoryRepository{db: db}
}

func (r *DisputeHistoryRepository) Append(ctx context.Context, entry *entity.PaymentDisputeHistory) error {
	query := `
		INSERT INTO payment_dispute_history (
			dispute_id, from_stage, to_stage, resolution_status,
			changed_by_user_id, changed_by_kind, note, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		entry.DisputeID,
		nullableStageValue(entry.FromStage),
		string(entry.ToStage),
		string(entry.ResolutionStatus),
		entry.ChangedByUserID,
		string(entry.ChangedByKind),
		nullableStringValue(entry.Note),
		entry.CreatedAt.UTC(),
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = uint64(id)

	return nil
}

// ListByDispute returns the dispute's entries in the order they were written.
func (r *DisputeHistoryRepository) ListByDispute(ctx context.Context, disputeID uint64) ([]*entity.PaymentDisputeHistory, error) {
	query := `
		SELECT id, dispute_id, from_stage, to_stage, resolution_status,
			changed_by_user_id, changed_by_kind, note, created_at
		FROM payment_dispute_history
		WHERE dispute_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, disputeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.PaymentDisputeHistory, 0)
	for rows.Next() {
		var fromStage sql.NullString
		var note sql.NullString
		item := &entity.PaymentDisputeHistory{}
		if err := rows.Scan(
			&item.ID,
			&item.DisputeID,
			&fromStage,
			&item.ToStage,
			&item.ResolutionStatus,
			&item.ChangedByUserID,
			&item.ChangedByKind,
			&note,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		item.FromStage = stagePtrFromNull(fromStage)
		item.Note = stringPtrFromNull(note)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
