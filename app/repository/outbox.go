package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
)

type OutboxRepository struct {
	db DBTX
}

func NewOutboxRepository(db DBTX) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Create(ctx context.Context, event *entity.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (
			event_id, aggregate_type, aggregate_id, event_type, recipient_user_id, payload_json,
			status, attempts, next_attempt_at, last_error, published_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		event.EventID,
		event.AggregateType,
		event.AggregateID,
		event.EventType,
		nullableStringValue(event.RecipientUserID),
		event.PayloadJSON,
		event.Status,
		event.Attempts,
		nullableTimeValue(event.NextAttemptAt),
		nullableStringValue(event.LastError),
		nullableTimeValue(event.PublishedAt),
		event.CreatedAt.UTC(),
		event.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)

	return nil
}

func (r *OutboxRepository) Update(ctx context.Context, event *entity.OutboxEvent) error {
	query := `
		UPDATE outbox_events SET
			status = ?,
			attempts = ?,
			next_attempt_at = ?,
			last_error = ?,
			published_at = ?,
			updated_at = ?
		WHERE id = ?
	`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		event.Status,
		event.Attempts,
		nullableTimeValue(event.NextAttemptAt),
		nullableStringValue(event.LastError),
		nullableTimeValue(event.PublishedAt),
		event.UpdatedAt.UTC(),
		event.ID,
	)
	return err
}

// ListDueForUpdate locks pending events whose next attempt is due. Rows held by
// another dispatcher are skipped.
func (r *OutboxRepository) ListDueForUpdate(ctx context.Context, now time.Time, limit int32) ([]*entity.OutboxEvent, error) {
	query := `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, recipient_user_id, payload_json,
			status, attempts, next_attempt_at, last_error, published_at, created_at, updated_at
		FROM outbox_events
		WHERE status = ?
		  AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
		ORDER BY id ASC
		LIMIT ?
		FOR UPDATE SKIP LOCKED
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, entity.OutboxPending, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.OutboxEvent, 0)
	for rows.Next() {
		var recipient sql.NullString
		var nextAttemptAt sql.NullTime
		var lastError sql.NullString
		var publishedAt sql.NullTime
		item := &entity.OutboxEvent{}
		if err := rows.Scan(
			&item.ID,
			&item.EventID,
			&item.AggregateType,
			&item.AggregateID,
			&item.EventType,
			&recipient,
			&item.PayloadJSON,
			&item.Status,
			&item.Attempts,
			&nextAttemptAt,
			&lastError,
			&publishedAt,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		item.RecipientUserID = stringPtrFromNull(recipient)
		item.NextAttemptAt = timePtrFromNull(nextAttemptAt)
		item.LastError = stringPtrFromNull(lastError)
		item.PublishedAt = timePtrFromNull(publishedAt)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
