package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
)

var ErrDisputeAlreadyOpen = errors.New("verification already has an open dispute")

const disputeColumns = `
	id, verification_id, payment_id, stage, resolution_status,
	raised_by_user_id, raised_by_kind, notes, resolved_by_user_id, resolved_at,
	version, created_at, updated_at`

type DisputeRepository struct {
	db DBTX
}

func NewDisputeRepository(db DBTX) *DisputeRepository {
	return &DisputeRepository{db: db}
}

func (r *DisputeRepository) Create(ctx context.Context, dispute *entity.PaymentDispute) error {
	query := `
		INSERT INTO payment_disputes (
			verification_id, payment_id, stage, resolution_status,
			raised_by_user_id, raised_by_kind, notes, resolved_by_user_id, resolved_at,
			version, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		dispute.VerificationID,
		dispute.PaymentID,
		string(dispute.Stage),
		string(dispute.ResolutionStatus),
		dispute.RaisedByUserID,
		string(dispute.RaisedByKind),
		nullableStringValue(dispute.Notes),
		nullableStringValue(dispute.ResolvedByUserID),
		nullableTimeValue(dispute.ResolvedAt),
		dispute.Version,
		dispute.CreatedAt.UTC(),
		dispute.UpdatedAt.UTC(),
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDisputeAlreadyOpen
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	dispute.ID = uint64(id)
	return nil
}

func (r *DisputeRepository) Update(ctx context.Context, dispute *entity.PaymentDispute) error {
	query := `
		UPDATE payment_disputes SET
			stage = ?,
			resolution_status = ?,
			notes = ?,
			resolved_by_user_id = ?,
			resolved_at = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		string(dispute.Stage),
		string(dispute.ResolutionStatus),
		nullableStringValue(dispute.Notes),
		nullableStringValue(dispute.ResolvedByUserID),
		nullableTimeValue(dispute.ResolvedAt),
		dispute.UpdatedAt.UTC(),
		dispute.ID,
		dispute.Version,
	)
	if err != nil {
		return err
	}
	if err := requireAffected(result, ErrVersionConflict); err != nil {
		return err
	}

	dispute.Version++
	return nil
}

func (r *DisputeRepository) FindByID(ctx context.Context, id uint64) (*entity.PaymentDispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM payment_disputes WHERE id = ?`
	return r.findOne(ctx, query, id)
}

func (r *DisputeRepository) FindByIDForUpdate(ctx context.Context, id uint64) (*entity.PaymentDispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM payment_disputes WHERE id = ? FOR UPDATE`
	return r.findOne(ctx, query, id)
}

func (r *DisputeRepository) FindOpenByVerificationForUpdate(ctx context.Context, verificationID uint64) (*entity.PaymentDispute, error) {
	query := `
		SELECT ` + disputeColumns + `
		FROM payment_disputes
		WHERE verification_id = ? AND stage <> ?
		LIMIT 1
		FOR UPDATE
	`
	return r.findOne(ctx, query, verificationID, string(entity.StageResolved))
}

// ListUpdatedSince pages through disputes touched at or after since, oldest first.
func (r *DisputeRepository) ListUpdatedSince(ctx context.Context, since time.Time, afterID uint64, limit int32) ([]*entity.PaymentDispute, error) {
	query := `
		SELECT ` + disputeColumns + `
		FROM payment_disputes
		WHERE updated_at >= ? AND id > ?
		ORDER BY id ASC
		LIMIT ?
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, since.UTC(), afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.PaymentDispute, 0)
	for rows.Next() {
		item := &entity.PaymentDispute{}
		if err := scanDispute(rows, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *DisputeRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.PaymentDispute, error) {
	dispute := &entity.PaymentDispute{}
	if err := scanDispute(conn(ctx, r.db).QueryRowContext(ctx, query, args...), dispute); errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return dispute, nil
}

func scanDispute(scan rowScanner, dispute *entity.PaymentDispute) error {
	var notes sql.NullString
	var resolvedBy sql.NullString
	var resolvedAt sql.NullTime

	err := scan.Scan(
		&dispute.ID,
		&dispute.VerificationID,
		&dispute.PaymentID,
		&dispute.Stage,
		&dispute.ResolutionStatus,
		&dispute.RaisedByUserID,
		&dispute.RaisedByKind,
		&notes,
		&resolvedBy,
		&resolvedAt,
		&dispute.Version,
		&dispute.CreatedAt,
		&dispute.UpdatedAt,
	)
	if err != nil {
		return err
	}

	dispute.Notes = stringPtrFromNull(notes)
	dispute.ResolvedByUserID = stringPtrFromNull(resolvedBy)
	dispute.ResolvedAt = timePtrFromNull(resolvedAt)

	return nil
}
