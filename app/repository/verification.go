package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
)

const verificationColumns = `
	id, payment_id, verifier_user_id, verifier_kind, claimed_at,
	status, notes, verified_at, disputed, version, created_at, updated_at`

type VerificationRepository struct {
	db DBTX
}

func NewVerificationRepository(db DBTX) *VerificationRepository {
	return &VerificationRepository{db: db}
}

func (r *VerificationRepository) Create(ctx context.Context, v *entity.PaymentVerification) error {
	query := `
		INSERT INTO payment_verifications (
			payment_id, verifier_user_id, verifier_kind, claimed_at,
			status, notes, verified_at, disputed, version, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		v.PaymentID,
		nullableStringValue(v.VerifierUserID),
		nullableActorKindValue(v.VerifierKind),
		nullableTimeValue(v.ClaimedAt),
		string(v.Status),
		nullableStringValue(v.Notes),
		nullableTimeValue(v.VerifiedAt),
		v.Disputed,
		v.Version,
		v.CreatedAt.UTC(),
		v.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	return nil
}

func (r *VerificationRepository) Update(ctx context.Context, v *entity.PaymentVerification) error {
	query := `
		UPDATE payment_verifications SET
			verifier_user_id = ?,
			verifier_kind = ?,
			claimed_at = ?,
			status = ?,
			notes = ?,
			verified_at = ?,
			disputed = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		nullableStringValue(v.VerifierUserID),
		nullableActorKindValue(v.VerifierKind),
		nullableTimeValue(v.ClaimedAt),
		string(v.Status),
		nullableStringValue(v.Notes),
		nullableTimeValue(v.VerifiedAt),
		v.Disputed,
		v.UpdatedAt.UTC(),
		v.ID,
		v.Version,
	)
	if err != nil {
		return err
	}
	if err := requireAffected(result, ErrVersionConflict); err != nil {
		return err
	}

	v.Version++
	return nil
}

func (r *VerificationRepository) FindByID(ctx context.Context, id uint64) (*entity.PaymentVerification, error) {
	query := `SELECT ` + verificationColumns + ` FROM payment_verifications WHERE id = ?`
	return r.findOne(ctx, query, id)
}

func (r *VerificationRepository) FindByIDForUpdate(ctx context.Context, id uint64) (*entity.PaymentVerification, error) {
	query := `SELECT ` + verificationColumns + ` FROM payment_verifications WHERE id = ? FOR UPDATE`
	return r.findOne(ctx, query, id)
}

// FindOpenByPaymentForUpdate locks the payment's verification that is still queued or escalated.
func (r *VerificationRepository) FindOpenByPaymentForUpdate(ctx context.Context, paymentID uint64) (*entity.PaymentVerification, error) {
	query := `
		SELECT ` + verificationColumns + `
		FROM payment_verifications
		WHERE payment_id = ? AND status IN (?, ?)
		ORDER BY id DESC
		LIMIT 1
		FOR UPDATE
	`
	return r.findOne(ctx, query, paymentID,
		string(entity.VerificationPendingQueue), string(entity.VerificationEscalated))
}

// FindLatestByPayment returns the newest verification record of the payment.
func (r *VerificationRepository) FindLatestByPayment(ctx context.Context, paymentID uint64) (*entity.PaymentVerification, error) {
	query := `SELECT ` + verificationColumns + ` FROM payment_verifications WHERE payment_id = ? ORDER BY id DESC LIMIT 1`
	return r.findOne(ctx, query, paymentID)
}

// ClaimNextForUpdate locks the oldest unclaimed queued verification. Rows locked
// by concurrent claimers are skipped, so two callers never receive the same row.
func (r *VerificationRepository) ClaimNextForUpdate(ctx context.Context) (*entity.PaymentVerification, error) {
	query := `
		SELECT ` + verificationColumns + `
		FROM payment_verifications
		WHERE status = ? AND verifier_user_id IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`
	return r.findOne(ctx, query, string(entity.VerificationPendingQueue))
}

// ListByStatus returns verifications in FIFO order.
func (r *VerificationRepository) ListByStatus(ctx context.Context, status entity.VerificationStatus, limit, offset int32) ([]*entity.PaymentVerification, error) {
	query := `
		SELECT ` + verificationColumns + `
		FROM payment_verifications
		WHERE status = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.PaymentVerification, 0)
	for rows.Next() {
		item := &entity.PaymentVerification{}
		if err := scanVerification(rows, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *VerificationRepository) CountByStatus(ctx context.Context, status entity.VerificationStatus) (int64, error) {
	var count int64
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payment_verifications WHERE status = ?`, string(status)).Scan(&count)
	return count, err
}

// ReleaseStaleClaims returns queued claims older than cutoff to the pool in a
// single conditional statement and reports how many rows were released.
func (r *VerificationRepository) ReleaseStaleClaims(ctx context.Context, cutoff, now time.Time, limit int32) (int64, error) {
	query := `
		UPDATE payment_verifications SET
			verifier_user_id = NULL,
			verifier_kind = NULL,
			claimed_at = NULL,
			version = version + 1,
			updated_at = ?
		WHERE status = ?
		  AND verifier_user_id IS NOT NULL
		  AND claimed_at < ?
		ORDER BY claimed_at ASC
		LIMIT ?
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		now.UTC(), string(entity.VerificationPendingQueue), cutoff.UTC(), limit)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *VerificationRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.PaymentVerification, error) {
	v := &entity.PaymentVerification{}
	if err := scanVerification(conn(ctx, r.db).QueryRowContext(ctx, query, args...), v); errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return v, nil
}

func scanVerification(scan rowScanner, v *entity.PaymentVerification) error {
	var verifierUserID sql.NullString
	var verifierKind sql.NullString
	var claimedAt sql.NullTime
	var notes sql.NullString
	var verifiedAt sql.NullTime

	err := scan.Scan(
		&v.ID,
		&v.PaymentID,
		&verifierUserID,
		&verifierKind,
		&claimedAt,
		&v.Status,
		&notes,
		&verifiedAt,
		&v.Disputed,
		&v.Version,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return err
	}

	v.VerifierUserID = stringPtrFromNull(verifierUserID)
	v.VerifierKind = actorKindPtrFromNull(verifierKind)
	v.ClaimedAt = timePtrFromNull(claimedAt)
	v.Notes = stringPtrFromNull(notes)
	v.VerifiedAt = timePtrFromNull(verifiedAt)

	return nil
}
