package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
)

var ErrPaymentAlreadyExists = errors.New("active payment already exists for appointment")

const paymentColumns = `
	id, appointment_id, patient_user_id, doctor_id, appointment_at,
	amount, currency, method, status,
	transaction_reference, receipt_url, external_provider, external_status,
	attempt_count, last_attempt_at,
	verified_by_user_id, verification_notes, verified_at, captured_at,
	refund_amount, refund_requested_at, refunded_at, failure_reason,
	version, created_at, updated_at`

type PaymentFilter struct {
	AppointmentID string
	PatientUserID string
	DoctorID      string
	Status        entity.PaymentStatus
	Limit         int32
	Offset        int32
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (
			appointment_id, patient_user_id, doctor_id, appointment_at,
			amount, currency, method, status,
			transaction_reference, receipt_url, external_provider, external_status,
			attempt_count, last_attempt_at,
			verified_by_user_id, verification_notes, verified_at, captured_at,
			refund_amount, refund_requested_at, refunded_at, failure_reason,
			version, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		payment.AppointmentID,
		payment.PatientUserID,
		payment.DoctorID,
		payment.AppointmentAt.UTC(),
		payment.Amount,
		payment.Currency,
		string(payment.Method),
		string(payment.Status),
		nullableStringValue(payment.TransactionReference),
		nullableStringValue(payment.ReceiptURL),
		nullableStringValue(payment.ExternalProvider),
		nullableStringValue(payment.ExternalStatus),
		payment.AttemptCount,
		nullableTimeValue(payment.LastAttemptAt),
		nullableStringValue(payment.VerifiedByUserID),
		nullableStringValue(payment.VerificationNotes),
		nullableTimeValue(payment.VerifiedAt),
		nullableTimeValue(payment.CapturedAt),
		payment.RefundAmount,
		nullableTimeValue(payment.RefundRequestedAt),
		nullableTimeValue(payment.RefundedAt),
		nullableStringValue(payment.FailureReason),
		payment.Version,
		payment.CreatedAt.UTC(),
		payment.UpdatedAt.UTC(),
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	payment.ID = uint64(id)
	return nil
}

// Update persists every mutable column when the stored version still matches
// payment.Version, then bumps payment.Version.
func (r *PaymentRepository) Update(ctx context.Context, payment *entity.Payment) error {
	query := `
		UPDATE payments SET
			status = ?,
			transaction_reference = ?,
			receipt_url = ?,
			external_provider = ?,
			external_status = ?,
			attempt_count = ?,
			last_attempt_at = ?,
			verified_by_user_id = ?,
			verification_notes = ?,
			verified_at = ?,
			captured_at = ?,
			refund_amount = ?,
			refund_requested_at = ?,
			refunded_at = ?,
			failure_reason = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		string(payment.Status),
		nullableStringValue(payment.TransactionReference),
		nullableStringValue(payment.ReceiptURL),
		nullableStringValue(payment.ExternalProvider),
		nullableStringValue(payment.ExternalStatus),
		payment.AttemptCount,
		nullableTimeValue(payment.LastAttemptAt),
		nullableStringValue(payment.VerifiedByUserID),
		nullableStringValue(payment.VerificationNotes),
		nullableTimeValue(payment.VerifiedAt),
		nullableTimeValue(payment.CapturedAt),
		payment.RefundAmount,
		nullableTimeValue(payment.RefundRequestedAt),
		nullableTimeValue(payment.RefundedAt),
		nullableStringValue(payment.FailureReason),
		payment.UpdatedAt.UTC(),
		payment.ID,
		payment.Version,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentAlreadyExists
		}
		return err
	}
	if err := requireAffected(result, ErrVersionConflict); err != nil {
		return err
	}

	payment.Version++
	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id uint64) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`
	return r.findOne(ctx, query, id)
}

// FindByIDForUpdate locks the payment row until the surrounding transaction ends.
func (r *PaymentRepository) FindByIDForUpdate(ctx context.Context, id uint64) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = ? FOR UPDATE`
	return r.findOne(ctx, query, id)
}

// FindActiveByAppointmentForUpdate locks the appointment's active payment, if any.
func (r *PaymentRepository) FindActiveByAppointmentForUpdate(ctx context.Context, appointmentID string) (*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE appointment_id = ?
		  AND status NOT IN (?, ?, ?)
		ORDER BY id DESC
		LIMIT 1
		FOR UPDATE
	`
	return r.findOne(ctx, query, appointmentID,
		string(entity.PaymentRejected), string(entity.PaymentFailed), string(entity.PaymentRefunded))
}

// FindLatestByAppointment returns the most recent payment for the appointment regardless of status.
func (r *PaymentRepository) FindLatestByAppointment(ctx context.Context, appointmentID string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE appointment_id = ? ORDER BY id DESC LIMIT 1`
	return r.findOne(ctx, query, appointmentID)
}

func (r *PaymentRepository) List(ctx context.Context, filter PaymentFilter) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments`

	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 6)

	if strings.TrimSpace(filter.AppointmentID) != "" {
		conditions = append(conditions, "appointment_id = ?")
		args = append(args, filter.AppointmentID)
	}
	if strings.TrimSpace(filter.PatientUserID) != "" {
		conditions = append(conditions, "patient_user_id = ?")
		args = append(args, filter.PatientUserID)
	}
	if strings.TrimSpace(filter.DoctorID) != "" {
		conditions = append(conditions, "doctor_id = ?")
		args = append(args, filter.DoctorID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*entity.Payment, 0)
	for rows.Next() {
		item := &entity.Payment{}
		if err := scanPayment(rows, item); err != nil {
			return nil, err
		}
		payments = append(payments, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *PaymentRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Payment, error) {
	payment := &entity.Payment{}
	if err := scanPayment(conn(ctx, r.db).QueryRowContext(ctx, query, args...), payment); errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return payment, nil
}

func scanPayment(scan rowScanner, payment *entity.Payment) error {
	var transactionRef sql.NullString
	var receiptURL sql.NullString
	var externalProvider sql.NullString
	var externalStatus sql.NullString
	var lastAttemptAt sql.NullTime
	var verifiedBy sql.NullString
	var verificationNotes sql.NullString
	var verifiedAt sql.NullTime
	var capturedAt sql.NullTime
	var refundRequestedAt sql.NullTime
	var refundedAt sql.NullTime
	var failureReason sql.NullString

	err := scan.Scan(
		&payment.ID,
		&payment.AppointmentID,
		&payment.PatientUserID,
		&payment.DoctorID,
		&payment.AppointmentAt,
		&payment.Amount,
		&payment.Currency,
		&payment.Method,
		&payment.Status,
		&transactionRef,
		&receiptURL,
		&externalProvider,
		&externalStatus,
		&payment.AttemptCount,
		&lastAttemptAt,
		&verifiedBy,
		&verificationNotes,
		&verifiedAt,
		&capturedAt,
		&payment.RefundAmount,
		&refundRequestedAt,
		&refundedAt,
		&failureReason,
		&payment.Version,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return err
	}

	payment.TransactionReference = stringPtrFromNull(transactionRef)
	payment.ReceiptURL = stringPtrFromNull(receiptURL)
	payment.ExternalProvider = stringPtrFromNull(externalProvider)
	payment.ExternalStatus = stringPtrFromNull(externalStatus)
	payment.LastAttemptAt = timePtrFromNull(lastAttemptAt)
	payment.VerifiedByUserID = stringPtrFromNull(verifiedBy)
	payment.VerificationNotes = stringPtrFromNull(verificationNotes)
	payment.VerifiedAt = timePtrFromNull(verifiedAt)
	payment.CapturedAt = timePtrFromNull(capturedAt)
	payment.RefundRequestedAt = timePtrFromNull(refundRequestedAt)
	payment.RefundedAt = timePtrFromNull(refundedAt)
	payment.FailureReason = stringPtrFromNull(failureReason)

	return nil
}
