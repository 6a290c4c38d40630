package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
)

type RefundPolicyRepository struct {
	db DBTX
}

func NewRefundPolicyRepository(db DBTX) *RefundPolicyRepository {
	return &RefundPolicyRepository{db: db}
}

// FindByDoctorID returns nil when the doctor has no stored policy.
func (r *RefundPolicyRepository) FindByDoctorID(ctx context.Context, doctorID string) (*entity.RefundPolicy, error) {
	query := `
		SELECT doctor_id, refund_cutoff_minutes, refund_deduction_percent,
			allow_full_refund_on_doctor_cancellation, updated_at
		FROM doctor_refund_policies
		WHERE doctor_id = ?
	`

	policy := &entity.RefundPolicy{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, doctorID).Scan(
		&policy.DoctorID,
		&policy.RefundCutoffMinutes,
		&policy.RefundDeductionPercent,
		&policy.AllowFullRefundOnDoctorCancellation,
		&policy.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return policy, nil
}
