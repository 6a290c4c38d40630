package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type CancelledBy string

const (
	CancelledByPatient CancelledBy = "PATIENT"
	CancelledByDoctor  CancelledBy = "DOCTOR"
)

func (c CancelledBy) Valid() bool {
	return c == CancelledByPatient || c == CancelledByDoctor
}

type RefundPolicy struct {
	DoctorID                            string
	RefundCutoffMinutes                 int64
	RefundDeductionPercent              decimal.Decimal
	AllowFullRefundOnDoctorCancellation bool

	UpdatedAt time.Time
}
