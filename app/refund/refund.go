// Package refund computes how much of a payment is returned when an appointment is
// cancelled, given the doctor's refund policy.
package refund

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
)

var hundred = decimal.NewFromInt(100)

// minorUnits lists currencies whose minor unit is not two decimal places.
var minorUnits = map[string]int32{
	"BHD": 3,
	"CLP": 0,
	"IQD": 3,
	"JOD": 3,
	"JPY": 0,
	"KRW": 0,
	"KWD": 3,
	"LYD": 3,
	"OMR": 3,
	"TND": 3,
	"UGX": 0,
	"VND": 0,
	"XAF": 0,
	"XOF": 0,
}

// Input carries everything Compute needs. Times are compared at minute resolution.
type Input struct {
	Amount        decimal.Decimal
	Currency      string
	Policy        entity.RefundPolicy
	CancelledBy   entity.CancelledBy
	CancelTime    time.Time
	AppointmentAt time.Time
}

func MinorUnitPlaces(currency string) int32 {
	if places, ok := minorUnits[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return places
	}
	return 2
}

// Compute returns the refundable amount: the full amount for a doctor cancellation
// the policy covers or a cancellation at or beyond the cutoff, otherwise the amount
// reduced by the deduction percent and floored to the currency's minor unit.
func Compute(in Input) decimal.Decimal {
	amount := in.Amount
	if amount.IsNegative() {
		return decimal.Zero
	}

	if in.CancelledBy == entity.CancelledByDoctor && in.Policy.AllowFullRefundOnDoctorCancellation {
		return amount
	}

	if MinutesBefore(in.CancelTime, in.AppointmentAt) >= in.Policy.RefundCutoffMinutes {
		return amount
	}

	percent := clampPercent(in.Policy.RefundDeductionPercent)
	keep := decimal.NewFromInt(1).Sub(percent.Div(hundred))
	refunded := amount.Mul(keep).RoundFloor(MinorUnitPlaces(in.Currency))

	if refunded.IsNegative() {
		return decimal.Zero
	}
	if refunded.GreaterThan(amount) {
		return amount
	}
	return refunded
}

func MinutesBefore(cancelTime, appointmentAt time.Time) int64 {
	return int64(appointmentAt.Sub(cancelTime) / time.Minute)
}

func clampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}
