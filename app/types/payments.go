package types

import (
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type Payment struct {
	ID                   uint64 `json:"id"`
	AppointmentID        string `json:"appointment_id"`
	PatientUserID        string `json:"patient_user_id"`
	DoctorID             string `json:"doctor_id"`
	AppointmentAt        string `json:"appointment_at"`
	Amount               string `json:"amount"`
	Currency             string `json:"currency"`
	Method               string `json:"method"`
	Status               string `json:"status"`
	TransactionReference string `json:"transaction_reference,omitempty"`
	ReceiptURL           string `json:"receipt_url,omitempty"`
	AttemptCount         int32  `json:"attempt_count"`
	LastAttemptAt        string `json:"last_attempt_at,omitempty"`
	VerifiedByUserID     string `json:"verified_by_user_id,omitempty"`
	VerificationNotes    string `json:"verification_notes,omitempty"`
	VerifiedAt           string `json:"verified_at,omitempty"`
	CapturedAt           string `json:"captured_at,omitempty"`
	RefundAmount         string `json:"refund_amount,omitempty"`
	RefundRequestedAt    string `json:"refund_requested_at,omitempty"`
	RefundedAt           string `json:"refunded_at,omitempty"`
	FailureReason        string `json:"failure_reason,omitempty"`
	CreatedAt            string `json:"created_at"`
	UpdatedAt            string `json:"updated_at"`
}

type PaymentEnvelopeResponse struct {
	Payment *Payment `json:"payment"`
}

type ListPaymentsResponse struct {
	Payments []*Payment `json:"payments"`
}

type SubmitPaymentRequest struct {
	AppointmentID        string          `json:"-"`
	PatientUserID        string          `json:"patient_user_id"`
	DoctorID             string          `json:"doctor_id"`
	AppointmentAt        time.Time       `json:"appointment_at"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	Method               string          `json:"method"`
	TransactionReference string          `json:"transaction_reference"`
	ReceiptURL           string          `json:"receipt_url"`
}

func NewSubmitPaymentRequestFromContext(ctx echo.Context) (*SubmitPaymentRequest, error) {
	var body SubmitPaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.AppointmentID = strings.TrimSpace(ctx.Param("appointmentId"))
	body.PatientUserID = strings.TrimSpace(body.PatientUserID)
	body.DoctorID = strings.TrimSpace(body.DoctorID)
	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.Method = strings.ToUpper(strings.TrimSpace(body.Method))
	body.TransactionReference = strings.TrimSpace(body.TransactionReference)
	body.ReceiptURL = strings.TrimSpace(body.ReceiptURL)

	return &body, nil
}

func (r *SubmitPaymentRequest) Validate() error {
	if r.GetAppointmentID() == "" {
		return errors.New("appointment id is required")
	}
	if r.GetDoctorID() == "" {
		return errors.New("doctor_id is required")
	}
	if r.GetAppointmentAt().IsZero() {
		return errors.New("appointment_at is required")
	}
	if !r.GetAmount().IsPositive() {
		return errors.New("amount must be > 0")
	}
	if len(r.GetCurrency()) != 3 {
		return errors.New("currency must be 3 letters")
	}
	if r.GetMethod() == "" {
		return errors.New("method is required")
	}
	return nil
}

func (r *SubmitPaymentRequest) GetAppointmentID() string        { return r.AppointmentID }
func (r *SubmitPaymentRequest) GetPatientUserID() string        { return r.PatientUserID }
func (r *SubmitPaymentRequest) GetDoctorID() string             { return r.DoctorID }
func (r *SubmitPaymentRequest) GetAppointmentAt() time.Time     { return r.AppointmentAt }
func (r *SubmitPaymentRequest) GetAmount() decimal.Decimal      { return r.Amount }
func (r *SubmitPaymentRequest) GetCurrency() string             { return r.Currency }
func (r *SubmitPaymentRequest) GetMethod() string               { return r.Method }
func (r *SubmitPaymentRequest) GetTransactionReference() string { return r.TransactionReference }
func (r *SubmitPaymentRequest) GetReceiptURL() string           { return r.ReceiptURL }

type ListPaymentsRequest struct {
	AppointmentID string
	PatientUserID string
	DoctorID      string
	Status        string
	Limit         int32
	Offset        int32
}

func NewListPaymentsRequestFromContext(ctx echo.Context) (*ListPaymentsRequest, error) {
	limit, offset, err := parsePage(ctx)
	if err != nil {
		return nil, err
	}

	return &ListPaymentsRequest{
		AppointmentID: strings.TrimSpace(ctx.QueryParam("appointment_id")),
		PatientUserID: strings.TrimSpace(ctx.QueryParam("patient_user_id")),
		DoctorID:      strings.TrimSpace(ctx.QueryParam("doctor_id")),
		Status:        strings.ToUpper(strings.TrimSpace(ctx.QueryParam("status"))),
		Limit:         limit,
		Offset:        offset,
	}, nil
}

func (r *ListPaymentsRequest) Validate() error {
	return validatePage(r.GetLimit(), r.GetOffset())
}

func (r *ListPaymentsRequest) GetAppointmentID() string { return r.AppointmentID }
func (r *ListPaymentsRequest) GetPatientUserID() string { return r.PatientUserID }
func (r *ListPaymentsRequest) GetDoctorID() string      { return r.DoctorID }
func (r *ListPaymentsRequest) GetStatus() string        { return r.Status }
func (r *ListPaymentsRequest) GetLimit() int32          { return r.Limit }
func (r *ListPaymentsRequest) GetOffset() int32         { return r.Offset }

type VerifyPaymentRequest struct {
	PaymentID         uint64 `json:"-"`
	Status            string `json:"status"`
	VerificationNotes string `json:"verification_notes"`
}

func NewVerifyPaymentRequestFromContext(ctx echo.Context) (*VerifyPaymentRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}

	var body VerifyPaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.PaymentID = id
	body.Status = strings.ToUpper(strings.TrimSpace(body.Status))
	body.VerificationNotes = strings.TrimSpace(body.VerificationNotes)

	return &body, nil
}

func (r *VerifyPaymentRequest) Validate() error {
	if r.GetPaymentID() == 0 {
		return errors.New("invalid payment id")
	}
	if r.GetStatus() == "" {
		return errors.New("status is required")
	}
	return nil
}

func (r *VerifyPaymentRequest) GetPaymentID() uint64         { return r.PaymentID }
func (r *VerifyPaymentRequest) GetStatus() string            { return r.Status }
func (r *VerifyPaymentRequest) GetVerificationNotes() string { return r.VerificationNotes }

type RefundPaymentRequest struct {
	PaymentID   uint64     `json:"-"`
	CancelledBy string     `json:"cancelled_by"`
	CancelledAt *time.Time `json:"cancelled_at"`
}

func NewRefundPaymentRequestFromContext(ctx echo.Context) (*RefundPaymentRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}

	var body RefundPaymentRequest
	if err := bindOptional(ctx, &body); err != nil {
		return nil, err
	}
	body.PaymentID = id
	body.CancelledBy = strings.ToUpper(strings.TrimSpace(body.CancelledBy))

	return &body, nil
}

func (r *RefundPaymentRequest) Validate() error {
	if r.GetPaymentID() == 0 {
		return errors.New("invalid payment id")
	}
	switch r.GetCancelledBy() {
	case "", "PATIENT", "DOCTOR":
	default:
		return errors.New("cancelled_by must be PATIENT or DOCTOR")
	}
	return nil
}

func (r *RefundPaymentRequest) GetPaymentID() uint64  { return r.PaymentID }
func (r *RefundPaymentRequest) GetCancelledBy() string { return r.CancelledBy }

func (r *RefundPaymentRequest) GetCancelledAt() time.Time {
	if r.CancelledAt == nil {
		return time.Time{}
	}
	return *r.CancelledAt
}

type FailRefundRequest struct {
	PaymentID uint64 `json:"-"`
	Reason    string `json:"reason"`
}

func NewFailRefundRequestFromContext(ctx echo.Context) (*FailRefundRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}

	var body FailRefundRequest
	if err := bindOptional(ctx, &body); err != nil {
		return nil, err
	}
	body.PaymentID = id
	body.Reason = strings.TrimSpace(body.Reason)

	return &body, nil
}

func (r *FailRefundRequest) Validate() error {
	if r.GetPaymentID() == 0 {
		return errors.New("invalid payment id")
	}
	if r.GetReason() == "" {
		return errors.New("reason is required")
	}
	return nil
}

func (r *FailRefundRequest) GetPaymentID() uint64 { return r.PaymentID }
func (r *FailRefundRequest) GetReason() string    { return r.Reason }
