package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

type Verification struct {
	ID             uint64 `json:"id"`
	PaymentID      uint64 `json:"payment_id"`
	VerifierUserID string `json:"verifier_user_id,omitempty"`
	VerifierKind   string `json:"verifier_kind,omitempty"`
	ClaimedAt      string `json:"claimed_at,omitempty"`
	Status         string `json:"status"`
	Notes          string `json:"notes,omitempty"`
	VerifiedAt     string `json:"verified_at,omitempty"`
	Disputed       bool   `json:"disputed"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

type VerificationEnvelopeResponse struct {
	Verification *Verification `json:"verification"`
}

type ListVerificationsResponse struct {
	Verifications []*Verification `json:"verifications"`
}

type DecideVerificationRequest struct {
	VerificationID uint64 `json:"-"`
	Decision       string `json:"decision"`
	Notes          string `json:"notes"`
}

func NewDecideVerificationRequestFromContext(ctx echo.Context) (*DecideVerificationRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}

	var body DecideVerificationRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.VerificationID = id
	body.Decision = strings.ToUpper(strings.TrimSpace(body.Decision))
	body.Notes = strings.TrimSpace(body.Notes)

	return &body, nil
}

func (r *DecideVerificationRequest) Validate() error {
	if r.GetVerificationID() == 0 {
		return errors.New("invalid verification id")
	}
	switch r.GetDecision() {
	case "VERIFIED", "REJECTED", "ESCALATED", "REFUND_REQUESTED":
		return nil
	default:
		return errors.New("decision must be VERIFIED, REJECTED, ESCALATED or REFUND_REQUESTED")
	}
}

func (r *DecideVerificationRequest) GetVerificationID() uint64 { return r.VerificationID }
func (r *DecideVerificationRequest) GetDecision() string       { return r.Decision }
func (r *DecideVerificationRequest) GetNotes() string          { return r.Notes }

type ListQueueRequest struct {
	Status string
	Limit  int32
	Offset int32
}

func NewListQueueRequestFromContext(ctx echo.Context) (*ListQueueRequest, error) {
	limit, offset, err := parsePage(ctx)
	if err != nil {
		return nil, err
	}
	return &ListQueueRequest{
		Status: strings.ToUpper(strings.TrimSpace(ctx.QueryParam("status"))),
		Limit:  limit,
		Offset: offset,
	}, nil
}

func (r *ListQueueRequest) Validate() error {
	return validatePage(r.GetLimit(), r.GetOffset())
}

func (r *ListQueueRequest) GetStatus() string { return r.Status }
func (r *ListQueueRequest) GetLimit() int32   { return r.Limit }
func (r *ListQueueRequest) GetOffset() int32  { return r.Offset }
