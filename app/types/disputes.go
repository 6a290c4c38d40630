package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

type Dispute struct {
	ID               uint64 `json:"id"`
	VerificationID   uint64 `json:"verification_id"`
	PaymentID        uint64 `json:"payment_id"`
	Stage            string `json:"stage"`
	ResolutionStatus string `json:"resolution_status"`
	RaisedByUserID   string `json:"raised_by_user_id"`
	RaisedByKind     string `json:"raised_by_kind"`
	Notes            string `json:"notes,omitempty"`
	ResolvedByUserID string `json:"resolved_by_user_id,omitempty"`
	ResolvedAt       string `json:"resolved_at,omitempty"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

type DisputeHistoryEntry struct {
	ID               uint64 `json:"id"`
	FromStage        string `json:"from_stage,omitempty"`
	ToStage          string `json:"to_stage"`
	ResolutionStatus string `json:"resolution_status"`
	ChangedByUserID  string `json:"changed_by_user_id"`
	ChangedByKind    string `json:"changed_by_kind"`
	Note             string `json:"note,omitempty"`
	CreatedAt        string `json:"created_at"`
}

type DisputeEnvelopeResponse struct {
	Dispute *Dispute `json:"dispute"`
}

type DisputeHistoryResponse struct {
	Dispute    *Dispute               `json:"dispute"`
	History    []*DisputeHistoryEntry `json:"history"`
	Consistent bool                   `json:"consistent"`
}

type RaiseDisputeRequest struct {
	VerificationID uint64 `json:"verification_id"`
	Notes          string `json:"notes"`
}

func NewRaiseDisputeRequestFromContext(ctx echo.Context) (*RaiseDisputeRequest, error) {
	var body RaiseDisputeRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Notes = strings.TrimSpace(body.Notes)
	return &body, nil
}

func (r *RaiseDisputeRequest) Validate() error {
	if r.GetVerificationID() == 0 {
		return errors.New("verification_id is required")
	}
	return nil
}

func (r *RaiseDisputeRequest) GetVerificationID() uint64 { return r.VerificationID }
func (r *RaiseDisputeRequest) GetNotes() string          { return r.Notes }

type EscalateDisputeRequest struct {
	DisputeID uint64 `json:"-"`
	Note      string `json:"note"`
}

func NewEscalateDisputeRequestFromContext(ctx echo.Context) (*EscalateDisputeRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}

	var body EscalateDisputeRequest
	if err := bindOptional(ctx, &body); err != nil {
		return nil, err
	}
	body.DisputeID = id
	body.Note = strings.TrimSpace(body.Note)

	return &body, nil
}

func (r *EscalateDisputeRequest) Validate() error {
	if r.GetDisputeID() == 0 {
		return errors.New("invalid dispute id")
	}
	return nil
}

func (r *EscalateDisputeRequest) GetDisputeID() uint64 { return r.DisputeID }
func (r *EscalateDisputeRequest) GetNote() string      { return r.Note }

type ResolveDisputeRequest struct {
	DisputeID        uint64 `json:"-"`
	ResolutionStatus string `json:"resolution_status"`
	Note             string `json:"note"`
}

func NewResolveDisputeRequestFromContext(ctx echo.Context) (*ResolveDisputeRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}

	var body ResolveDisputeRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.DisputeID = id
	body.ResolutionStatus = strings.ToUpper(strings.TrimSpace(body.ResolutionStatus))
	body.Note = strings.TrimSpace(body.Note)

	return &body, nil
}

func (r *ResolveDisputeRequest) Validate() error {
	if r.GetDisputeID() == 0 {
		return errors.New("invalid dispute id")
	}
	if r.GetResolutionStatus() == "" {
		return errors.New("resolution_status is required")
	}
	return nil
}

func (r *ResolveDisputeRequest) GetDisputeID() uint64        { return r.DisputeID }
func (r *ResolveDisputeRequest) GetResolutionStatus() string { return r.ResolutionStatus }
func (r *ResolveDisputeRequest) GetNote() string             { return r.Note }
