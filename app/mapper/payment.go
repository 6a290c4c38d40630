package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
	"github.com/vibast-solutions/ms-go-payment-verification/app/refund"
	"github.com/vibast-solutions/ms-go-payment-verification/app/service"
	"github.com/vibast-solutions/ms-go-payment-verification/app/types"
)

// PaymentToProto maps a payment. receiptURL replaces the stored receipt reference
// when non-empty.
func PaymentToProto(item *entity.Payment, receiptURL string) *types.Payment {
	if item == nil {
		return nil
	}
	if receiptURL == "" {
		receiptURL = derefString(item.ReceiptURL)
	}
	places := refund.MinorUnitPlaces(item.Currency)

	result := &types.Payment{
		ID:                   item.ID,
		AppointmentID:        item.AppointmentID,
		PatientUserID:        item.PatientUserID,
		DoctorID:             item.DoctorID,
		AppointmentAt:        formatTime(item.AppointmentAt),
		Amount:               item.Amount.StringFixed(places),
		Currency:             item.Currency,
		Method:               string(item.Method),
		Status:               string(item.Status),
		TransactionReference: derefString(item.TransactionReference),
		ReceiptURL:           receiptURL,
		AttemptCount:         item.AttemptCount,
		LastAttemptAt:        formatTimePtr(item.LastAttemptAt),
		VerifiedByUserID:     derefString(item.VerifiedByUserID),
		VerificationNotes:    derefString(item.VerificationNotes),
		VerifiedAt:           formatTimePtr(item.VerifiedAt),
		CapturedAt:           formatTimePtr(item.CapturedAt),
		RefundRequestedAt:    formatTimePtr(item.RefundRequestedAt),
		RefundedAt:           formatTimePtr(item.RefundedAt),
		FailureReason:        derefString(item.FailureReason),
		CreatedAt:            formatTime(item.CreatedAt),
		UpdatedAt:            formatTime(item.UpdatedAt),
	}
	if item.RefundAmount.Valid {
		result.RefundAmount = item.RefundAmount.Decimal.StringFixed(places)
	}
	return result
}

func PaymentsToProto(items []*entity.Payment) []*types.Payment {
	result := make([]*types.Payment, 0, len(items))
	for _, item := range items {
		result = append(result, PaymentToProto(item, ""))
	}
	return result
}

func VerificationToProto(item *entity.PaymentVerification) *types.Verification {
	if item == nil {
		return nil
	}

	result := &types.Verification{
		ID:             item.ID,
		PaymentID:      item.PaymentID,
		VerifierUserID: derefString(item.VerifierUserID),
		ClaimedAt:      formatTimePtr(item.ClaimedAt),
		Status:         string(item.Status),
		Notes:          derefString(item.Notes),
		VerifiedAt:     formatTimePtr(item.VerifiedAt),
		Disputed:       item.Disputed,
		CreatedAt:      formatTime(item.CreatedAt),
		UpdatedAt:      formatTime(item.UpdatedAt),
	}
	if item.VerifierKind != nil {
		result.VerifierKind = string(*item.VerifierKind)
	}
	return result
}

func VerificationsToProto(items []*entity.PaymentVerification) []*types.Verification {
	result := make([]*types.Verification, 0, len(items))
	for _, item := range items {
		result = append(result, VerificationToProto(item))
	}
	return result
}

func DisputeToProto(item *entity.PaymentDispute) *types.Dispute {
	if item == nil {
		return nil
	}

	return &types.Dispute{
		ID:               item.ID,
		VerificationID:   item.VerificationID,
		PaymentID:        item.PaymentID,
		Stage:            string(item.Stage),
		ResolutionStatus: string(item.ResolutionStatus),
		RaisedByUserID:   item.RaisedByUserID,
		RaisedByKind:     string(item.RaisedByKind),
		Notes:            derefString(item.Notes),
		ResolvedByUserID: derefString(item.ResolvedByUserID),
		ResolvedAt:       formatTimePtr(item.ResolvedAt),
		CreatedAt:        formatTime(item.CreatedAt),
		UpdatedAt:        formatTime(item.UpdatedAt),
	}
}

func DisputeHistoryToProto(items []*entity.PaymentDisputeHistory) []*types.DisputeHistoryEntry {
	result := make([]*types.DisputeHistoryEntry, 0, len(items))
	for _, item := range items {
		entry := &types.DisputeHistoryEntry{
			ID:               item.ID,
			ToStage:          string(item.ToStage),
			ResolutionStatus: string(item.ResolutionStatus),
			ChangedByUserID:  item.ChangedByUserID,
			ChangedByKind:    string(item.ChangedByKind),
			Note:             derefString(item.Note),
			CreatedAt:        formatTime(item.CreatedAt),
		}
		if item.FromStage != nil {
			entry.FromStage = string(*item.FromStage)
		}
		result = append(result, entry)
	}
	return result
}

func TimelineToProto(timeline *service.DisputeTimeline) *types.DisputeHistoryResponse {
	if timeline == nil {
		return nil
	}
	return &types.DisputeHistoryResponse{
		Dispute:    DisputeToProto(timeline.Dispute),
		History:    DisputeHistoryToProto(timeline.Entries),
		Consistent: timeline.Consistent,
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
