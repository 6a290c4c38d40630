package mapper

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
	"github.com/vibast-solutions/ms-go-payment-verification/app/service"
)

func TestPaymentToProto(t *testing.T) {
	receipt := "receipts/r1"
	verifiedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("EET", 2*3600))
	item := &entity.Payment{
		ID:            5,
		AppointmentID: "appt-1",
		Amount:        decimal.RequireFromString("150.5"),
		Currency:      "USD",
		Method:        entity.MethodCard,
		Status:        entity.PaymentRefundRequested,
		ReceiptURL:    &receipt,
		VerifiedAt:    &verifiedAt,
		RefundAmount:  decimal.NewNullDecimal(decimal.RequireFromString("120.4")),
	}

	got := PaymentToProto(item, "")
	require.Equal(t, "150.50", got.Amount)
	require.Equal(t, "120.40", got.RefundAmount)
	require.Equal(t, "receipts/r1", got.ReceiptURL)
	require.Equal(t, "2026-03-01T10:00:00Z", got.VerifiedAt)
	require.Empty(t, got.CapturedAt)
	require.Empty(t, got.CreatedAt)

	require.Equal(t, "https://signed/r1", PaymentToProto(item, "https://signed/r1").ReceiptURL)
	require.Nil(t, PaymentToProto(nil, ""))
}

func TestPaymentToProtoOmitsMissingRefund(t *testing.T) {
	got := PaymentToProto(&entity.Payment{Amount: decimal.NewFromInt(10)}, "")
	require.Empty(t, got.RefundAmount)
	require.Empty(t, got.ReceiptURL)
}

func TestVerificationToProto(t *testing.T) {
	verifier := "staff-1"
	kind := entity.ActorStaff
	got := VerificationToProto(&entity.PaymentVerification{
		ID:             3,
		PaymentID:      5,
		VerifierUserID: &verifier,
		VerifierKind:   &kind,
		Status:         entity.VerificationPendingQueue,
	})
	require.Equal(t, "staff-1", got.VerifierUserID)
	require.Equal(t, "STAFF", got.VerifierKind)
	require.Equal(t, "PENDING_QUEUE", got.Status)
	require.Len(t, VerificationsToProto([]*entity.PaymentVerification{{ID: 1}, {ID: 2}}), 2)
}

func TestTimelineToProto(t *testing.T) {
	staffReview := entity.StageStaffReview
	timeline := &service.DisputeTimeline{
		Dispute: &entity.PaymentDispute{ID: 9, Stage: entity.StageDoctorReview, ResolutionStatus: entity.ResolutionOpen},
		Entries: []*entity.PaymentDisputeHistory{
			{ID: 1, ToStage: entity.StageStaffReview, ResolutionStatus: entity.ResolutionOpen},
			{ID: 2, FromStage: &staffReview, ToStage: entity.StageDoctorReview, ResolutionStatus: entity.ResolutionOpen},
		},
		Consistent: true,
	}

	got := TimelineToProto(timeline)
	require.Equal(t, uint64(9), got.Dispute.ID)
	require.True(t, got.Consistent)
	require.Len(t, got.History, 2)
	require.Empty(t, got.History[0].FromStage)
	require.Equal(t, "STAFF_REVIEW", got.History[1].FromStage)
	require.Equal(t, "DOCTOR_REVIEW", got.History[1].ToStage)
}
