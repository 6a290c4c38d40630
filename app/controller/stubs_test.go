package controller

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-payment-verification/app/auth"
	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
	"github.com/vibast-solutions/ms-go-payment-verification/app/repository"
	"github.com/vibast-solutions/ms-go-payment-verification/app/service"
	"github.com/vibast-solutions/ms-go-payment-verification/config"
)

type controllerTx struct{}

func (controllerTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type controllerPaymentRepo struct {
	createFn     func(ctx context.Context, payment *entity.Payment) error
	findByIDFn   func(ctx context.Context, id uint64) (*entity.Payment, error)
	findActiveFn func(ctx context.Context, appointmentID string) (*entity.Payment, error)
	listFn       func(ctx context.Context, filter repository.PaymentFilter) ([]*entity.Payment, error)
}

func (r *controllerPaymentRepo) Create(ctx context.Context, payment *entity.Payment) error {
	if r.createFn != nil {
		return r.createFn(ctx, payment)
	}
	return nil
}

func (r *controllerPaymentRepo) Update(context.Context, *entity.Payment) error {
	return nil
}

func (r *controllerPaymentRepo) FindByID(ctx context.Context, id uint64) (*entity.Payment, error) {
	if r.findByIDFn != nil {
		return r.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (r *controllerPaymentRepo) FindByIDForUpdate(ctx context.Context, id uint64) (*entity.Payment, error) {
	return r.FindByID(ctx, id)
}

func (r *controllerPaymentRepo) FindActiveByAppointmentForUpdate(ctx context.Context, appointmentID string) (*entity.Payment, error) {
	if r.findActiveFn != nil {
		return r.findActiveFn(ctx, appointmentID)
	}
	return nil, nil
}

func (r *controllerPaymentRepo) FindLatestByAppointment(ctx context.Context, appointmentID string) (*entity.Payment, error) {
	return r.FindActiveByAppointmentForUpdate(ctx, appointmentID)
}

func (r *controllerPaymentRepo) List(ctx context.Context, filter repository.PaymentFilter) ([]*entity.Payment, error) {
	if r.listFn != nil {
		return r.listFn(ctx, filter)
	}
	return []*entity.Payment{}, nil
}

type controllerVerificationRepo struct {
	claimNextFn func(ctx context.Context) (*entity.PaymentVerification, error)
}

func (r *controllerVerificationRepo) Create(context.Context, *entity.PaymentVerification) error {
	return nil
}

func (r *controllerVerificationRepo) Update(context.Context, *entity.PaymentVerification) error {
	return nil
}

func (r *controllerVerificationRepo) FindByID(context.Context, uint64) (*entity.PaymentVerification, error) {
	return nil, nil
}

func (r *controllerVerificationRepo) FindByIDForUpdate(context.Context, uint64) (*entity.PaymentVerification, error) {
	return nil, nil
}

func (r *controllerVerificationRepo) FindOpenByPaymentForUpdate(context.Context, uint64) (*entity.PaymentVerification, error) {
	return nil, nil
}

func (r *controllerVerificationRepo) FindLatestByPayment(context.Context, uint64) (*entity.PaymentVerification, error) {
	return nil, nil
}

func (r *controllerVerificationRepo) ClaimNextForUpdate(ctx context.Context) (*entity.PaymentVerification, error) {
	if r.claimNextFn != nil {
		return r.claimNextFn(ctx)
	}
	return nil, nil
}

func (r *controllerVerificationRepo) ListByStatus(context.Context, entity.VerificationStatus, int32, int32) ([]*entity.PaymentVerification, error) {
	return []*entity.PaymentVerification{}, nil
}

func (r *controllerVerificationRepo) CountByStatus(context.Context, entity.VerificationStatus) (int64, error) {
	return 0, nil
}

func (r *controllerVerificationRepo) ReleaseStaleClaims(context.Context, time.Time, time.Time, int32) (int64, error) {
	return 0, nil
}

type controllerDisputeRepo struct {
	findByIDFn func(ctx context.Context, id uint64) (*entity.PaymentDispute, error)
}

func (r *controllerDisputeRepo) Create(context.Context, *entity.PaymentDispute) error {
	return nil
}

func (r *controllerDisputeRepo) Update(context.Context, *entity.PaymentDispute) error {
	return nil
}

func (r *controllerDisputeRepo) FindByID(ctx context.Context, id uint64) (*entity.PaymentDispute, error) {
	if r.findByIDFn != nil {
		return r.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (r *controllerDisputeRepo) FindByIDForUpdate(ctx context.Context, id uint64) (*entity.PaymentDispute, error) {
	return r.FindByID(ctx, id)
}

func (r *controllerDisputeRepo) FindOpenByVerificationForUpdate(context.Context, uint64) (*entity.PaymentDispute, error) {
	return nil, nil
}

func (r *controllerDisputeRepo) ListUpdatedSince(context.Context, time.Time, uint64, int32) ([]*entity.PaymentDispute, error) {
	return []*entity.PaymentDispute{}, nil
}

type controllerHistoryRepo struct {
	entries []*entity.PaymentDisputeHistory
}

func (r *controllerHistoryRepo) Append(context.Context, *entity.PaymentDisputeHistory) error {
	return nil
}

func (r *controllerHistoryRepo) ListByDispute(context.Context, uint64) ([]*entity.PaymentDisputeHistory, error) {
	return r.entries, nil
}

type controllerOutboxRepo struct {
	created []*entity.OutboxEvent
}

func (r *controllerOutboxRepo) Create(_ context.Context, event *entity.OutboxEvent) error {
	r.created = append(r.created, event)
	return nil
}

func (r *controllerOutboxRepo) Update(context.Context, *entity.OutboxEvent) error {
	return nil
}

func (r *controllerOutboxRepo) ListDueForUpdate(context.Context, time.Time, int32) ([]*entity.OutboxEvent, error) {
	return []*entity.OutboxEvent{}, nil
}

type controllerPolicyRepo struct{}

func (controllerPolicyRepo) FindByDoctorID(context.Context, string) (*entity.RefundPolicy, error) {
	return nil, nil
}

type controllerRepos struct {
	payments      *controllerPaymentRepo
	verifications *controllerVerificationRepo
	disputes      *controllerDisputeRepo
	history       *controllerHistoryRepo
	outbox        *controllerOutboxRepo
}

func newControllerRepos() *controllerRepos {
	return &controllerRepos{
		payments:      &controllerPaymentRepo{},
		verifications: &controllerVerificationRepo{},
		disputes:      &controllerDisputeRepo{},
		history:       &controllerHistoryRepo{},
		outbox:        &controllerOutboxRepo{},
	}
}

func (r *controllerRepos) service() *service.PaymentService {
	return service.NewPaymentService(
		controllerTx{},
		service.Repositories{
			Payments:      r.payments,
			Verifications: r.verifications,
			Disputes:      r.disputes,
			History:       r.history,
			Outbox:        r.outbox,
			RefundPolicy:  controllerPolicyRepo{},
		},
		auth.NewRoleAuthorizer(),
		service.Config{
			Payments: config.PaymentsConfig{ClaimTimeout: 30 * time.Minute, JobBatchSize: 100},
			Refund:   config.RefundConfig{DefaultCutoffMinutes: 1440, DefaultDeductionPercent: decimal.NewFromInt(20)},
			Outbox:   config.OutboxConfig{MaxAttempts: 3, RetryInterval: time.Minute},
		},
	)
}
