package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
	"github.com/vibast-solutions/ms-go-payment-verification/app/factory"
	"github.com/vibast-solutions/ms-go-payment-verification/app/repository"
	"github.com/vibast-solutions/ms-go-payment-verification/config"
	"golang.org/x/time/rate"
)

const (
	defaultListLimit = int32(100)
	maxListLimit     = int32(500)
	defaultBatchSize = int32(100)
)

type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type paymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	Update(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uint64) (*entity.Payment, error)
	FindByIDForUpdate(ctx context.Context, id uint64) (*entity.Payment, error)
	FindActiveByAppointmentForUpdate(ctx context.Context, appointmentID string) (*entity.Payment, error)
	FindLatestByAppointment(ctx context.Context, appointmentID string) (*entity.Payment, error)
	List(ctx context.Context, filter repository.PaymentFilter) ([]*entity.Payment, error)
}

type verificationRepository interface {
	Create(ctx context.Context, v *entity.PaymentVerification) error
	Update(ctx context.Context, v *entity.PaymentVerification) error
	FindByID(ctx context.Context, id uint64) (*entity.PaymentVerification, error)
	FindByIDForUpdate(ctx context.Context, id uint64) (*entity.PaymentVerification, error)
	FindOpenByPaymentForUpdate(ctx context.Context, paymentID uint64) (*entity.PaymentVerification, error)
	FindLatestByPayment(ctx context.Context, paymentID uint64) (*entity.PaymentVerification, error)
	ClaimNextForUpdate(ctx context.Context) (*entity.PaymentVerification, error)
	ListByStatus(ctx context.Context, status entity.VerificationStatus, limit, offset int32) ([]*entity.PaymentVerification, error)
	CountByStatus(ctx context.Context, status entity.VerificationStatus) (int64, error)
	ReleaseStaleClaims(ctx context.Context, cutoff, now time.Time, limit int32) (int64, error)
}

type disputeRepository interface {
	Create(ctx context.Context, dispute *entity.PaymentDispute) error
	Update(ctx context.Context, dispute *entity.PaymentDispute) error
	FindByID(ctx context.Context, id uint64) (*entity.PaymentDispute, error)
	FindByIDForUpdate(ctx context.Context, id uint64) (*entity.PaymentDispute, error)
	FindOpenByVerificationForUpdate(ctx context.Context, verificationID uint64) (*entity.PaymentDispute, error)
	ListUpdatedSince(ctx context.Context, since time.Time, afterID uint64, limit int32) ([]*entity.PaymentDispute, error)
}

type disputeHistoryRepository interface {
	Append(ctx context.Context, entry *entity.PaymentDisputeHistory) error
	ListByDispute(ctx context.Context, disputeID uint64) ([]*entity.PaymentDisputeHistory, error)
}

type outboxRepository interface {
	Create(ctx context.Context, event *entity.OutboxEvent) error
	Update(ctx context.Context, event *entity.OutboxEvent) error
	ListDueForUpdate(ctx context.Context, now time.Time, limit int32) ([]*entity.OutboxEvent, error)
}

type refundPolicyRepository interface {
	FindByDoctorID(ctx context.Context, doctorID string) (*entity.RefundPolicy, error)
}

type authorizer interface {
	Authorize(actor entity.Actor, required entity.ActorKind) error
}

type receiptResolver interface {
	ResolveReceiptURL(ctx context.Context, objectID string) (string, error)
}

type eventPublisher interface {
	Name() string
	Publish(ctx context.Context, event *entity.OutboxEvent) error
}

// Repositories groups the persistence collaborators of PaymentService.
type Repositories struct {
	Payments      paymentRepository
	Verifications verificationRepository
	Disputes      disputeRepository
	History       disputeHistoryRepository
	Outbox        outboxRepository
	RefundPolicy  refundPolicyRepository
}

type Config struct {
	Payments config.PaymentsConfig
	Refund   config.RefundConfig
	Outbox   config.OutboxConfig
}

type PaymentService struct {
	tx          transactor
	paymentRepo paymentRepository
	verifyRepo  verificationRepository
	disputeRepo disputeRepository
	historyRepo disputeHistoryRepository
	outboxRepo  outboxRepository
	policyRepo  refundPolicyRepository
	authorizer  authorizer
	receipts    receiptResolver
	publisher   eventPublisher
	limiter     *rate.Limiter
	paymentsCfg config.PaymentsConfig
	refundCfg   config.RefundConfig
	outboxCfg   config.OutboxConfig
	logger      logrus.FieldLogger
	now         func() time.Time
}

func NewPaymentService(tx transactor, repos Repositories, authz authorizer, cfg Config) *PaymentService {
	limit := rate.Inf
	if cfg.Outbox.RatePerSecond > 0 {
		limit = rate.Limit(cfg.Outbox.RatePerSecond)
	}
	burst := cfg.Outbox.Burst
	if burst <= 0 {
		burst = 1
	}

	return &PaymentService{
		tx:          tx,
		paymentRepo: repos.Payments,
		verifyRepo:  repos.Verifications,
		disputeRepo: repos.Disputes,
		historyRepo: repos.History,
		outboxRepo:  repos.Outbox,
		policyRepo:  repos.RefundPolicy,
		authorizer:  authz,
		limiter:     rate.NewLimiter(limit, burst),
		paymentsCfg: cfg.Payments,
		refundCfg:   cfg.Refund,
		outboxCfg:   cfg.Outbox,
		logger:      factory.NewModuleLogger("payment-service"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithReceiptResolver sets the storage collaborator used to sign receipt URLs.
func (s *PaymentService) WithReceiptResolver(resolver receiptResolver) *PaymentService {
	s.receipts = resolver
	return s
}

// WithPublisher sets the outbox delivery backend used by the dispatch job.
func (s *PaymentService) WithPublisher(publisher eventPublisher) *PaymentService {
	s.publisher = publisher
	return s
}

func (s *PaymentService) authorize(actor entity.Actor, required entity.ActorKind) error {
	if !actor.Valid() {
		return fmt.Errorf("%w: missing actor", ErrForbidden)
	}
	if err := s.authorizer.Authorize(actor, required); err != nil {
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	return nil
}

func (s *PaymentService) batchSize() int32 {
	if s.paymentsCfg.JobBatchSize > 0 {
		return s.paymentsCfg.JobBatchSize
	}
	return defaultBatchSize
}

func (s *PaymentService) claimTimeout() time.Duration {
	if s.paymentsCfg.ClaimTimeout > 0 {
		return s.paymentsCfg.ClaimTimeout
	}
	return 30 * time.Minute
}

// mapRepoErr converts repository sentinels into service errors.
func mapRepoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrPaymentAlreadyExists):
		return fmt.Errorf("%w: appointment already has an active payment", ErrInvalidState)
	case errors.Is(err, repository.ErrDisputeAlreadyOpen):
		return ErrDuplicateDispute
	case errors.Is(err, repository.ErrVersionConflict):
		return fmt.Errorf("%w: concurrent modification", ErrIllegalTransition)
	default:
		return err
	}
}

func listLimit(limit int32) int32 {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}

func stringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func timePtr(v time.Time) *time.Time {
	return &v
}
