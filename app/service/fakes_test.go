package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-payment-verification/app/auth"
	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
	"github.com/vibast-solutions/ms-go-payment-verification/app/repository"
	"github.com/vibast-solutions/ms-go-payment-verification/config"
)

// memoryStore keeps rows by value so a transaction can be rolled back by
// restoring a snapshot.
type memoryStore struct {
	mu            sync.Mutex
	nextID        uint64
	payments      map[uint64]entity.Payment
	verifications map[uint64]entity.PaymentVerification
	disputes      map[uint64]entity.PaymentDispute
	history       []entity.PaymentDisputeHistory
	outbox        map[uint64]entity.OutboxEvent
	policies      map[string]entity.RefundPolicy
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		nextID:        1,
		payments:      map[uint64]entity.Payment{},
		verifications: map[uint64]entity.PaymentVerification{},
		disputes:      map[uint64]entity.PaymentDispute{},
		outbox:        map[uint64]entity.OutboxEvent{},
		policies:      map[string]entity.RefundPolicy{},
	}
}

func (s *memoryStore) id() uint64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *memoryStore) snapshot() *memoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := &memoryStore{
		nextID:        s.nextID,
		payments:      make(map[uint64]entity.Payment, len(s.payments)),
		verifications: make(map[uint64]entity.PaymentVerification, len(s.verifications)),
		disputes:      make(map[uint64]entity.PaymentDispute, len(s.disputes)),
		history:       append([]entity.PaymentDisputeHistory(nil), s.history...),
		outbox:        make(map[uint64]entity.OutboxEvent, len(s.outbox)),
		policies:      s.policies,
	}
	for k, v := range s.payments {
		out.payments[k] = v
	}
	for k, v := range s.verifications {
		out.verifications[k] = v
	}
	for k, v := range s.disputes {
		out.disputes[k] = v
	}
	for k, v := range s.outbox {
		out.outbox[k] = v
	}
	return out
}

func (s *memoryStore) restore(from *memoryStore) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID = from.nextID
	s.payments = from.payments
	s.verifications = from.verifications
	s.disputes = from.disputes
	s.history = from.history
	s.outbox = from.outbox
}

type inTxKey struct{}

// memoryTx serializes transactions, which stands in for row locks.
type memoryTx struct {
	mu    sync.Mutex
	store *memoryStore
}

func (t *memoryTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.store.snapshot()
	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

type memoryPayments struct{ *memoryStore }

func (r memoryPayments) Create(_ context.Context, payment *entity.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range r.payments {
		if item.AppointmentID == payment.AppointmentID && item.Status.Active() {
			return repository.ErrPaymentAlreadyExists
		}
	}
	payment.ID = r.id()
	r.payments[payment.ID] = *payment
	return nil
}

func (r memoryPayments) Update(_ context.Context, payment *entity.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.payments[payment.ID]
	if !ok || stored.Version != payment.Version {
		return repository.ErrVersionConflict
	}
	if payment.Status.Active() {
		for _, item := range r.payments {
			if item.ID != payment.ID && item.AppointmentID == payment.AppointmentID && item.Status.Active() {
				return repository.ErrPaymentAlreadyExists
			}
		}
	}
	payment.Version++
	r.payments[payment.ID] = *payment
	return nil
}

func (r memoryPayments) FindByID(_ context.Context, id uint64) (*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (r memoryPayments) FindByIDForUpdate(ctx context.Context, id uint64) (*entity.Payment, error) {
	return r.FindByID(ctx, id)
}

func (r memoryPayments) FindActiveByAppointmentForUpdate(_ context.Context, appointmentID string) (*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range r.payments {
		if item.AppointmentID == appointmentID && item.Status.Active() {
			found := item
			return &found, nil
		}
	}
	return nil, nil
}

func (r memoryPayments) FindLatestByAppointment(_ context.Context, appointmentID string) (*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *entity.Payment
	for _, item := range r.payments {
		if item.AppointmentID != appointmentID {
			continue
		}
		if latest == nil || item.ID > latest.ID {
			found := item
			latest = &found
		}
	}
	return latest, nil
}

func (r memoryPayments) List(_ context.Context, filter repository.PaymentFilter) ([]*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]*entity.Payment, 0)
	for _, item := range r.payments {
		if filter.AppointmentID != "" && item.AppointmentID != filter.AppointmentID {
			continue
		}
		if filter.PatientUserID != "" && item.PatientUserID != filter.PatientUserID {
			continue
		}
		if filter.DoctorID != "" && item.DoctorID != filter.DoctorID {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		found := item
		items = append(items, &found)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items, nil
}

type memoryVerifications struct{ *memoryStore }

func (r memoryVerifications) Create(_ context.Context, v *entity.PaymentVerification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v.ID = r.id()
	r.verifications[v.ID] = *v
	return nil
}

func (r memoryVerifications) Update(_ context.Context, v *entity.PaymentVerification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.verifications[v.ID]
	if !ok || stored.Version != v.Version {
		return repository.ErrVersionConflict
	}
	v.Version++
	r.verifications[v.ID] = *v
	return nil
}

func (r memoryVerifications) FindByID(_ context.Context, id uint64) (*entity.PaymentVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.verifications[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (r memoryVerifications) FindByIDForUpdate(ctx context.Context, id uint64) (*entity.PaymentVerification, error) {
	return r.FindByID(ctx, id)
}

func (r memoryVerifications) FindOpenByPaymentForUpdate(_ context.Context, paymentID uint64) (*entity.PaymentVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range r.verifications {
		if item.PaymentID == paymentID && (item.Status == entity.VerificationPendingQueue || item.Status == entity.VerificationEscalated) {
			found := item
			return &found, nil
		}
	}
	return nil, nil
}

func (r memoryVerifications) FindLatestByPayment(_ context.Context, paymentID uint64) (*entity.PaymentVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *entity.PaymentVerification
	for _, item := range r.verifications {
		if item.PaymentID == paymentID && (latest == nil || item.ID > latest.ID) {
			found := item
			latest = &found
		}
	}
	return latest, nil
}

func (r memoryVerifications) ClaimNextForUpdate(_ context.Context) (*entity.PaymentVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var next *entity.PaymentVerification
	for _, item := range r.sortedVerifications() {
		if item.Status == entity.VerificationPendingQueue && !item.Claimed() {
			found := item
			next = &found
			break
		}
	}
	return next, nil
}

func (r memoryVerifications) ListByStatus(_ context.Context, status entity.VerificationStatus, limit, offset int32) ([]*entity.PaymentVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]*entity.PaymentVerification, 0)
	for _, item := range r.sortedVerifications() {
		if item.Status == status {
			found := item
			items = append(items, &found)
		}
	}
	if int(offset) >= len(items) {
		return []*entity.PaymentVerification{}, nil
	}
	items = items[offset:]
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (r memoryVerifications) CountByStatus(_ context.Context, status entity.VerificationStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, item := range r.verifications {
		if item.Status == status {
			count++
		}
	}
	return count, nil
}

func (r memoryVerifications) ReleaseStaleClaims(_ context.Context, cutoff, now time.Time, limit int32) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var released int64
	for _, item := range r.sortedVerifications() {
		if released >= int64(limit) {
			break
		}
		if item.Status != entity.VerificationPendingQueue || !item.Claimed() || item.ClaimedAt == nil || !item.ClaimedAt.Before(cutoff) {
			continue
		}
		item.ReleaseClaim()
		item.Version++
		item.UpdatedAt = now
		r.verifications[item.ID] = item
		released++
	}
	return released, nil
}

// sortedVerifications must be called with mu held.
func (r memoryVerifications) sortedVerifications() []entity.PaymentVerification {
	items := make([]entity.PaymentVerification, 0, len(r.verifications))
	for _, item := range r.verifications {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items
}

type memoryDisputes struct{ *memoryStore }

func (r memoryDisputes) Create(_ context.Context, dispute *entity.PaymentDispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range r.disputes {
		if item.VerificationID == dispute.VerificationID && item.Open() {
			return repository.ErrDisputeAlreadyOpen
		}
	}
	dispute.ID = r.id()
	r.disputes[dispute.ID] = *dispute
	return nil
}

func (r memoryDisputes) Update(_ context.Context, dispute *entity.PaymentDispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.disputes[dispute.ID]
	if !ok || stored.Version != dispute.Version {
		return repository.ErrVersionConflict
	}
	dispute.Version++
	r.disputes[dispute.ID] = *dispute
	return nil
}

func (r memoryDisputes) FindByID(_ context.Context, id uint64) (*entity.PaymentDispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.disputes[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (r memoryDisputes) FindByIDForUpdate(ctx context.Context, id uint64) (*entity.PaymentDispute, error) {
	return r.FindByID(ctx, id)
}

func (r memoryDisputes) FindOpenByVerificationForUpdate(_ context.Context, verificationID uint64) (*entity.PaymentDispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range r.disputes {
		if item.VerificationID == verificationID && item.Open() {
			found := item
			return &found, nil
		}
	}
	return nil, nil
}

func (r memoryDisputes) ListUpdatedSince(_ context.Context, since time.Time, afterID uint64, limit int32) ([]*entity.PaymentDispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]*entity.PaymentDispute, 0)
	for _, item := range r.disputes {
		if item.ID > afterID && !item.UpdatedAt.Before(since) {
			found := item
			items = append(items, &found)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items, nil
}

type memoryHistory struct{ *memoryStore }

func (r memoryHistory) Append(_ context.Context, entry *entity.PaymentDisputeHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = r.id()
	r.history = append(r.history, *entry)
	return nil
}

func (r memoryHistory) ListByDispute(_ context.Context, disputeID uint64) ([]*entity.PaymentDisputeHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]*entity.PaymentDisputeHistory, 0)
	for _, item := range r.history {
		if item.DisputeID == disputeID {
			found := item
			items = append(items, &found)
		}
	}
	return items, nil
}

type memoryOutbox struct{ *memoryStore }

func (r memoryOutbox) Create(_ context.Context, event *entity.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event.ID = r.id()
	r.outbox[event.ID] = *event
	return nil
}

func (r memoryOutbox) Update(_ context.Context, event *entity.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.outbox[event.ID]; !ok {
		return errors.New("outbox event not found")
	}
	r.outbox[event.ID] = *event
	return nil
}

func (r memoryOutbox) ListDueForUpdate(_ context.Context, now time.Time, limit int32) ([]*entity.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]*entity.OutboxEvent, 0)
	for _, item := range r.outbox {
		if item.Status == entity.OutboxPending && item.NextAttemptAt != nil && !item.NextAttemptAt.After(now) {
			found := item
			items = append(items, &found)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items, nil
}

type memoryPolicies struct{ *memoryStore }

func (r memoryPolicies) FindByDoctorID(_ context.Context, doctorID string) (*entity.RefundPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.policies[doctorID]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

// eventTypes returns outbox event types in insertion order.
func (s *memoryStore) eventTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]uint64, 0, len(s.outbox))
	for id := range s.outbox {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.outbox[id].EventType)
	}
	return out
}

func (s *memoryStore) historyFor(disputeID uint64) []entity.PaymentDisputeHistory {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entity.PaymentDisputeHistory, 0)
	for _, item := range s.history {
		if item.DisputeID == disputeID {
			out = append(out, item)
		}
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	store *memoryStore
	clock *fakeClock
	svc   *PaymentService
}

func newTestEnv() *testEnv {
	store := newMemoryStore()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}

	svc := NewPaymentService(
		&memoryTx{store: store},
		Repositories{
			Payments:      memoryPayments{store},
			Verifications: memoryVerifications{store},
			Disputes:      memoryDisputes{store},
			History:       memoryHistory{store},
			Outbox:        memoryOutbox{store},
			RefundPolicy:  memoryPolicies{store},
		},
		auth.NewRoleAuthorizer(),
		Config{
			Payments: config.PaymentsConfig{ClaimTimeout: 30 * time.Minute, JobBatchSize: 2, AuditLookback: time.Hour},
			Refund: config.RefundConfig{
				DefaultCutoffMinutes:                1440,
				DefaultDeductionPercent:             decimal.NewFromInt(20),
				AllowFullRefundOnDoctorCancellation: true,
			},
			Outbox: config.OutboxConfig{MaxAttempts: 2, RetryInterval: time.Minute},
		},
	)
	svc.now = clock.Now

	return &testEnv{store: store, clock: clock, svc: svc}
}

var (
	patient  = entity.Actor{Kind: entity.ActorPatient, ID: "patient-1"}
	stranger = entity.Actor{Kind: entity.ActorPatient, ID: "patient-2"}
	staff    = entity.Actor{Kind: entity.ActorStaff, ID: "staff-1"}
	staff2   = entity.Actor{Kind: entity.ActorStaff, ID: "staff-2"}
	doctor   = entity.Actor{Kind: entity.ActorDoctor, ID: "doctor-1"}
	admin    = entity.Actor{Kind: entity.ActorAdmin, ID: "admin-1"}
)

type submitReq struct {
	appointmentID string
	patientUserID string
	doctorID      string
	appointmentAt time.Time
	amount        decimal.Decimal
	currency      string
	method        string
	reference     string
	receiptURL    string
}

func (r submitReq) GetAppointmentID() string        { return r.appointmentID }
func (r submitReq) GetPatientUserID() string        { return r.patientUserID }
func (r submitReq) GetDoctorID() string             { return r.doctorID }
func (r submitReq) GetAppointmentAt() time.Time     { return r.appointmentAt }
func (r submitReq) GetAmount() decimal.Decimal      { return r.amount }
func (r submitReq) GetCurrency() string             { return r.currency }
func (r submitReq) GetMethod() string               { return r.method }
func (r submitReq) GetTransactionReference() string { return r.reference }
func (r submitReq) GetReceiptURL() string           { return r.receiptURL }

type verifyReq struct {
	paymentID uint64
	status    string
	notes     string
}

func (r verifyReq) GetPaymentID() uint64         { return r.paymentID }
func (r verifyReq) GetStatus() string            { return r.status }
func (r verifyReq) GetVerificationNotes() string { return r.notes }

type decideReq struct {
	verificationID uint64
	decision       string
	notes          string
}

func (r decideReq) GetVerificationID() uint64 { return r.verificationID }
func (r decideReq) GetDecision() string       { return r.decision }
func (r decideReq) GetNotes() string          { return r.notes }

type refundReq struct {
	paymentID   uint64
	cancelledBy string
	cancelledAt time.Time
}

func (r refundReq) GetPaymentID() uint64      { return r.paymentID }
func (r refundReq) GetCancelledBy() string    { return r.cancelledBy }
func (r refundReq) GetCancelledAt() time.Time { return r.cancelledAt }

type raiseReq struct {
	verificationID uint64
	notes          string
}

func (r raiseReq) GetVerificationID() uint64 { return r.verificationID }
func (r raiseReq) GetNotes() string          { return r.notes }

type escalateReq struct {
	disputeID uint64
	note      string
}

func (r escalateReq) GetDisputeID() uint64 { return r.disputeID }
func (r escalateReq) GetNote() string      { return r.note }

type resolveReq struct {
	disputeID  uint64
	resolution string
	note       string
}

func (r resolveReq) GetDisputeID() uint64        { return r.disputeID }
func (r resolveReq) GetResolutionStatus() string { return r.resolution }
func (r resolveReq) GetNote() string             { return r.note }

type queueReq struct {
	status string
	limit  int32
}

func (r queueReq) GetStatus() string { return r.status }
func (r queueReq) GetLimit() int32   { return r.limit }
func (r queueReq) GetOffset() int32  { return 0 }

type listReq struct {
	patientUserID string
	status        string
}

func (r listReq) GetAppointmentID() string { return "" }
func (r listReq) GetPatientUserID() string { return r.patientUserID }
func (r listReq) GetDoctorID() string      { return "" }
func (r listReq) GetStatus() string        { return r.status }
func (r listReq) GetLimit() int32          { return 0 }
func (r listReq) GetOffset() int32         { return 0 }

func (e *testEnv) submit(appointmentID, amount string) (*entity.Payment, error) {
	return e.svc.SubmitPayment(context.Background(), patient, submitReq{
		appointmentID: appointmentID,
		doctorID:      "doctor-1",
		appointmentAt: e.clock.Now().Add(48 * time.Hour),
		amount:        decimal.RequireFromString(amount),
		currency:      "USD",
		method:        "BANK_TRANSFER",
		reference:     "TRX-" + appointmentID,
	})
}

func (e *testEnv) verificationFor(paymentID uint64) entity.PaymentVerification {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	for _, item := range e.store.verifications {
		if item.PaymentID == paymentID {
			return item
		}
	}
	return entity.PaymentVerification{}
}

func (e *testEnv) payment(id uint64) entity.Payment {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return e.store.payments[id]
}

type stubPublisher struct {
	mu        sync.Mutex
	failures  map[string]error
	published []string
}

func (p *stubPublisher) Name() string { return "stub" }

func (p *stubPublisher) Publish(_ context.Context, event *entity.OutboxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.failures[event.EventType]; ok {
		return err
	}
	p.published = append(p.published, event.EventID)
	return nil
}
