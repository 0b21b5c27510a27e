package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/domain/providers"
	"github.com/tanamao/directory/internal/domain/repositories"
	"github.com/tanamao/directory/internal/infrastructure/observability"
	apperrors "github.com/tanamao/directory/pkg/errors"
)

// SessionState is the checkout state seen by the buyer.
type SessionState string

const (
	SessionSelection SessionState = "selection"
	SessionPending   SessionState = "pending"
	SessionApproved  SessionState = "approved"
	SessionExpired   SessionState = "expired"
)

// Terminal reports whether the session can no longer change.
func (s SessionState) Terminal() bool {
	return s == SessionApproved || s == SessionExpired
}

const settleTimeout = 10 * time.Second

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("payment session closed")

// SubscriptionActivator grants a paid plan to a listing.
type SubscriptionActivator interface {
	Activate(ctx context.Context, listingID string, plan entities.Plan) (time.Time, error)
}

// TransitionFunc observes session transitions. subscriptionExpiresAt is set
// when the transition activated a subscription.
type TransitionFunc func(ctx context.Context, record entities.PaymentRecord, subscriptionExpiresAt *time.Time)

// SessionDeps are the collaborators of a PaymentSession.
type SessionDeps struct {
	Gateway      providers.PaymentGateway
	Payments     repositories.PaymentRepository
	Activator    SubscriptionActivator
	Clock        Clock
	TTL          time.Duration
	Currency     string
	OnTransition TransitionFunc
	Metrics      *observability.Metrics
}

// PaymentSession drives one PIX checkout from plan selection to a terminal
// status. It holds no timer; Tick is called by whoever schedules polling.
// Ticks never overlap: a Tick that starts while another is running returns
// immediately without contacting the gateway.
type PaymentSession struct {
	deps SessionDeps

	mu        sync.Mutex
	idle      *sync.Cond
	state     SessionState
	record    entities.PaymentRecord
	inFlight  bool
	claimed   bool
	activated bool
	closed    bool
}

// NewPaymentSession returns a session in the selection state.
func NewPaymentSession(deps SessionDeps) *PaymentSession {
	if deps.Clock == nil {
		deps.Clock = SystemClock
	}
	if deps.TTL <= 0 {
		deps.TTL = 30 * time.Minute
	}
	s := &PaymentSession{deps: deps, state: SessionSelection}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// ResumePaymentSession rebuilds a session for a persisted record.
func ResumePaymentSession(deps SessionDeps, record entities.PaymentRecord) *PaymentSession {
	s := NewPaymentSession(deps)
	s.record = record
	switch record.Status {
	case entities.PaymentStatusApproved:
		s.state, s.claimed, s.activated = SessionApproved, true, true
	case entities.PaymentStatusExpired:
		s.state = SessionExpired
	default:
		s.state = SessionPending
	}
	return s
}

// State returns the current session state.
func (s *PaymentSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Record returns a copy of the payment record.
func (s *PaymentSession) Record() entities.PaymentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// Create requests a PIX charge for plan and persists a pending record. On any
// failure the session stays in selection; a gateway failure persists nothing.
func (s *PaymentSession) Create(ctx context.Context, ownerUserID, listingID string, plan entities.Plan, amount decimal.Decimal) (*entities.PaymentRecord, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.state != SessionSelection {
		s.mu.Unlock()
		return nil, apperrors.NewConflictError("payment session already created")
	}
	s.mu.Unlock()

	if !plan.Paid() {
		return nil, apperrors.NewValidationErrorf("plan %q cannot be purchased", plan)
	}
	if !amount.IsPositive() {
		return nil, apperrors.NewValidationError("amount must be positive")
	}

	intent, err := s.deps.Gateway.CreatePixIntent(ctx, amount, s.deps.Currency, map[string]string{
		"owner_user_id": ownerUserID,
		"listing_id":    listingID,
		"plan":          string(plan),
	})
	if err != nil {
		return nil, apperrors.NewExternalError("failed to create PIX charge", err)
	}

	now := s.deps.Clock.Now()
	record := entities.PaymentRecord{
		ID:            uuid.NewString(),
		ExternalID:    intent.ExternalID,
		Provider:      s.deps.Gateway.Name(),
		OwnerUserID:   ownerUserID,
		ListingID:     listingID,
		Plan:          plan,
		Amount:        amount,
		Currency:      s.deps.Currency,
		Status:        entities.PaymentStatusPending,
		QRCodePayload: intent.QRCodePayload,
		QRCodeImage:   intent.QRCodeImage,
		ExpiresAt:     now.Add(s.deps.TTL),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.deps.Payments.Insert(ctx, &record); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.record = record
	s.state = SessionPending
	s.mu.Unlock()

	s.notify(ctx, record, nil)
	out := record
	return &out, nil
}

// Tick asks the gateway for the payment status once and applies the
// resulting transition. A gateway error leaves the session pending and is
// returned for logging only. Once the local deadline has passed, a pending
// answer from the gateway expires the session.
func (s *PaymentSession) Tick(ctx context.Context) (SessionState, error) {
	s.mu.Lock()
	if s.closed {
		st := s.state
		s.mu.Unlock()
		return st, ErrSessionClosed
	}
	if s.state != SessionPending || s.inFlight {
		st := s.state
		s.mu.Unlock()
		return st, nil
	}
	s.inFlight = true
	record := s.record
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.idle.Broadcast()
		s.mu.Unlock()
	}()

	status, err := s.deps.Gateway.GetStatus(ctx, record.ExternalID)
	if err != nil {
		observability.RecordPollFailure(ctx, s.deps.Metrics)
		return SessionPending, apperrors.NewExternalError("payment status check failed", err)
	}

	switch status {
	case entities.PaymentStatusApproved:
		return s.approve(ctx, record)
	case entities.PaymentStatusExpired:
		return s.expire(ctx, record)
	case entities.PaymentStatusPending:
		if !s.deps.Clock.Now().Before(record.ExpiresAt) {
			return s.expire(ctx, record)
		}
		return SessionPending, nil
	}
	observability.RecordPollFailure(ctx, s.deps.Metrics)
	return SessionPending, apperrors.NewExternalError(fmt.Sprintf("gateway returned unknown status %q", status), nil)
}

func (s *PaymentSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// approve activates the subscription and then marks the record approved.
// A failed step leaves the record pending, so the next tick, or ResumePending
// after a restart, retries it. Activation runs at most once per session; a
// process that loses the status write to another one may activate again,
// which only recomputes the same expiry from a later now.
func (s *PaymentSession) approve(ctx context.Context, record entities.PaymentRecord) (SessionState, error) {
	if s.isClosed() {
		return SessionPending, ErrSessionClosed
	}

	settleCtx, cancel := settleContext(ctx)
	defer cancel()

	var subscriptionExpiresAt *time.Time
	if !s.activated {
		expiresAt, err := s.deps.Activator.Activate(settleCtx, record.ListingID, record.Plan)
		if err != nil {
			return SessionPending, err
		}
		s.activated = true
		subscriptionExpiresAt = &expiresAt
	}

	if !s.claimed {
		ok, err := s.deps.Payments.UpdateStatus(settleCtx, record.ExternalID, entities.PaymentStatusApproved)
		if err != nil {
			return SessionPending, err
		}
		if !ok {
			return s.adoptStored(settleCtx, record)
		}
		s.claimed = true
	}

	record.Status = entities.PaymentStatusApproved
	record.UpdatedAt = s.deps.Clock.Now()
	s.mu.Lock()
	s.record = record
	s.state = SessionApproved
	s.mu.Unlock()

	s.notify(ctx, record, subscriptionExpiresAt)
	return SessionApproved, nil
}

// settleContext detaches the writes of a transition from the poller's
// cancellation so a shutdown mid-tick cannot leave a transition half applied.
func settleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
}

func (s *PaymentSession) expire(ctx context.Context, record entities.PaymentRecord) (SessionState, error) {
	if s.isClosed() {
		return SessionPending, ErrSessionClosed
	}

	settleCtx, cancel := settleContext(ctx)
	defer cancel()

	ok, err := s.deps.Payments.UpdateStatus(settleCtx, record.ExternalID, entities.PaymentStatusExpired)
	if err != nil {
		return SessionPending, err
	}
	if !ok {
		return s.adoptStored(settleCtx, record)
	}

	record.Status = entities.PaymentStatusExpired
	record.UpdatedAt = s.deps.Clock.Now()
	s.mu.Lock()
	s.record = record
	s.state = SessionExpired
	s.mu.Unlock()

	s.notify(ctx, record, nil)
	return SessionExpired, nil
}

// adoptStored takes over a terminal status written by another process
// without activating anything itself.
func (s *PaymentSession) adoptStored(ctx context.Context, record entities.PaymentRecord) (SessionState, error) {
	stored, err := s.deps.Payments.GetByExternalID(ctx, record.ExternalID)
	if err != nil {
		return SessionPending, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = *stored
	switch stored.Status {
	case entities.PaymentStatusApproved:
		s.state, s.claimed, s.activated = SessionApproved, true, true
	case entities.PaymentStatusExpired:
		s.state = SessionExpired
	}
	return s.state, nil
}

func (s *PaymentSession) notify(ctx context.Context, record entities.PaymentRecord, subscriptionExpiresAt *time.Time) {
	if s.deps.OnTransition != nil {
		s.deps.OnTransition(ctx, record, subscriptionExpiresAt)
	}
}

// Close stops the session and waits for a running Tick to finish. Once Close
// has returned the session never activates a subscription. Close must not be
// called from a TransitionFunc.
func (s *PaymentSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for s.inFlight {
		s.idle.Wait()
	}
}
