package services

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/domain/providers"
	"github.com/tanamao/directory/internal/domain/repositories"
	"github.com/tanamao/directory/internal/infrastructure/observability"
	apperrors "github.com/tanamao/directory/pkg/errors"
)

// PaymentNotifier tells the listing owner about a payment transition.
type PaymentNotifier interface {
	NotifyPayment(ctx context.Context, record entities.PaymentRecord) error
}

// CheckoutConfig holds checkout pricing and timing.
type CheckoutConfig struct {
	Prices       map[entities.Plan]decimal.Decimal
	Currency     string
	PollInterval time.Duration
	SessionTTL   time.Duration
}

// CheckoutService starts PIX checkouts and keeps one poller running per
// pending payment.
type CheckoutService struct {
	listingRepo repositories.ListingRepository
	paymentRepo repositories.PaymentRepository
	gateway     providers.PaymentGateway
	activator   SubscriptionActivator
	eventBus    providers.EventBus
	notifier    PaymentNotifier
	metrics     *observability.Metrics
	clock       Clock
	cfg         CheckoutConfig

	mu      sync.Mutex
	pollers map[string]*PaymentPoller
	closed  bool
}

// NewCheckoutService wires the checkout flow. notifier and metrics may be nil.
func NewCheckoutService(
	listingRepo repositories.ListingRepository,
	paymentRepo repositories.PaymentRepository,
	gateway providers.PaymentGateway,
	activator SubscriptionActivator,
	eventBus providers.EventBus,
	notifier PaymentNotifier,
	metrics *observability.Metrics,
	clock Clock,
	cfg CheckoutConfig,
) *CheckoutService {
	if clock == nil {
		clock = SystemClock
	}
	return &CheckoutService{
		listingRepo: listingRepo,
		paymentRepo: paymentRepo,
		gateway:     gateway,
		activator:   activator,
		eventBus:    eventBus,
		notifier:    notifier,
		metrics:     metrics,
		clock:       clock,
		cfg:         cfg,
		pollers:     make(map[string]*PaymentPoller),
	}
}

// PriceOf returns the configured price of a paid plan.
func (s *CheckoutService) PriceOf(plan entities.Plan) (decimal.Decimal, error) {
	price, ok := s.cfg.Prices[plan]
	if !plan.Paid() || !ok {
		return decimal.Zero, apperrors.NewValidationErrorf("plan %q cannot be purchased", plan)
	}
	return price, nil
}

func (s *CheckoutService) sessionDeps() SessionDeps {
	return SessionDeps{
		Gateway:      s.gateway,
		Payments:     s.paymentRepo,
		Activator:    s.activator,
		Clock:        s.clock,
		TTL:          s.cfg.SessionTTL,
		Currency:     s.cfg.Currency,
		OnTransition: s.onTransition,
		Metrics:      s.metrics,
	}
}

// StartCheckout creates a pending PIX payment for the listing owned by
// ownerUserID and starts polling it.
func (s *CheckoutService) StartCheckout(ctx context.Context, ownerUserID string, plan entities.Plan) (*entities.PaymentRecord, error) {
	if ownerUserID == "" {
		return nil, apperrors.NewUnauthorizedError("owner user id is required")
	}
	price, err := s.PriceOf(plan)
	if err != nil {
		return nil, err
	}
	listing, err := s.listingRepo.GetByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	session := NewPaymentSession(s.sessionDeps())
	record, err := session.Create(ctx, ownerUserID, listing.ID, plan, price)
	if err != nil {
		observability.LoggerFromContext(ctx).Error().Err(err).
			Str("owner_user_id", ownerUserID).
			Str("plan", string(plan)).
			Msg("Checkout creation failed")
		return nil, err
	}

	observability.RecordCheckout(ctx, s.metrics, string(plan))
	s.track(session)
	return record, nil
}

// Status returns the stored payment record.
func (s *CheckoutService) Status(ctx context.Context, externalID string) (*entities.PaymentRecord, error) {
	return s.paymentRepo.GetByExternalID(ctx, externalID)
}

// SubscribeToStatus calls callback for each transition of the payment until
// it reaches a terminal status, ctx ends, or the returned function is called.
// A payment that is already terminal is reported once, immediately.
func (s *CheckoutService) SubscribeToStatus(ctx context.Context, externalID string, callback func(*entities.PaymentEvent)) (func(), error) {
	record, err := s.paymentRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if record.Status.Terminal() {
		callback(entities.NewPaymentEvent(record, record.UpdatedAt))
		return func() {}, nil
	}

	subCtx, cancel := context.WithCancel(ctx)
	events, err := s.eventBus.Subscribe(subCtx, providers.GetPaymentChannel(externalID))
	if err != nil {
		cancel()
		return nil, apperrors.NewInternalError("failed to subscribe to payment events", err)
	}

	// A transition between the read above and Subscribe would be missed.
	if again, err := s.paymentRepo.GetByExternalID(ctx, externalID); err == nil && again.Status.Terminal() {
		cancel()
		callback(entities.NewPaymentEvent(again, again.UpdatedAt))
		return func() {}, nil
	}

	go func() {
		defer cancel()
		for {
			select {
			case <-subCtx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				callback(event)
				if event.Status.Terminal() {
					return
				}
			}
		}
	}()
	return cancel, nil
}

// ResumePending restarts polling for payments left pending by a previous
// process. It returns the number of sessions resumed.
func (s *CheckoutService) ResumePending(ctx context.Context) (int, error) {
	// Records created before this cutoff are past any sane deadline; one tick
	// still settles them.
	cutoff := s.clock.Now().Add(-24 * time.Hour)
	records, err := s.paymentRepo.ListPending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	resumed := 0
	for _, r := range records {
		s.mu.Lock()
		_, running := s.pollers[r.ExternalID]
		s.mu.Unlock()
		if running {
			continue
		}
		s.track(ResumePaymentSession(s.sessionDeps(), *r))
		resumed++
	}

	observability.LoggerFromContext(ctx).Info().Int("sessions", resumed).Msg("Resumed pending payments")
	return resumed, nil
}

func (s *CheckoutService) track(session *PaymentSession) {
	externalID := session.Record().ExternalID
	poller := NewPaymentPoller(session, s.cfg.PollInterval)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		session.Close()
		return
	}
	s.pollers[externalID] = poller
	s.mu.Unlock()

	poller.Start()
	go func() {
		<-poller.Done()
		s.mu.Lock()
		if s.pollers[externalID] == poller {
			delete(s.pollers, externalID)
		}
		s.mu.Unlock()
	}()
}

// ActiveSessions returns how many payments are being polled.
func (s *CheckoutService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pollers)
}

// Shutdown stops every poller and waits for them to exit.
func (s *CheckoutService) Shutdown() {
	s.mu.Lock()
	s.closed = true
	pollers := make([]*PaymentPoller, 0, len(s.pollers))
	for _, p := range s.pollers {
		pollers = append(pollers, p)
	}
	s.mu.Unlock()

	for _, p := range pollers {
		p.Stop()
	}
}

func (s *CheckoutService) onTransition(ctx context.Context, record entities.PaymentRecord, subscriptionExpiresAt *time.Time) {
	logger := observability.LoggerFromContext(ctx).With().
		Str("external_id", record.ExternalID).
		Str("listing_id", record.ListingID).
		Str("status", string(record.Status)).
		Logger()

	event := entities.NewPaymentEvent(&record, s.clock.Now())
	event.SubscriptionExpiresAt = subscriptionExpiresAt

	if s.eventBus != nil {
		for _, channel := range []string{providers.GetPaymentChannel(record.ExternalID), providers.EventChannelPayments} {
			if err := s.eventBus.Publish(ctx, channel, event); err != nil {
				logger.Error().Err(err).Str("channel", channel).Msg("Failed to publish payment event")
			}
		}
	}

	if record.Status.Terminal() {
		observability.RecordPaymentOutcome(ctx, s.metrics, string(record.Plan), string(record.Status))
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyPayment(ctx, record); err != nil {
			logger.Warn().Err(err).Msg("Failed to notify owner about payment")
		}
	}

	logger.Info().Msg("Payment session transition")
}
