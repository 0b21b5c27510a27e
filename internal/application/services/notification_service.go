package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/domain/providers"
	"github.com/tanamao/directory/internal/domain/repositories"
	"github.com/tanamao/directory/internal/infrastructure/observability"
)

// MessageKind selects the owner message template.
type MessageKind string

const (
	MessagePaymentPending  MessageKind = "pending"
	MessagePaymentApproved MessageKind = "approved"
	MessagePaymentExpired  MessageKind = "expired"
	MessageRenewal         MessageKind = "renewal"
)

// NotificationService sends WhatsApp messages to listing owners about their
// payments and subscriptions.
type NotificationService struct {
	listingRepo repositories.ListingRepository
	sender      providers.MessageSender
	clock       Clock
}

func NewNotificationService(listingRepo repositories.ListingRepository, sender providers.MessageSender, clock Clock) *NotificationService {
	if clock == nil {
		clock = SystemClock
	}
	return &NotificationService{listingRepo: listingRepo, sender: sender, clock: clock}
}

// NotifyPayment implements PaymentNotifier.
func (n *NotificationService) NotifyPayment(ctx context.Context, record entities.PaymentRecord) error {
	kind := MessagePaymentPending
	switch record.Status {
	case entities.PaymentStatusApproved:
		kind = MessagePaymentApproved
	case entities.PaymentStatusExpired:
		kind = MessagePaymentExpired
	}

	listing, err := n.listingRepo.GetByID(ctx, record.ListingID)
	if err != nil {
		return err
	}
	// on approval the stored listing already carries the new expiry
	listing = listing.Clone()
	listing.Plan = record.Plan
	return n.send(ctx, kind, listing)
}

// SendRenewalReminders messages owners whose paid plan ends within window.
// It returns the number of reminders sent.
func (n *NotificationService) SendRenewalReminders(ctx context.Context, window time.Duration) (int, error) {
	listings, err := n.listingRepo.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, l := range ExpiringSoon(listings, n.clock.Now(), window) {
		if err := n.send(ctx, MessageRenewal, l); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("listing_id", l.ID).Msg("Renewal reminder not sent")
			continue
		}
		sent++
	}
	return sent, nil
}

func (n *NotificationService) send(ctx context.Context, kind MessageKind, listing *entities.Listing) error {
	to := NormalizePhone(listing.Profile.WhatsApp)
	if to == "" {
		to = NormalizePhone(listing.Profile.Phone)
	}
	if to == "" {
		observability.LoggerFromContext(ctx).Debug().Str("listing_id", listing.ID).Msg("Listing has no phone, skipping notification")
		return nil
	}
	return n.sender.SendText(ctx, to, RenderMessage(kind, listing))
}

// RenderMessage builds the plain text owner message.
func RenderMessage(kind MessageKind, listing *entities.Listing) string {
	name := listing.DisplayName()
	if name == "" {
		name = "Profissional"
	}
	plan := "VIP Mensal"
	if listing.Plan == entities.PlanPremium {
		plan = "Premium Anual"
	}
	until := "o fim do período contratado"
	if listing.SubscriptionExpiresAt != nil {
		until = listing.SubscriptionExpiresAt.Format("02/01/2006")
	}

	switch kind {
	case MessagePaymentApproved:
		return fmt.Sprintf("Olá %s! Pagamento confirmado. Seu plano %s no TáNaMão está ativo até %s.", name, plan, until)
	case MessagePaymentExpired:
		return fmt.Sprintf("Olá %s. O PIX expirou antes do pagamento. Gere um novo pagamento no app para ativar o destaque.", name)
	case MessageRenewal:
		return fmt.Sprintf("Olá %s! Seu plano %s no TáNaMão vence em %s. Renove para continuar em destaque.", name, plan, until)
	}
	return fmt.Sprintf("Olá %s, seu PIX para o plano %s no TáNaMão foi gerado. A ativação é automática após o pagamento.", name, plan)
}

// NormalizePhone keeps digits only and adds the Brazilian country code to
// local numbers with area code.
func NormalizePhone(raw string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, raw)
	if len(digits) == 10 || len(digits) == 11 {
		return "55" + digits
	}
	return digits
}
