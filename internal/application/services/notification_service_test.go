package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tanamao/directory/internal/application/services"
	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/mocks"
)

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"(14) 99999-0000":   "5514999990000",
		"14 3222-1111":      "551432221111",
		"+55 14 99999-0000": "5514999990000",
		"":                  "",
		"n/a":               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, services.NormalizePhone(in), in)
	}
}

func TestRenderMessage(t *testing.T) {
	expires := time.Date(2026, 4, 14, 12, 0, 0, 0, time.UTC)
	listing := newListing("l-1", withName("João"), withPlan(entities.PlanVIP, expires))

	approved := services.RenderMessage(services.MessagePaymentApproved, listing)
	assert.Contains(t, approved, "João")
	assert.Contains(t, approved, "VIP Mensal")
	assert.Contains(t, approved, "14/04/2026")

	premium := listing.Clone()
	premium.Plan = entities.PlanPremium
	assert.Contains(t, services.RenderMessage(services.MessageRenewal, premium), "Premium Anual")

	assert.Contains(t, services.RenderMessage(services.MessagePaymentExpired, listing), "expirou")
	assert.Contains(t, services.RenderMessage(services.MessagePaymentPending, listing), "gerado")
}

func TestNotificationService_NotifyPayment(t *testing.T) {
	repo := mocks.NewListingRepository(t)
	sender := mocks.NewMessageSender(t)
	svc := services.NewNotificationService(repo, sender, newFakeClock(testNow))

	// the stored listing still shows the lapsed plan the owner is renewing
	repo.On("GetByID", mock.Anything, "l-1").Return(newListing("l-1", withName("João")), nil)
	sender.On("SendText", mock.Anything, "5514999990000", mock.MatchedBy(func(body string) bool {
		return assertContainsAll(body, "João", "Premium Anual", "confirmado")
	})).Return(nil)

	record := pendingRecord()
	record.Plan = entities.PlanPremium
	record.Status = entities.PaymentStatusApproved

	require.NoError(t, svc.NotifyPayment(context.Background(), record))
}

func TestNotificationService_NoPhoneIsSkipped(t *testing.T) {
	repo := mocks.NewListingRepository(t)
	sender := mocks.NewMessageSender(t)
	svc := services.NewNotificationService(repo, sender, newFakeClock(testNow))

	repo.On("GetByID", mock.Anything, "l-1").Return(newListing("l-1", func(l *entities.Listing) {
		l.Profile.WhatsApp = ""
		l.Profile.Phone = ""
	}), nil)

	require.NoError(t, svc.NotifyPayment(context.Background(), pendingRecord()))
	sender.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationService_SendRenewalReminders(t *testing.T) {
	repo := mocks.NewListingRepository(t)
	sender := mocks.NewMessageSender(t)
	svc := services.NewNotificationService(repo, sender, newFakeClock(testNow))

	repo.On("GetAll", mock.Anything).Return([]*entities.Listing{
		newListing("soon", withPlan(entities.PlanVIP, testNow.Add(24*time.Hour))),
		newListing("failing", withPlan(entities.PlanVIP, testNow.Add(48*time.Hour)), func(l *entities.Listing) {
			l.Profile.WhatsApp = "11 98888-7777"
		}),
		newListing("later", withPlan(entities.PlanPremium, testNow.Add(60*24*time.Hour))),
	}, nil)
	sender.On("SendText", mock.Anything, "5514999990000", mock.Anything).Return(nil)
	sender.On("SendText", mock.Anything, "5511988887777", mock.Anything).Return(errors.New("rate limited"))

	sent, err := svc.SendRenewalReminders(context.Background(), 3*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func assertContainsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
