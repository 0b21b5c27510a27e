package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/tanamao/directory/internal/adapters/database"
	"github.com/tanamao/directory/internal/application/services"
	"github.com/tanamao/directory/internal/domain/providers"
	"github.com/tanamao/directory/internal/infrastructure/clients/postgres"
	"github.com/tanamao/directory/internal/infrastructure/notifications"
	"github.com/tanamao/directory/internal/infrastructure/observability"
	"github.com/tanamao/directory/pkg/config"
)

// reminders messages owners whose VIP or Premium plan is about to lapse.
// It is meant to run once a day from a scheduler.
func main() {
	dryRun := flag.Bool("dry-run", false, "log messages instead of sending them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("tanamao-reminders", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	var sender providers.MessageSender = notifications.LogSender{Log: func(to, body string) {
		log.Info().Str("to", to).Str("body", body).Msg("Renewal reminder (not sent)")
	}}
	if cfg.WhatsApp.Enabled && !*dryRun {
		whatsapp, err := notifications.NewWhatsAppCloudSender(cfg.WhatsApp)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize WhatsApp sender")
		}
		sender = whatsapp
	}

	notificationService := services.NewNotificationService(database.NewListingAdapter(pgClient), sender, services.SystemClock)
	sent, err := notificationService.SendRenewalReminders(ctx, cfg.Pricing.RenewalWarning)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to send renewal reminders")
	}
	log.Info().Int("sent", sent).Dur("window", cfg.Pricing.RenewalWarning).Msg("Renewal reminders done")
}
