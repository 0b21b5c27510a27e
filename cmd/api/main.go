package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tanamao/directory/internal/adapters/cache"
	"github.com/tanamao/directory/internal/adapters/database"
	"github.com/tanamao/directory/internal/adapters/events"
	"github.com/tanamao/directory/internal/adapters/providers/geolocation"
	"github.com/tanamao/directory/internal/adapters/providers/payments"
	"github.com/tanamao/directory/internal/adapters/search"
	"github.com/tanamao/directory/internal/api/handlers"
	"github.com/tanamao/directory/internal/api/middleware"
	"github.com/tanamao/directory/internal/api/routes"
	"github.com/tanamao/directory/internal/application/services"
	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/domain/providers"
	"github.com/tanamao/directory/internal/domain/repositories"
	"github.com/tanamao/directory/internal/infrastructure/clients/postgres"
	"github.com/tanamao/directory/internal/infrastructure/clients/redis"
	"github.com/tanamao/directory/internal/infrastructure/clients/typesense"
	"github.com/tanamao/directory/internal/infrastructure/notifications"
	"github.com/tanamao/directory/internal/infrastructure/observability"
	"github.com/tanamao/directory/pkg/config"
)

const (
	cacheKeyPrefix       = "tanamao:"
	responseCacheSeconds = 60
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics are always exported for Prometheus; OTLP only with an endpoint.
	endpoint := ""
	if cfg.OTEL.Enabled {
		endpoint = cfg.OTEL.Endpoint
	}
	shutdownTelemetry, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, endpoint)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(ctx); err != nil {
				log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
			}
		}()
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			// The directory works without Redis: no cache, in-process events.
			log.Warn().Err(err).Msg("Failed to initialize Redis client")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient, cacheKeyPrefix)
		eventBus = events.NewRedisEventBus(redisClient, log.Logger)
		log.Info().Msg("Using Redis cache and event bus")
	} else {
		eventBus = events.NewMemoryEventBus()
		log.Warn().Msg("Redis unavailable, using in-process event bus without cache")
	}

	var listingIndex repositories.ListingIndex
	if cfg.Typesense.Enabled {
		typesenseClient, err := typesense.NewClient(ctx, &cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Typesense client, suggestions fall back to store scans")
		} else {
			adapter := search.NewTypesenseAdapter(typesenseClient)
			if err := adapter.InitSchema(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to init Typesense schema")
			}
			listingIndex = adapter
		}
	}

	var listingRepo repositories.ListingRepository = database.NewListingAdapter(pgClient)
	if cacheProvider != nil {
		listingRepo = database.NewCachedListingAdapter(listingRepo, cacheProvider, metrics)
	}
	paymentRepo := database.NewPaymentAdapter(pgClient)

	geocoder := newGeocoder(ctx, cfg, cacheProvider)
	gateway := newPaymentGateway(cfg)

	var sender providers.MessageSender
	if cfg.WhatsApp.Enabled {
		whatsapp, err := notifications.NewWhatsAppCloudSender(cfg.WhatsApp)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize WhatsApp sender")
		}
		sender = whatsapp
	} else {
		sender = notifications.LogSender{Log: func(to, body string) {
			log.Debug().Str("to", to).Str("body", body).Msg("WhatsApp disabled, message not sent")
		}}
	}

	prices := map[entities.Plan]decimal.Decimal{
		entities.PlanVIP:     cfg.Pricing.VIPMonthly,
		entities.PlanPremium: cfg.Pricing.PremiumYearly,
	}

	clock := services.SystemClock
	subscriptionService := services.NewSubscriptionService(listingRepo, clock)
	notificationService := services.NewNotificationService(listingRepo, sender, clock)
	directoryService := services.NewDirectoryService(listingRepo, listingIndex, clock, metrics)
	listingService := services.NewListingService(listingRepo, listingIndex, geocoder, clock, prices)
	checkoutService := services.NewCheckoutService(
		listingRepo,
		paymentRepo,
		gateway,
		subscriptionService,
		eventBus,
		notificationService,
		metrics,
		clock,
		services.CheckoutConfig{
			Prices:       prices,
			Currency:     cfg.Payment.Currency,
			PollInterval: cfg.Payment.PollInterval,
			SessionTTL:   cfg.Payment.SessionTTL,
		},
	)

	if resumed, err := checkoutService.ResumePending(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to resume pending payments")
	} else if resumed > 0 {
		log.Info().Int("sessions", resumed).Msg("Resumed pending payments")
	}

	checkoutLimiter := middleware.NewRateLimiter(cfg.Server.CheckoutRate)
	go checkoutLimiter.CleanupVisitors(ctx)

	var responseCache *middleware.ResponseCache
	if cacheProvider != nil {
		responseCache = middleware.NewResponseCache(cacheProvider, responseCacheSeconds)
	}

	router := routes.NewRouter(
		handlers.NewListingHandler(directoryService, listingService),
		handlers.NewCheckoutHandler(checkoutService),
		handlers.NewPaymentStreamHandler(checkoutService),
		handlers.NewAdminHandler(listingService),
		responseCache,
		checkoutLimiter,
		cfg.Admin.Token,
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router.SetupRoutes(),
		ReadTimeout: 15 * time.Second,
		// Payment streams stay open until the session ends.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("payment_provider", gateway.Name()).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	// Pending sessions stay pending in the store and are resumed on the next boot.
	checkoutService.Shutdown()

	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event bus")
	}

	log.Info().Msg("Server stopped")
}

func newGeocoder(ctx context.Context, cfg *config.Config, cacheProvider providers.CacheProvider) providers.GeolocationProvider {
	switch cfg.Geolocation.Provider {
	case "google":
		if cfg.Geolocation.APIKey == "" {
			log.Warn().Msg("GEOLOCATION_API_KEY is not set; using mock geolocation provider")
			return geolocation.NewMockGeolocationProvider()
		}
		return geolocation.NewGoogleGeolocationProvider(cfg.Geolocation.APIKey, cacheProvider)
	case "gemini":
		provider, err := geolocation.NewGeminiGeolocationProvider(ctx, cfg.Geolocation.APIKey, cfg.Geolocation.Model, cacheProvider)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Gemini geocoder; using mock geolocation provider")
			return geolocation.NewMockGeolocationProvider()
		}
		return provider
	default:
		return geolocation.NewMockGeolocationProvider()
	}
}

func newPaymentGateway(cfg *config.Config) providers.PaymentGateway {
	if cfg.Payment.Provider == "stripe" {
		return payments.NewStripePixGateway(cfg.Payment.StripeSecretKey, cfg.Payment.SessionTTL)
	}
	log.Warn().Msg("Using the mock PIX gateway; payments are simulated")
	return payments.NewMockGateway(cfg.Payment.SessionTTL)
}
