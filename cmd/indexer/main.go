package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tanamao/directory/internal/adapters/database"
	"github.com/tanamao/directory/internal/adapters/search"
	"github.com/tanamao/directory/internal/application/services"
	"github.com/tanamao/directory/internal/infrastructure/clients/postgres"
	"github.com/tanamao/directory/internal/infrastructure/clients/typesense"
	"github.com/tanamao/directory/internal/infrastructure/observability"
	"github.com/tanamao/directory/pkg/config"
)

func main() {
	var reset bool
	var intervalValue string
	flag.BoolVar(&reset, "reset", false, "drop the listings collection before indexing")
	flag.StringVar(&intervalValue, "interval", "", "reindex interval (e.g. 10m); empty runs once")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("tanamao-indexer", cfg.Environment)

	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatal().Err(err).Str("interval", intervalValue).Msg("Invalid interval")
		}
		if interval <= 0 {
			log.Fatal().Msg("Interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		indexed, err := indexOnce(ctx, cfg, reset)
		if err != nil {
			log.Error().Err(err).Msg("Reindex failed")
		} else {
			log.Info().Int("listings", indexed).Msg("Reindex complete")
		}

		if interval <= 0 {
			break
		}
		reset = false

		select {
		case <-ctx.Done():
			log.Info().Msg("Reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, cfg *config.Config, reset bool) (int, error) {
	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return 0, err
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
	if err != nil {
		return 0, err
	}
	index := search.NewTypesenseAdapter(tsClient)

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		log.Info().Msg("Dropping listings collection")
		if err := index.Reset(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to drop collection")
		}
	}

	if err := index.InitSchema(ctx); err != nil {
		return 0, err
	}

	listings, err := database.NewListingAdapter(pgClient).GetAll(ctx)
	if err != nil {
		return 0, err
	}
	// Index the effective tier so lapsed subscriptions do not outrank free listings.
	listings = services.ApplyLazyExpiryAll(listings, time.Now())

	indexed := 0
	for _, listing := range listings {
		if listing == nil {
			continue
		}
		if err := index.Index(ctx, listing); err != nil {
			log.Warn().Err(err).Str("listing_id", listing.ID).Msg("Failed to index listing")
			continue
		}
		indexed++
	}
	return indexed, nil
}
