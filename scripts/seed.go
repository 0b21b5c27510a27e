package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/tanamao/directory/internal/adapters/database"
	"github.com/tanamao/directory/internal/adapters/providers/geolocation"
	"github.com/tanamao/directory/internal/adapters/search"
	"github.com/tanamao/directory/internal/application/services"
	"github.com/tanamao/directory/internal/domain/entities"
	"github.com/tanamao/directory/internal/domain/repositories"
	"github.com/tanamao/directory/internal/infrastructure/clients/postgres"
	"github.com/tanamao/directory/internal/infrastructure/clients/typesense"
	"github.com/tanamao/directory/internal/infrastructure/observability"
	"github.com/tanamao/directory/pkg/config"
)

// seedListings are unclaimed profiles a local owner can later take over.
var seedListings = []services.ProfileInput{
	{
		ProfileType: entities.ProfileTypeCommerce,
		SubCategory: "Padaria",
		Address:     entities.Address{Street: "Rua XV de Novembro, 120", Neighborhood: "Centro", City: "Curitiba", State: "PR"},
		Profile:     entities.Profile{CompanyName: "Padaria Central", Phone: "(41) 3222-1010"},
	},
	{
		ProfileType: entities.ProfileTypeCommerce,
		SubCategory: "Farmácia",
		Address:     entities.Address{Street: "Av. Sete de Setembro, 2100", Neighborhood: "Batel", City: "Curitiba", State: "PR"},
		Profile:     entities.Profile{CompanyName: "Farmácia Bem Estar", WhatsApp: "(41) 99876-1234", Emergency24h: true},
	},
	{
		ProfileType: entities.ProfileTypeProfessional,
		SubCategory: "Eletricista",
		Address:     entities.Address{Neighborhood: "Água Verde", City: "Curitiba", State: "PR"},
		Profile:     entities.Profile{ProName: "João Eletricista", WhatsApp: "(41) 98888-2020", ExperienceYears: 12},
	},
	{
		ProfileType: entities.ProfileTypeProfessional,
		SubCategory: "Diarista",
		Address:     entities.Address{Neighborhood: "Pinheiros", City: "São Paulo", State: "SP"},
		Profile:     entities.Profile{ProName: "Maria Aparecida", WhatsApp: "(11) 97777-3030", ExperienceYears: 8},
	},
	{
		ProfileType: entities.ProfileTypeProfessional,
		SubCategory: "Mecânico",
		Address:     entities.Address{Street: "Rua da Mooca, 455", Neighborhood: "Mooca", City: "São Paulo", State: "SP"},
		Profile:     entities.Profile{ProName: "Carlos Mecânica", Phone: "(11) 2605-4040", ExperienceYears: 20},
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("tanamao-seed", cfg.Environment)

	ctx := context.Background()

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pgClient.Close()

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		if _, err := pgClient.DB().ExecContext(ctx, `TRUNCATE TABLE payments, listings`); err != nil {
			log.Fatal().Err(err).Msg("Failed to truncate tables")
		}
	}

	var index repositories.ListingIndex
	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Typesense unavailable, seeding the store only")
		} else {
			adapter := search.NewTypesenseAdapter(tsClient)
			if err := adapter.InitSchema(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to init Typesense schema")
			}
			index = adapter
		}
	}

	listingService := services.NewListingService(
		database.NewListingAdapter(pgClient),
		index,
		geolocation.NewMockGeolocationProvider(),
		services.SystemClock,
		nil,
	)

	created := 0
	for _, input := range seedListings {
		listing, err := listingService.CreateSeed(ctx, input)
		if err != nil {
			log.Error().Err(err).Str("sub_category", input.SubCategory).Msg("Failed to seed listing")
			continue
		}
		log.Info().Str("listing_id", listing.ID).Str("name", listing.DisplayName()).Msg("Seeded listing")
		created++
	}
	log.Info().Int("created", created).Msg("Seeding complete")
}
