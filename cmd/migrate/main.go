package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/tanamao/directory/internal/infrastructure/clients/postgres"
	"github.com/tanamao/directory/internal/infrastructure/observability"
	"github.com/tanamao/directory/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("tanamao-migrate", cfg.Environment)

	version, err := postgres.Migrate(cfg.Database.MigrationURL(), log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
	log.Info().Uint("version", version).Msg("Database schema is up to date")
}
