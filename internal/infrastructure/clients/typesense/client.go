package typesense

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/typesense/typesense-go/v2/typesense"

	"github.com/tanamao/directory/internal/infrastructure/observability"
	"github.com/tanamao/directory/pkg/config"
	"github.com/tanamao/directory/pkg/retry"
)

// Client wraps the Typesense client used by the listing index.
type Client struct {
	client *typesense.Client
}

// NewClient creates a Typesense client and waits for the server to report
// healthy, with exponential backoff.
func NewClient(ctx context.Context, cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	logger := observability.LoggerFromContext(ctx)
	err := retry.DoWithLog(
		ctx,
		retry.DefaultConfig(),
		"Typesense",
		func() error {
			healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			healthy, err := client.Health(healthCtx, 2*time.Second)
			if err != nil {
				return err
			}
			if !healthy {
				return errors.New("server reported unhealthy")
			}
			return nil
		},
		func(attempt int, err error, nextDelay time.Duration) {
			logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("Typesense connection failed")
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	logger.Info().Str("url", cfg.URL).Msg("Connected to Typesense")
	return &Client{client: client}, nil
}

// NewFromServer builds a client without the health check.
func NewFromServer(url, apiKey string) *Client {
	return &Client{client: typesense.NewClient(
		typesense.WithServer(url),
		typesense.WithAPIKey(apiKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)}
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}
