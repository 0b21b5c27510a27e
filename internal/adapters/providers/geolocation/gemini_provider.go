package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/tanamao/directory/internal/domain/providers"
	"github.com/tanamao/directory/pkg/geo"
)

const geocodePrompt = `Return the approximate geographic coordinates of this Brazilian address.
Answer only with JSON in the form {"lat": number, "lng": number}.
Address: %s`

// GeminiGeolocationProvider asks a Gemini model for the coordinates of an
// address. It is a fallback for deployments without a Maps key.
type GeminiGeolocationProvider struct {
	client *genai.Client
	model  string
	cache  providers.CacheProvider
}

func NewGeminiGeolocationProvider(ctx context.Context, apiKey, model string, cache providers.CacheProvider) (*GeminiGeolocationProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiGeolocationProvider{client: client, model: model, cache: cache}, nil
}

func (g *GeminiGeolocationProvider) Geocode(ctx context.Context, address string) (*providers.Coordinates, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, fmt.Errorf("address is required")
	}

	cacheKey := geocodeCacheKey("gemini", trimmed)
	if coords := readCachedCoordinates(ctx, g.cache, cacheKey); coords != nil {
		return coords, nil
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	}
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(fmt.Sprintf(geocodePrompt, trimmed)), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini geocode failed: %w", err)
	}

	coords, err := parseCoordinates(result.Text())
	if err != nil {
		return nil, err
	}
	writeCachedCoordinates(ctx, g.cache, cacheKey, coords)
	return coords, nil
}

// parseCoordinates reads the model answer, tolerating a fenced code block
// around the JSON.
func parseCoordinates(text string) (*providers.Coordinates, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var payload struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode gemini coordinates: %w", err)
	}
	if payload.Lat == nil || payload.Lng == nil {
		return nil, fmt.Errorf("gemini answer is missing coordinates")
	}
	if !geo.Valid(*payload.Lat, *payload.Lng) {
		return nil, fmt.Errorf("gemini returned out of range coordinates %f,%f", *payload.Lat, *payload.Lng)
	}
	return &providers.Coordinates{Latitude: *payload.Lat, Longitude: *payload.Lng}, nil
}
