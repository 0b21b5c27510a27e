package geolocation

import (
	"context"
	"fmt"
	"strings"

	"github.com/tanamao/directory/internal/domain/providers"
)

var mockCities = map[string]providers.Coordinates{
	"são paulo":      {Latitude: -23.5505, Longitude: -46.6333},
	"rio de janeiro": {Latitude: -22.9068, Longitude: -43.1729},
	"belo horizonte": {Latitude: -19.9167, Longitude: -43.9345},
	"curitiba":       {Latitude: -25.4284, Longitude: -49.2733},
	"bauru":          {Latitude: -22.3246, Longitude: -49.0871},
	"campinas":       {Latitude: -22.9099, Longitude: -47.0626},
	"salvador":       {Latitude: -12.9777, Longitude: -38.5016},
	"recife":         {Latitude: -8.0476, Longitude: -34.8770},
}

// MockGeolocationProvider resolves a handful of Brazilian cities by name. Used
// in development and tests.
type MockGeolocationProvider struct{}

func NewMockGeolocationProvider() *MockGeolocationProvider {
	return &MockGeolocationProvider{}
}

// Geocode returns the coordinates of the first known city named in address.
func (m *MockGeolocationProvider) Geocode(ctx context.Context, address string) (*providers.Coordinates, error) {
	lower := strings.ToLower(address)
	for city, coords := range mockCities {
		if strings.Contains(lower, city) {
			c := coords
			return &c, nil
		}
	}
	return nil, fmt.Errorf("no results for address")
}
