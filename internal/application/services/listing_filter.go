package services

import (
	"math"
	"strconv"
	"strings"

	"github.com/tanamao/directory/internal/domain/entities"
	apperrors "github.com/tanamao/directory/pkg/errors"
	"github.com/tanamao/directory/pkg/geo"
)

// AnyValue matches every value of a criterion.
const AnyValue = "any"

// Radius limits radius-mode results. The zero value is the "all" sentinel.
type Radius struct {
	km    float64
	limit bool
}

// RadiusAll disables the distance check.
var RadiusAll = Radius{}

// RadiusKm limits results to km kilometres from the user.
func RadiusKm(km float64) Radius {
	return Radius{km: km, limit: true}
}

// ParseRadius accepts "all" (or empty) and positive kilometre values.
func ParseRadius(raw string) (Radius, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" || raw == "all" {
		return RadiusAll, nil
	}
	km, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(km) || math.IsInf(km, 0) || km <= 0 {
		return Radius{}, apperrors.NewValidationErrorf("invalid radius %q", raw)
	}
	return RadiusKm(km), nil
}

// IsAll reports whether r is the sentinel.
func (r Radius) IsAll() bool { return !r.limit }

// Km returns the limit; meaningless for the sentinel.
func (r Radius) Km() float64 { return r.km }

func (r Radius) String() string {
	if r.IsAll() {
		return "all"
	}
	return strconv.FormatFloat(r.km, 'f', -1, 64)
}

// SearchCriteria are the directory filters. Empty strings behave like AnyValue.
type SearchCriteria struct {
	SearchTerm  string
	ProfileType string
	Category    string
	SubCategory string
	City        string
	State       string
	Radius      Radius
	// RadiusMode selects radius filtering over City/State filtering. It needs
	// UserLocation.
	RadiusMode   bool
	UserLocation *entities.UserLocation
}

func isAny(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, AnyValue) || strings.EqualFold(v, "todos")
}

// FilterListings keeps the listings matching every criterion, in input order.
// Listings missing the data a predicate needs are dropped, never errored.
func FilterListings(listings []*entities.Listing, criteria SearchCriteria) ([]*entities.Listing, error) {
	if criteria.RadiusMode {
		if criteria.UserLocation == nil {
			return nil, apperrors.NewValidationError("radius filtering requires a user location")
		}
		if !geo.Valid(criteria.UserLocation.Lat, criteria.UserLocation.Lng) {
			return nil, apperrors.NewValidationError("user location is out of range")
		}
	}

	term := strings.ToLower(strings.TrimSpace(criteria.SearchTerm))

	out := make([]*entities.Listing, 0, len(listings))
	for _, l := range listings {
		if l == nil {
			continue
		}
		if term != "" && !matchesTerm(l, term) {
			continue
		}
		if !isAny(criteria.ProfileType) && string(l.ProfileType) != criteria.ProfileType {
			continue
		}
		if !isAny(criteria.SubCategory) {
			if l.SubCategory != criteria.SubCategory {
				continue
			}
		} else if !isAny(criteria.Category) && l.Category != criteria.Category {
			continue
		}
		if !matchesLocation(l, criteria) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func matchesTerm(l *entities.Listing, term string) bool {
	fields := []string{
		l.Profile.CompanyName,
		l.Profile.ProName,
		l.Profile.Bio,
		l.SubCategory,
		l.Address.Text(),
	}
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func matchesLocation(l *entities.Listing, criteria SearchCriteria) bool {
	if !criteria.RadiusMode {
		if c := strings.TrimSpace(criteria.City); c != "" && !strings.EqualFold(strings.TrimSpace(l.Address.City), c) {
			return false
		}
		if s := strings.TrimSpace(criteria.State); s != "" && !strings.EqualFold(strings.TrimSpace(l.Address.State), s) {
			return false
		}
		return true
	}

	if criteria.Radius.IsAll() {
		return true
	}
	d, ok := listingDistance(l, criteria.UserLocation)
	return ok && d <= criteria.Radius.Km()
}

// listingDistance is the distance from loc to l. ok is false when the
// listing has no usable coordinates.
func listingDistance(l *entities.Listing, loc *entities.UserLocation) (float64, bool) {
	if loc == nil {
		return 0, false
	}
	lat, lng, ok := l.Coordinates()
	if !ok || !geo.Valid(lat, lng) {
		return 0, false
	}
	d, err := geo.Distance(loc.Lat, loc.Lng, lat, lng)
	if err != nil {
		return 0, false
	}
	return d, true
}
