package entities

import (
	"encoding/json"
	"strings"
	"time"
)

// ProfileType distinguishes individual professionals from businesses.
type ProfileType string

const (
	ProfileTypeProfessional ProfileType = "Profissional"
	ProfileTypeCommerce     ProfileType = "Comercio"
)

// Valid reports whether t is a known profile type.
func (t ProfileType) Valid() bool {
	return t == ProfileTypeProfessional || t == ProfileTypeCommerce
}

// Listing is a professional or commerce profile shown in the directory.
// IsVIP and IsHighlighted are derived from Plan and never stored.
type Listing struct {
	ID                    string      `json:"id" db:"id"`
	OwnerUserID           string      `json:"owner_user_id,omitempty" db:"owner_user_id"`
	ProfileType           ProfileType `json:"profile_type" db:"profile_type"`
	Category              string      `json:"category" db:"category"`
	SubCategory           string      `json:"sub_category" db:"sub_category"`
	Plan                  Plan        `json:"plan" db:"plan"`
	SubscriptionExpiresAt *time.Time  `json:"subscription_expires_at,omitempty" db:"subscription_expires_at"`
	Latitude              *float64    `json:"latitude,omitempty" db:"latitude"`
	Longitude             *float64    `json:"longitude,omitempty" db:"longitude"`
	Address               Address     `json:"address" db:"-"`
	Profile               Profile     `json:"profile" db:"profile"`
	Reviews               []Review    `json:"reviews" db:"reviews"`
	ViewCount             int64       `json:"view_count" db:"view_count"`
	IsClaimable           bool        `json:"is_claimable" db:"is_claimable"`
	CreatedAt             time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at" db:"updated_at"`
}

// Address is the street address of a listing.
type Address struct {
	Street       string `json:"street" db:"street"`
	Neighborhood string `json:"neighborhood" db:"neighborhood"`
	City         string `json:"city" db:"city"`
	State        string `json:"state" db:"state"`
}

// Text joins the non-empty address parts for substring search and geocoding.
func (a Address) Text() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.Neighborhood, a.City, a.State} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Profile holds the presentation fields of a listing.
type Profile struct {
	CompanyName     string         `json:"company_name,omitempty"`
	ProName         string         `json:"pro_name,omitempty"`
	Bio             string         `json:"bio,omitempty"`
	Phone           string         `json:"phone,omitempty"`
	WhatsApp        string         `json:"whatsapp,omitempty"`
	Email           string         `json:"email,omitempty"`
	PhotoURL        string         `json:"photo_url,omitempty"`
	ExperienceYears int            `json:"experience_years,omitempty"`
	Emergency24h    bool           `json:"emergency_24h,omitempty"`
	WorkingHours    []WorkingHours `json:"working_hours,omitempty"`
	ServicePhotos   []string       `json:"service_photos,omitempty"`
}

// WorkingHours is the opening window of one weekday.
type WorkingHours struct {
	Day    string `json:"day"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Closed bool   `json:"closed"`
}

// DisplayName is the company name for businesses and the professional's
// name otherwise, falling back to whichever is set.
func (l *Listing) DisplayName() string {
	if l.ProfileType == ProfileTypeCommerce && l.Profile.CompanyName != "" {
		return l.Profile.CompanyName
	}
	if l.Profile.ProName != "" {
		return l.Profile.ProName
	}
	return l.Profile.CompanyName
}

// IsVIP is true for any paid tier.
func (l *Listing) IsVIP() bool {
	return l.Plan.Paid()
}

// IsHighlighted is true only for Premium.
func (l *Listing) IsHighlighted() bool {
	return l.Plan == PlanPremium
}

// Coordinates returns the listing position when both parts are present.
func (l *Listing) Coordinates() (lat, lng float64, ok bool) {
	if l.Latitude == nil || l.Longitude == nil {
		return 0, 0, false
	}
	return *l.Latitude, *l.Longitude, true
}

// AverageRating is the mean of non-hidden review ratings. ok is false when
// there is nothing to average.
func (l *Listing) AverageRating() (avg float64, ok bool) {
	sum, n := 0, 0
	for _, r := range l.Reviews {
		if r.Hidden {
			continue
		}
		sum += r.Rating
		n++
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}

// VisibleReviews returns the reviews shown to the public.
func (l *Listing) VisibleReviews() []Review {
	out := make([]Review, 0, len(l.Reviews))
	for _, r := range l.Reviews {
		if !r.Hidden {
			out = append(out, r)
		}
	}
	return out
}

// Clone returns a copy that shares no mutable state with l.
func (l *Listing) Clone() *Listing {
	c := *l
	if l.SubscriptionExpiresAt != nil {
		t := *l.SubscriptionExpiresAt
		c.SubscriptionExpiresAt = &t
	}
	if l.Latitude != nil {
		v := *l.Latitude
		c.Latitude = &v
	}
	if l.Longitude != nil {
		v := *l.Longitude
		c.Longitude = &v
	}
	c.Reviews = append([]Review(nil), l.Reviews...)
	c.Profile.ServicePhotos = append([]string(nil), l.Profile.ServicePhotos...)
	c.Profile.WorkingHours = append([]WorkingHours(nil), l.Profile.WorkingHours...)
	return &c
}

type listingJSON Listing

// MarshalJSON adds the plan-derived flags and rating summary.
func (l Listing) MarshalJSON() ([]byte, error) {
	avg, ok := l.AverageRating()
	var rating *float64
	if ok {
		rating = &avg
	}
	return json.Marshal(struct {
		listingJSON
		DisplayName   string   `json:"display_name"`
		IsVIP         bool     `json:"is_vip"`
		IsHighlighted bool     `json:"is_highlighted"`
		Rating        *float64 `json:"rating"`
	}{
		listingJSON:   listingJSON(l),
		DisplayName:   l.DisplayName(),
		IsVIP:         l.IsVIP(),
		IsHighlighted: l.IsHighlighted(),
		Rating:        rating,
	})
}

// UserLocation is the caller's position as reported by the device.
type UserLocation struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy,omitempty"`
}
