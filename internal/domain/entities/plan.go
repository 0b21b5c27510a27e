package entities

import (
	"fmt"
	"strings"
	"time"
)

// Plan is a listing's visibility tier.
type Plan string

const (
	PlanFree    Plan = "Free"
	PlanVIP     Plan = "VIP"
	PlanPremium Plan = "Premium"
)

// ParsePlan validates a plan name coming from storage or a request. Matching is
// case-insensitive; the canonical value is returned.
func ParsePlan(raw string) (Plan, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "free":
		return PlanFree, nil
	case "vip":
		return PlanVIP, nil
	case "premium":
		return PlanPremium, nil
	}
	return "", fmt.Errorf("unknown plan %q", raw)
}

// Valid reports whether p is one of the three known tiers.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanVIP, PlanPremium:
		return true
	}
	return false
}

// Paid reports whether p is a purchasable tier.
func (p Plan) Paid() bool {
	return p == PlanVIP || p == PlanPremium
}

// Weight orders tiers for ranking: Premium 3, VIP 2, Free 1.
// Calling Weight on an unknown plan is a programming error and panics; values
// read from outside the process must go through ParsePlan first.
func (p Plan) Weight() int {
	switch p {
	case PlanPremium:
		return 3
	case PlanVIP:
		return 2
	case PlanFree:
		return 1
	}
	panic(fmt.Sprintf("entities: weight of unknown plan %q", string(p)))
}

// Term is how long one purchase of a paid plan lasts.
func (p Plan) Term() (time.Duration, bool) {
	switch p {
	case PlanVIP:
		return 30 * 24 * time.Hour, true
	case PlanPremium:
		return 365 * 24 * time.Hour, true
	}
	return 0, false
}
