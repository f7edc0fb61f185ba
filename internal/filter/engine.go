// Package filter implements saved-search matching against catalog listings.
package filter

import (
	"fmt"
	"strings"

	"propbot/internal/model"
)

// Match checks whether a listing satisfies every set criterion.
// String criteria that are empty or "any" are ignored, a nil Bedrooms matches
// any room count and a zero price bound leaves that side open.
func Match(c model.Criteria, l *model.Listing) bool {
	if isSet(c.PropertyType) && normalize(c.PropertyType) != normalize(l.PropertyType) {
		return false
	}
	if isSet(c.Location) {
		loc := normalize(c.Location)
		if loc != normalize(l.Neighborhood) && loc != normalize(l.Location) {
			return false
		}
	}
	if c.Bedrooms != nil && *c.Bedrooms != l.Bedrooms {
		return false
	}
	return matchPrice(c.MinPrice, c.MaxPrice, l.PriceUSD)
}

func matchPrice(lo, hi, price float64) bool {
	if lo <= 0 && hi <= 0 {
		return true
	}
	// A bounded search cannot vouch for a listing whose USD price is unknown.
	if price <= 0 {
		return false
	}
	if lo > 0 && price < lo {
		return false
	}
	if hi > 0 && price > hi {
		return false
	}
	return true
}

func isSet(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, model.AnyValue)
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(v, "_", " ")))
}

// ValidateCriteria rejects criteria that can never match.
func ValidateCriteria(c model.Criteria) error {
	if c.MinPrice < 0 || c.MaxPrice < 0 {
		return fmt.Errorf("price bounds must not be negative")
	}
	if c.MinPrice > 0 && c.MaxPrice > 0 && c.MinPrice > c.MaxPrice {
		return fmt.Errorf("min price %.0f exceeds max price %.0f", c.MinPrice, c.MaxPrice)
	}
	if c.Bedrooms != nil && *c.Bedrooms < 0 {
		return fmt.Errorf("bedrooms must not be negative")
	}
	return nil
}
