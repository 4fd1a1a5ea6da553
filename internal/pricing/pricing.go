// Package pricing resolves effective wholesale unit prices from a
// product's tier table. Resolution is a pure function; tier tables are
// validated once at write time so the resolver never sees an
// ambiguous table.
package pricing

import (
	"fmt"
	"sort"

	"footwear-wholesale/internal/apperr"
	"footwear-wholesale/internal/models"
)

// ResolveUnitPrice returns the unit price in cents for the requested
// quantity: the price of the highest tier whose minimum quantity is
// satisfied, or the base price when no tier qualifies. The input tier
// slice may be unsorted; it is not modified.
func ResolveUnitPrice(basePriceCents int64, tiers []models.PriceTier, quantity int64) int64 {
	if len(tiers) == 0 {
		return basePriceCents
	}

	sorted := make([]models.PriceTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinQuantity > sorted[j].MinQuantity
	})

	for _, tier := range sorted {
		if quantity >= tier.MinQuantity {
			return tier.PriceCents
		}
	}
	return basePriceCents
}

// ValidateTiers rejects tier tables the resolver cannot price
// deterministically or that would charge more for larger quantities:
// thresholds must be unique and at least 1, prices non-negative, and
// price non-increasing as the threshold grows.
func ValidateTiers(tiers []models.PriceTier) error {
	if len(tiers) == 0 {
		return nil
	}

	sorted := make([]models.PriceTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinQuantity < sorted[j].MinQuantity
	})

	for i, tier := range sorted {
		if tier.MinQuantity < 1 {
			return apperr.Validation("invalid price tier", map[string]string{
				"price_tiers": fmt.Sprintf("min_quantity must be at least 1, got %d", tier.MinQuantity),
			})
		}
		if tier.PriceCents < 0 {
			return apperr.Validation("invalid price tier", map[string]string{
				"price_tiers": fmt.Sprintf("price must not be negative for min_quantity %d", tier.MinQuantity),
			})
		}
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		if tier.MinQuantity == prev.MinQuantity {
			return apperr.Validation("invalid price tier", map[string]string{
				"price_tiers": fmt.Sprintf("duplicate min_quantity %d", tier.MinQuantity),
			})
		}
		if tier.PriceCents > prev.PriceCents {
			return apperr.Validation("invalid price tier", map[string]string{
				"price_tiers": fmt.Sprintf("price for min_quantity %d exceeds price for min_quantity %d", tier.MinQuantity, prev.MinQuantity),
			})
		}
	}
	return nil
}
