package domains

import (
	"math"

	"github.com/rankproof/rankproof/internal/models"
)

const (
	minTermYears = 1
	maxTermYears = 3
)

// PriceTerms computes registration and renewal pricing for 1-3 year terms.
// Both scale linearly with the term length, rounded to two decimal places.
func PriceTerms(basePrice, baseRenewal float64) map[int]models.TermPricing {
	pricing := make(map[int]models.TermPricing, maxTermYears)
	for years := minTermYears; years <= maxTermYears; years++ {
		pricing[years] = models.TermPricing{
			Registration: round2(basePrice * float64(years)),
			Renewal:      round2(baseRenewal * float64(years)),
		}
	}
	return pricing
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
