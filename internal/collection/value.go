package collection

import (
	"math"
	"strconv"
	"strings"

	"github.com/atinyakov/BagWardrobe/internal/models"
)

// Totals aggregates the value tracking fields of a collection.
type Totals struct {
	TotalPurchasePrice  float64
	TotalEstimatedValue float64
	Appreciation        float64
	AppreciationPercent float64
	// TrackedCount counts bags with both prices entered.
	TrackedCount int
	TotalCount   int
}

// Calculate derives the value dashboard totals from records.
// Empty or non-numeric prices count as zero. Negative amounts are summed as is.
func Calculate(records []models.BagRecord) Totals {
	t := Totals{TotalCount: len(records)}
	for _, r := range records {
		purchase, purchaseOK := parseAmount(r.PurchasePrice)
		estimated, estimatedOK := parseAmount(r.EstimatedValue)
		t.TotalPurchasePrice += purchase
		t.TotalEstimatedValue += estimated
		if purchaseOK && estimatedOK {
			t.TrackedCount++
		}
	}
	t.Appreciation = t.TotalEstimatedValue - t.TotalPurchasePrice
	if t.TotalPurchasePrice != 0 {
		t.AppreciationPercent = t.Appreciation / t.TotalPurchasePrice * 100
	}
	return t
}

func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
