package service

import (
	"baas/backend/services/degradation-service/internal/models"
	"baas/backend/services/degradation-service/internal/numeric"
)

// DaysPerMonth converts elapsed days to months.
const DaysPerMonth = models.DaysPerMonth

// MonthlyNormalizer divides degradation percentages by elapsed months.
type MonthlyNormalizer struct{}

// Normalize returns copies of records with per-month rates filled in.
func (MonthlyNormalizer) Normalize(records []models.DegradationRecord) []models.DegradationRecord {
	out := make([]models.DegradationRecord, len(records))
	for i, rec := range records {
		for _, ct := range models.ChargeTypes {
			c := rec.For(ct)
			months := ElapsedMonths(*c)
			for tier := range c.Rates {
				c.RatesPerMonth[tier] = c.Rates[tier].Div(months)
			}
		}
		out[i] = rec
	}
	return out
}

// ElapsedMonths is whole elapsed days over 30. Missing dates and
// non-positive spans are undefined.
func ElapsedMonths(c models.ChargeDegradation) numeric.Float {
	months := c.ObservedMonths()
	if !months.Valid || months.Float64 <= 0 {
		return numeric.Undefined()
	}
	return months
}
