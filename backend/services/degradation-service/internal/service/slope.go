package service

import (
	"time"

	"baas/backend/services/degradation-service/internal/models"
	"baas/backend/services/degradation-service/internal/numeric"
)

// Eligibility thresholds a segment must meet before slopes are derived.
type Eligibility struct {
	MinStartSOC float64
	MinSOCDelta float64
	MinDuration time.Duration
}

// DefaultEligibility returns the production thresholds.
func DefaultEligibility() Eligibility {
	return Eligibility{
		MinStartSOC: 20,
		MinSOCDelta: 15,
		MinDuration: 180 * time.Second,
	}
}

// Eligible reports whether row passes every threshold. Missing values fail.
func (e Eligibility) Eligible(row models.SegmentSummary) bool {
	return row.StartSOC.AtLeast(e.MinStartSOC) &&
		row.SOCDelta.AtLeast(e.MinSOCDelta) &&
		row.DurationSeconds.AtLeast(e.MinDuration.Seconds())
}

// SlopeCalculator derives corrected charge rates from the reference table.
type SlopeCalculator struct {
	eligibility Eligibility
}

// NewSlopeCalculator returns a calculator using e.
func NewSlopeCalculator(e Eligibility) *SlopeCalculator {
	return &SlopeCalculator{eligibility: e}
}

// Calculate returns the eligible rows with their slopes, in input order. Rows
// of unknown charge type are kept with undefined slopes.
func (c *SlopeCalculator) Calculate(rows []models.SegmentSummary, refs *models.ReferenceTable) []models.SlopeRecord {
	out := make([]models.SlopeRecord, 0, len(rows))
	for _, row := range rows {
		if !c.eligibility.Eligible(row) {
			continue
		}
		rec := models.SlopeRecord{SegmentSummary: row}
		if row.ChargeType.Known() {
			ref, _ := refs.Lookup(models.ReferenceKey{CarType: row.CarType, ChargeType: row.ChargeType})
			rec.Slopes = Slopes(row, ref)
		}
		out = append(out, rec)
	}
	return out
}

// Slopes applies the three slope formulas. A zero ReferenceValue has undefined
// baselines, so tiers 2 and 3 come out undefined.
func Slopes(row models.SegmentSummary, ref models.ReferenceValue) models.SlopeSet {
	var s models.SlopeSet
	s[0] = row.SOCDelta.Div(row.DurationHours)
	s[1] = s[0].Mul(ref.PackCurrent).Div(row.PackCurrentAvg)
	tempFactor := numeric.Of(1).Sub(row.ModuleTempMean().Sub(ref.ModuleTemp).Scale(0.01))
	s[2] = s[1].Mul(tempFactor)
	return s
}
