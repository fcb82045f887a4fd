package report

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"baas/backend/services/degradation-service/internal/models"
	"baas/backend/services/degradation-service/internal/numeric"
)

// AnalysisTier is the slope tier, 1 based, used by the per-vehicle analysis tables.
const AnalysisTier = models.SlopeTiers

// ObservationPeriods lists every observed charge type of every vehicle, fast
// before slow within a vehicle.
func ObservationPeriods(records []models.DegradationRecord) []models.ObservationPeriod {
	var out []models.ObservationPeriod
	for i := range records {
		for _, ct := range models.ChargeTypes {
			c := records[i].For(ct)
			if !c.Observed() {
				continue
			}
			out = append(out, models.ObservationPeriod{
				CarID:        records[i].CarID,
				ChargeType:   ct,
				Months:       c.ObservedMonths(),
				RatePerMonth: c.RatesPerMonth[AnalysisTier-1],
			})
		}
	}
	return out
}

// VehicleAnalyses returns one row per vehicle. Unobserved charge types stay undefined.
func VehicleAnalyses(records []models.DegradationRecord) []models.VehicleAnalysis {
	out := make([]models.VehicleAnalysis, 0, len(records))
	for i := range records {
		out = append(out, models.VehicleAnalysis{
			CarID:   records[i].CarID,
			CarType: records[i].CarType,
			Fast:    chargeAnalysis(records[i].Fast),
			Slow:    chargeAnalysis(records[i].Slow),
		})
	}
	return out
}

func chargeAnalysis(c models.ChargeDegradation) models.ChargeAnalysis {
	if !c.Observed() {
		return models.ChargeAnalysis{}
	}
	return models.ChargeAnalysis{
		Months:       c.ObservedMonths(),
		Rate:         c.Rates[AnalysisTier-1],
		RatePerMonth: c.RatesPerMonth[AnalysisTier-1],
	}
}

// CompareChargeTypes describes the top-tier per-month rate of fast and slow
// charging over records. A charge type without values gets n = 0.
func CompareChargeTypes(records []models.DegradationRecord) []models.ChargeComparison {
	out := make([]models.ChargeComparison, 0, len(models.ChargeTypes))
	for _, ct := range models.ChargeTypes {
		values := Indicator{ChargeType: ct, Tier: AnalysisTier}.Values(records)
		c := models.ChargeComparison{ChargeType: ct, N: len(values)}
		if len(values) > 0 {
			c.Mean = numeric.Of(stat.Mean(values, nil))
			c.Median = numeric.Of(median(values))
			c.Min = numeric.Of(floats.Min(values))
			c.Max = numeric.Of(floats.Max(values))
		}
		if len(values) > 1 {
			c.StdDev = numeric.Of(stat.StdDev(values, nil))
		}
		out = append(out, c)
	}
	return out
}
