// Package report summarises the degradation tables for review.
package report

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"baas/backend/services/degradation-service/internal/models"
	"baas/backend/services/degradation-service/internal/numeric"
)

// View names.
const (
	ViewAll      = "all"
	ViewFiltered = "filtered"
)

// Indicator is one per-month rate column.
type Indicator struct {
	Name       string
	ChargeType models.ChargeType
	Tier       int
}

// Indicators lists the six per-month indicators, fast before slow.
func Indicators() []Indicator {
	var out []Indicator
	for _, ct := range models.ChargeTypes {
		for tier := 1; tier <= models.SlopeTiers; tier++ {
			out = append(out, Indicator{Name: models.PerMonthIndicator(ct, tier), ChargeType: ct, Tier: tier})
		}
	}
	return out
}

// Values returns the defined values of ind across records.
func (ind Indicator) Values(records []models.DegradationRecord) []float64 {
	values := make([]float64, 0, len(records))
	for i := range records {
		if v, ok := records[i].For(ind.ChargeType).RatesPerMonth[ind.Tier-1].Get(); ok {
			values = append(values, v)
		}
	}
	return values
}

// Summarize computes mean, sample standard deviation, median and count of
// every indicator over records.
func Summarize(view string, records []models.DegradationRecord) []models.IndicatorStats {
	indicators := Indicators()
	out := make([]models.IndicatorStats, 0, len(indicators))
	for _, ind := range indicators {
		values := ind.Values(records)
		s := models.IndicatorStats{Indicator: ind.Name, View: view, N: len(values)}
		if len(values) > 0 {
			s.Mean = numeric.Of(stat.Mean(values, nil))
			s.Median = numeric.Of(median(values))
		}
		if len(values) > 1 {
			s.StdDev = numeric.Of(stat.StdDev(values, nil))
		}
		out = append(out, s)
	}
	return out
}

// median averages the two middle values of an even-length sample.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
