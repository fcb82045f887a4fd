package service

import (
	"sort"

	"baas/backend/services/degradation-service/internal/models"
	"baas/backend/services/degradation-service/internal/numeric"
)

// DegradationCalculator compares each vehicle's earliest and latest eligible segment.
type DegradationCalculator struct{}

// Calculate returns one record per car id in order of first appearance. Car
// type is taken from the vehicle's first row.
func (DegradationCalculator) Calculate(rows []models.SlopeRecord) []models.DegradationRecord {
	index := make(map[string]int)
	var (
		records []models.DegradationRecord
		byCar   [][]models.SlopeRecord
	)
	for _, row := range rows {
		i, ok := index[row.CarID]
		if !ok {
			i = len(records)
			index[row.CarID] = i
			records = append(records, models.DegradationRecord{CarID: row.CarID, CarType: row.CarType})
			byCar = append(byCar, nil)
		}
		byCar[i] = append(byCar[i], row)
	}

	for i := range records {
		for _, ct := range models.ChargeTypes {
			*records[i].For(ct) = compareFirstLast(byCar[i], ct)
		}
	}
	return records
}

func compareFirstLast(rows []models.SlopeRecord, ct models.ChargeType) models.ChargeDegradation {
	var selected []models.SlopeRecord
	for _, row := range rows {
		if row.ChargeType == ct {
			selected = append(selected, row)
		}
	}
	var out models.ChargeDegradation
	if len(selected) == 0 {
		return out
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].StartTime.Before(selected[j].StartTime)
	})
	first, last := selected[0], selected[len(selected)-1]
	firstDate, lastDate := first.StartTime, last.StartTime
	out.FirstDate = &firstDate
	out.LastDate = &lastDate
	for tier := range out.Rates {
		out.Rates[tier] = DegradationPct(first.Slopes[tier], last.Slopes[tier])
	}
	return out
}

// DegradationPct is (first-last)/first*100. Positive means the metric
// decreased. Undefined when either slope is undefined or first is zero.
func DegradationPct(first, last numeric.Float) numeric.Float {
	return first.Sub(last).Div(first).Scale(100)
}
