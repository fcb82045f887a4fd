package service

import (
	"baas/backend/services/degradation-service/internal/models"
	"baas/backend/services/degradation-service/internal/numeric"
)

// ReferenceCalculator computes population baselines per (car type, charge type).
type ReferenceCalculator struct{}

// Calculate makes one pass over rows and returns the immutable reference table.
// Every key present in rows gets an entry; a group whose values are all
// missing gets undefined baselines.
func (ReferenceCalculator) Calculate(rows []models.SegmentSummary) *models.ReferenceTable {
	type group struct {
		currents []numeric.Float
		temps    []numeric.Float
	}
	groups := make(map[models.ReferenceKey]*group)
	var order []models.ReferenceKey
	for _, row := range rows {
		key := models.ReferenceKey{CarType: row.CarType, ChargeType: row.ChargeType}
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
			order = append(order, key)
		}
		g.currents = append(g.currents, row.PackCurrentAvg)
		g.temps = append(g.temps, row.ModuleTempMean())
	}

	values := make([]models.ReferenceValue, 0, len(order))
	for _, key := range order {
		g := groups[key]
		values = append(values, models.ReferenceValue{
			ReferenceKey: key,
			PackCurrent:  mean(g.currents),
			ModuleTemp:   mean(g.temps),
			Rows:         len(g.currents),
		})
	}
	return models.NewReferenceTable(values)
}
