package models

import (
	"time"

	"baas/backend/services/degradation-service/internal/numeric"
)

// UnknownCarType is assigned to vehicles absent from the car-type mapping.
const UnknownCarType = "UNKNOWN"

// SegmentSummary is the per-episode record that flows through every later stage.
type SegmentSummary struct {
	CarID           string                     `json:"car_id"`
	CarType         string                     `json:"car_type"`
	ChargeType      ChargeType                 `json:"charge_type"`
	StartSOC        numeric.Float              `json:"start_soc"`
	EndSOC          numeric.Float              `json:"end_soc"`
	SOCDelta        numeric.Float              `json:"soc_quan"`
	StartTime       time.Time                  `json:"start_time"`
	EndTime         time.Time                  `json:"end_time"`
	DurationSeconds numeric.Float              `json:"duration"`
	DurationHours   numeric.Float              `json:"duration_hour"`
	Lines           int                        `json:"lines"`
	ModuleTempAvg   [ModuleCount]numeric.Float `json:"b_modul_temp_avg"`
	PackCurrentAvg  numeric.Float              `json:"b_pack_current_avg"`
	PackVoltAvg     numeric.Float              `json:"b_pack_volt_avg"`
	SourcePath      string                     `json:"source_path"`
}

// ModuleTempMean averages the four per-segment module means. Any missing module
// mean makes the row mean undefined.
func (s SegmentSummary) ModuleTempMean() numeric.Float {
	return numeric.MeanAll(s.ModuleTempAvg[:]...)
}
