package models

import (
	"time"

	"baas/backend/services/degradation-service/internal/numeric"
)

// IndicatorStats summarises one per-month indicator over a view of the degradation table.
type IndicatorStats struct {
	Indicator string        `json:"indicator"`
	View      string        `json:"view"`
	Mean      numeric.Float `json:"mean"`
	StdDev    numeric.Float `json:"std"`
	Median    numeric.Float `json:"median"`
	N         int           `json:"n"`
}

// ObservationPeriod is one observed (vehicle, charge type) pair of the
// degradation table with its top-tier per-month rate.
type ObservationPeriod struct {
	CarID        string        `json:"car_id"`
	ChargeType   ChargeType    `json:"charge_type"`
	Months       numeric.Float `json:"observed_months"`
	RatePerMonth numeric.Float `json:"degradation_rate_3_per_month"`
}

// ChargeAnalysis is the top-tier view of one charge type of a vehicle.
type ChargeAnalysis struct {
	Months       numeric.Float `json:"observed_months"`
	Rate         numeric.Float `json:"degradation_rate_3"`
	RatePerMonth numeric.Float `json:"degradation_rate_3_per_month"`
}

// VehicleAnalysis is the per-vehicle top-tier summary.
type VehicleAnalysis struct {
	CarID   string         `json:"car_id"`
	CarType string         `json:"car_type"`
	Fast    ChargeAnalysis `json:"fast"`
	Slow    ChargeAnalysis `json:"slow"`
}

// ChargeComparison describes the top-tier per-month rate of one charge type.
type ChargeComparison struct {
	ChargeType ChargeType    `json:"charge_type"`
	Mean       numeric.Float `json:"mean"`
	StdDev     numeric.Float `json:"std"`
	Median     numeric.Float `json:"median"`
	Min        numeric.Float `json:"min"`
	Max        numeric.Float `json:"max"`
	N          int           `json:"n"`
}

// RunStats carries the counters logged and reported for a run.
type RunStats struct {
	FilesFound    int                `json:"files_found"`
	FilesFailed   int                `json:"files_failed"`
	Segments      int                `json:"segments"`
	ByChargeType  map[ChargeType]int `json:"by_charge_type"`
	Vehicles      int                `json:"vehicles"`
	EligibleRows  int                `json:"eligible_rows"`
	FilteredCount int                `json:"filtered_vehicles"`
}

// RunResult holds every table produced by one pipeline run.
type RunResult struct {
	RunID       string              `json:"run_id"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  time.Time           `json:"finished_at"`
	Stats       RunStats            `json:"stats"`
	Segments    []SegmentSummary    `json:"-"`
	References  *ReferenceTable     `json:"-"`
	Slopes      []SlopeRecord       `json:"-"`
	Degradation []DegradationRecord `json:"-"`
	Filtered    []DegradationRecord `json:"-"`
	Indicators  []IndicatorStats    `json:"-"`
	Periods     []ObservationPeriod `json:"-"`
	Vehicles    []VehicleAnalysis   `json:"-"`
	Comparison  []ChargeComparison  `json:"-"`
	Outputs     map[string]string   `json:"outputs,omitempty"`
}
