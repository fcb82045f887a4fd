package models

import (
	"time"

	"baas/backend/services/degradation-service/internal/numeric"
)

// ModuleCount is the number of battery module temperature sensors per sample.
const ModuleCount = 4

// ChargingKind is the activity tag marker of a charging sample.
const ChargingKind = "charging"

// TelemetrySample represents a single sensor reading of one vehicle.
type TelemetrySample struct {
	DeviceID    string                     `json:"dev_id"`
	CollectedAt time.Time                  `json:"coll_dt"`
	SOC         numeric.Float              `json:"b_soc"`
	ModuleTemps [ModuleCount]numeric.Float `json:"b_modul_temps"`
	PackCurrent numeric.Float              `json:"b_pack_current"`
	PackVoltage numeric.Float              `json:"b_pack_volt"`
	Kind        string                     `json:"kind"`
	FastCharge  bool                       `json:"b_fast_charg_con_sts"`
	SlowCharge  bool                       `json:"b_slow_charg_con_sts"`
}

// ChargingSegment is a time-ordered contiguous run of charging samples of one vehicle.
type ChargingSegment struct {
	Index      int               `json:"index"`
	Samples    []TelemetrySample `json:"samples"`
	Provenance string            `json:"provenance"`
}

// First returns the earliest sample. Segments always hold at least two samples.
func (s ChargingSegment) First() TelemetrySample {
	return s.Samples[0]
}

// Last returns the latest sample.
func (s ChargingSegment) Last() TelemetrySample {
	return s.Samples[len(s.Samples)-1]
}
