package service

import (
	"gonum.org/v1/gonum/stat"

	"baas/backend/services/degradation-service/internal/models"
	"baas/backend/services/degradation-service/internal/numeric"
)

// StatisticsBuilder reduces a charging segment to its summary row.
type StatisticsBuilder struct{}

// NewStatisticsBuilder returns a builder.
func NewStatisticsBuilder() *StatisticsBuilder {
	return &StatisticsBuilder{}
}

// Summarize builds the summary of seg. Charge type and car type are left for
// the classifier and the car-type enrichment.
func (b *StatisticsBuilder) Summarize(seg models.ChargingSegment) models.SegmentSummary {
	first, last := seg.First(), seg.Last()

	duration := numeric.Of(last.CollectedAt.Sub(first.CollectedAt).Seconds())
	summary := models.SegmentSummary{
		CarID:           first.DeviceID,
		StartSOC:        first.SOC,
		EndSOC:          last.SOC,
		SOCDelta:        last.SOC.Sub(first.SOC),
		StartTime:       first.CollectedAt,
		EndTime:         last.CollectedAt,
		DurationSeconds: duration,
		DurationHours:   duration.Div(numeric.Of(3600)),
		Lines:           len(seg.Samples),
		SourcePath:      seg.Provenance,
	}

	columns := make([]numeric.Float, len(seg.Samples))
	for m := 0; m < models.ModuleCount; m++ {
		for i, s := range seg.Samples {
			columns[i] = s.ModuleTemps[m]
		}
		summary.ModuleTempAvg[m] = mean(columns)
	}
	for i, s := range seg.Samples {
		columns[i] = s.PackCurrent
	}
	summary.PackCurrentAvg = mean(columns)
	for i, s := range seg.Samples {
		columns[i] = s.PackVoltage
	}
	summary.PackVoltAvg = mean(columns)
	return summary
}

// mean averages the defined values; undefined when none are defined.
func mean(values []numeric.Float) numeric.Float {
	defined := numeric.Defined(values)
	if len(defined) == 0 {
		return numeric.Undefined()
	}
	return numeric.Of(stat.Mean(defined, nil))
}
