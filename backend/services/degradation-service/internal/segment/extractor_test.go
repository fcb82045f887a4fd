package segment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baas/backend/services/degradation-service/internal/models"
	"baas/backend/services/degradation-service/internal/numeric"
)

var base = time.Date(2023, 5, 1, 8, 0, 0, 0, time.UTC)

func sample(offset time.Duration, kind string, soc float64) models.TelemetrySample {
	return models.TelemetrySample{
		DeviceID:    "V1",
		CollectedAt: base.Add(offset),
		SOC:         numeric.Of(soc),
		Kind:        kind,
	}
}

func socs(seg models.ChargingSegment) []float64 {
	out := make([]float64, 0, len(seg.Samples))
	for _, s := range seg.Samples {
		out = append(out, s.SOC.Float64)
	}
	return out
}

func TestExtractSplitsOnGap(t *testing.T) {
	samples := []models.TelemetrySample{
		sample(0, "charging", 1),
		sample(time.Minute, "charging", 2),
		sample(7*time.Minute, "charging", 3),
		sample(8*time.Minute, "charging", 4),
		sample(13*time.Minute, "charging", 5),
	}

	segments := NewExtractor(ModeActivity).Extract(samples)

	require.Len(t, segments, 2)
	assert.Equal(t, []float64{1, 2}, socs(segments[0]))
	assert.Equal(t, []float64{3, 4, 5}, socs(segments[1]))
	assert.Equal(t, 1, segments[0].Index)
	assert.Equal(t, 2, segments[1].Index)
}

func TestExtractGapOfExactlyFiveMinutesStaysTogether(t *testing.T) {
	samples := []models.TelemetrySample{
		sample(0, "charging", 1),
		sample(5*time.Minute, "charging", 2),
	}

	segments := NewExtractor(ModeActivity).Extract(samples)

	require.Len(t, segments, 1)
	assert.Len(t, segments[0].Samples, 2)
}

func TestExtractDropsSingletonsAndNonCharging(t *testing.T) {
	samples := []models.TelemetrySample{
		sample(20*time.Minute, "charging", 9),
		sample(0, "driving", 1),
		sample(time.Minute, "charging", 2),
		sample(2*time.Minute, "charging", 3),
		sample(3*time.Minute, "parked", 4),
		sample(4*time.Minute, "Charging", 5),
	}

	segments := NewExtractor(ModeActivity).Extract(samples)

	require.Len(t, segments, 1)
	assert.Equal(t, []float64{2, 3}, socs(segments[0]))
	// the singleton at +20m consumed boundary 2
	assert.Equal(t, 1, segments[0].Index)
}

func TestExtractSortsAndKeepsTieOrder(t *testing.T) {
	samples := []models.TelemetrySample{
		sample(2*time.Minute, "charging", 3),
		sample(0, "charging", 1),
		sample(time.Minute, "charging", 20),
		sample(time.Minute, "charging", 21),
	}

	segments := NewExtractor(ModeActivity).Extract(samples)

	require.Len(t, segments, 1)
	assert.Equal(t, []float64{1, 20, 21, 3}, socs(segments[0]))
	assert.Equal(t, float64(3), samples[0].SOC.Float64, "input must not be reordered")
}

func TestExtractNoInternalGapExceedsMax(t *testing.T) {
	var samples []models.TelemetrySample
	offsets := []int{0, 3, 9, 10, 11, 30, 31, 36, 42, 43}
	for i, m := range offsets {
		samples = append(samples, sample(time.Duration(m)*time.Minute, "charging", float64(i)))
	}

	for _, seg := range NewExtractor(ModeActivity).Extract(samples) {
		assert.GreaterOrEqual(t, len(seg.Samples), MinSamples)
		for i := 1; i < len(seg.Samples); i++ {
			gap := seg.Samples[i].CollectedAt.Sub(seg.Samples[i-1].CollectedAt)
			assert.LessOrEqual(t, gap, DefaultMaxGap)
		}
	}
}

func TestExtractWholeFile(t *testing.T) {
	samples := []models.TelemetrySample{
		sample(time.Hour, "", 2),
		sample(0, "driving", 1),
	}

	segments := NewExtractor(ModeWholeFile).Extract(samples)

	require.Len(t, segments, 1)
	assert.Equal(t, []float64{1, 2}, socs(segments[0]))

	assert.Empty(t, NewExtractor(ModeWholeFile).Extract(samples[:1]))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeActivity, m)

	m, err = ParseMode("Whole-File")
	require.NoError(t, err)
	assert.Equal(t, ModeWholeFile, m)

	_, err = ParseMode("hourly")
	assert.Error(t, err)
}
