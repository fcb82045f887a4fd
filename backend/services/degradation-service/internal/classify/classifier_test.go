package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baas/backend/services/degradation-service/internal/models"
	"baas/backend/services/degradation-service/internal/numeric"
)

func TestPathHint(t *testing.T) {
	tests := []struct {
		provenance string
		want       models.ChargeType
	}{
		{"/data/GV60/Fast/car_1.csv#segment_1", models.ChargeFast},
		{"/data/slow_charging/car_1.csv#segment_3", models.ChargeSlow},
		{"/data/fast_then_slow.csv#segment_1", models.ChargeFast},
		{"/data/slow_then_fast.csv#segment_1", models.ChargeFast},
		{"/data/car_1.csv#segment_1", models.ChargeUnknown},
	}
	for _, tc := range tests {
		t.Run(tc.provenance, func(t *testing.T) {
			got := PathHint{}.Classify(models.ChargingSegment{Provenance: tc.provenance})
			assert.Equal(t, tc.want, got)
		})
	}
}

func flags(pairs ...[2]bool) models.ChargingSegment {
	var seg models.ChargingSegment
	for _, p := range pairs {
		seg.Samples = append(seg.Samples, models.TelemetrySample{FastCharge: p[0], SlowCharge: p[1]})
	}
	return seg
}

func TestStatusVote(t *testing.T) {
	tests := []struct {
		name string
		seg  models.ChargingSegment
		want models.ChargeType
	}{
		{"fast majority", flags([2]bool{true, false}, [2]bool{true, false}, [2]bool{false, true}), models.ChargeFast},
		{"slow majority", flags([2]bool{false, true}, [2]bool{false, true}, [2]bool{true, false}), models.ChargeSlow},
		{"nonzero tie prefers fast", flags([2]bool{true, true}, [2]bool{false, false}), models.ChargeFast},
		{"no flags", flags([2]bool{false, false}, [2]bool{false, false}), models.ChargeUnknown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusVote{}.Classify(tc.seg))
		})
	}
}

func currents(values ...numeric.Float) models.ChargingSegment {
	var seg models.ChargingSegment
	for _, v := range values {
		seg.Samples = append(seg.Samples, models.TelemetrySample{PackCurrent: v})
	}
	return seg
}

func TestCurrentThreshold(t *testing.T) {
	c := CurrentThreshold{Threshold: DefaultCurrentThreshold}

	assert.Equal(t, models.ChargeFast, c.Classify(currents(numeric.Of(40), numeric.Of(60))))
	assert.Equal(t, models.ChargeSlow, c.Classify(currents(numeric.Of(49.9), numeric.Undefined())))
	assert.Equal(t, models.ChargeUnknown, c.Classify(currents(numeric.Undefined(), numeric.Undefined())))
}

func TestNew(t *testing.T) {
	c, err := New("Status-Vote", 0)
	require.NoError(t, err)
	assert.IsType(t, StatusVote{}, c)

	c, err = New("", DefaultCurrentThreshold)
	require.NoError(t, err)
	assert.Equal(t, CurrentThreshold{Threshold: DefaultCurrentThreshold}, c)

	c, err = New(StrategyCurrentThreshold, 0)
	require.NoError(t, err)
	assert.Equal(t, CurrentThreshold{Threshold: 0}, c, "a zero threshold is kept")

	_, err = New(StrategyCurrentThreshold, -1)
	assert.Error(t, err)

	c, err = New(StrategyCurrentThreshold, 80)
	require.NoError(t, err)
	assert.Equal(t, CurrentThreshold{Threshold: 80}, c)

	_, err = New("voltage", 0)
	assert.Error(t, err)

	assert.True(t, RequiresStatusFlags("status-vote"))
	assert.False(t, RequiresStatusFlags(StrategyPathHint))
}
