package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"baas/backend/services/degradation-service/internal/classify"
	"baas/backend/services/degradation-service/internal/ingest"
	"baas/backend/services/degradation-service/internal/models"
	"baas/backend/services/degradation-service/internal/numeric"
	"baas/backend/services/degradation-service/internal/repository"
	"baas/backend/services/degradation-service/internal/segment"
)

const telemetryHeader = "dev_id,coll_dt,b_soc,b_modul_1_temp,b_modul_2_temp,b_modul_3_temp,b_modul_4_temp,b_pack_current,b_pack_volt,kind\n"

// episode renders one charging episode sampled every two minutes.
func episode(dev string, start time.Time, minutes int, socStart, socEnd, current float64) string {
	var b strings.Builder
	for m := 0; m <= minutes; m += 2 {
		soc := socStart + (socEnd-socStart)*float64(m)/float64(minutes)
		ts := start.Add(time.Duration(m) * time.Minute).Format("2006-01-02 15:04:05")
		fmt.Fprintf(&b, "%s,%s,%g,25,25,25,25,%g,650,charging\n", dev, ts, soc, current)
	}
	return b.String()
}

func writeData(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func newTestPipeline(t *testing.T, dataDir, outDir string) *PipelineService {
	t.Helper()
	classifier, err := classify.New(classify.StrategyCurrentThreshold, classify.DefaultCurrentThreshold)
	require.NoError(t, err)
	processor := ingest.NewFileProcessor(segment.NewExtractor(segment.ModeActivity), classifier, NewStatisticsBuilder(), false)

	opts := PipelineOptions{
		DataDir:     dataDir,
		Workers:     2,
		OutputDir:   outDir,
		Prefix:      "baas_",
		WindowDays:  DefaultWindowDays,
		Eligibility: DefaultEligibility(),
	}
	return NewPipelineService(opts, processor.Process, repository.StaticCarTypeSource{Model: "GV60"}, NewResultStore(), zap.NewNop())
}

func TestPipelineRun(t *testing.T) {
	dataDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "out")

	writeData(t, dataDir, "V1.csv", telemetryHeader+
		episode("V1", day0.AddDate(0, 0, 60), 20, 30, 66, 100)+
		episode("V1", day0, 20, 30, 70, 100))
	writeData(t, dataDir, "V2_fast.csv", telemetryHeader+episode("V2", day0, 20, 30, 70, 100))
	writeData(t, dataDir, "V2_slow.csv", telemetryHeader+
		episode("V2", day0.Add(5*time.Hour), 60, 30, 50, 10)+
		episode("V2", day0.AddDate(0, 0, 100), 60, 30, 45, 10))
	writeData(t, dataDir, "broken.csv", "dev_id,coll_dt\nV3,2023-01-01 00:00:00\n")
	writeData(t, dataDir, "idle.csv", telemetryHeader+"V4,2023-01-01 00:00:00,50,25,25,25,25,0,650,driving\n")

	svc := newTestPipeline(t, dataDir, outDir)
	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 5, result.Stats.FilesFound)
	assert.Equal(t, 1, result.Stats.FilesFailed)
	assert.Equal(t, 5, result.Stats.Segments)
	assert.Equal(t, 3, result.Stats.ByChargeType[models.ChargeFast])
	assert.Equal(t, 2, result.Stats.ByChargeType[models.ChargeSlow])
	assert.Equal(t, 2, result.Stats.Vehicles)

	// enrichment sorts by car id then start time
	require.Len(t, result.Segments, 5)
	assert.Equal(t, "V1", result.Segments[0].CarID)
	assert.Equal(t, day0, result.Segments[0].StartTime)
	assert.Equal(t, "GV60", result.Segments[0].CarType)

	require.Len(t, result.Degradation, 2)
	v1, v2 := result.Degradation[0], result.Degradation[1]
	assert.Equal(t, "V1", v1.CarID)
	assert.InDelta(t, 10.0, v1.Fast.Rates[2].Float64, 1e-6)
	assert.InDelta(t, 5.0, v1.Fast.RatesPerMonth[2].Float64, 1e-6)
	assert.False(t, v1.Slow.Rates[0].Valid)

	assert.Equal(t, "V2", v2.CarID)
	assert.InDelta(t, 0.0, v2.Fast.Rates[0].Float64, 1e-9)
	assert.False(t, v2.Fast.RatesPerMonth[0].Valid)
	assert.InDelta(t, 25.0, v2.Slow.Rates[2].Float64, 1e-6)

	require.Len(t, result.Filtered, 1)
	assert.Equal(t, "V2", result.Filtered[0].CarID)
	assert.Len(t, result.Indicators, 12)
	assert.Len(t, result.Periods, 3)
	assert.Len(t, result.Vehicles, 2)
	require.Len(t, result.Comparison, 2)
	assert.Zero(t, result.Comparison[0].N)
	assert.Equal(t, 1, result.Comparison[1].N)
	// slow span is 99 whole days
	assert.InDelta(t, 25.0/3.3, result.Comparison[1].Mean.Float64, 1e-6)

	for _, table := range []repository.Table{
		repository.TableSegments, repository.TableSlopes, repository.TableDegradation,
		repository.TableMonthly, repository.TableFiltered, repository.TableIndicators,
		repository.TablePeriods, repository.TableVehicles, repository.TableComparison,
	} {
		path, ok := result.Outputs[string(table)]
		require.True(t, ok, table)
		_, err := os.Stat(path)
		assert.NoError(t, err, table)
	}
	_, err = os.Stat(svc.PartsDir())
	assert.True(t, os.IsNotExist(err), "parts are removed after merge")

	latest, ok := svc.store.Latest()
	require.True(t, ok)
	assert.Equal(t, result.RunID, latest.RunID)

	derived, err := newTestPipeline(t, dataDir, t.TempDir()).Derive(context.Background(), result.Outputs[string(repository.TableSegments)])
	require.NoError(t, err)
	if diff := cmp.Diff(result.Degradation, derived.Degradation); diff != "" {
		t.Fatalf("derive mismatch (-run +derive):\n%s", diff)
	}
}

func TestPipelineFatalConditions(t *testing.T) {
	empty := t.TempDir()
	_, err := newTestPipeline(t, empty, t.TempDir()).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoInputFiles)

	writeData(t, empty, "broken.csv", "dev_id\nV1\n")
	_, err = newTestPipeline(t, empty, t.TempDir()).Run(context.Background())
	assert.ErrorIs(t, err, ingest.ErrNoResults)
}

func TestPipelineRejectsConcurrentRuns(t *testing.T) {
	svc := newTestPipeline(t, t.TempDir(), t.TempDir())
	svc.running.Lock()
	defer svc.running.Unlock()

	_, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestStartThenWait(t *testing.T) {
	dataDir := t.TempDir()
	writeData(t, dataDir, "V1.csv", telemetryHeader+episode("V1", day0, 20, 30, 70, 100))
	svc := newTestPipeline(t, dataDir, t.TempDir())

	require.NoError(t, svc.Start(context.Background()))
	require.NoError(t, svc.Wait(context.Background()))

	latest, ok := svc.store.Latest()
	require.True(t, ok)
	assert.Equal(t, 1, latest.Stats.Segments)

	_, err := svc.Run(context.Background())
	assert.NoError(t, err, "lock is released once the background run returns")
}

func TestWaitHonoursContext(t *testing.T) {
	svc := newTestPipeline(t, t.TempDir(), t.TempDir())
	svc.background.Add(1)
	defer svc.background.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Wait(ctx), context.DeadlineExceeded)
}

func TestZeroWindowKeepsEveryObservedVehicle(t *testing.T) {
	dataDir := t.TempDir()
	writeData(t, dataDir, "V1.csv", telemetryHeader+episode("V1", day0, 20, 30, 70, 100))
	svc := newTestPipeline(t, dataDir, t.TempDir())
	svc.opts.WindowDays = 0

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Filtered, 1)
	assert.Equal(t, "V1", result.Filtered[0].CarID)
}

type mapSource map[string]string

func (m mapSource) Lookup(_ context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string)
	for _, id := range ids {
		if v, ok := m[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func TestAssignCarTypes(t *testing.T) {
	rows := []models.SegmentSummary{
		{CarID: "B", StartTime: day0.Add(time.Hour)},
		{CarID: "A", StartTime: day0.Add(time.Hour)},
		{CarID: "B", StartTime: day0},
	}

	require.NoError(t, AssignCarTypes(context.Background(), rows, mapSource{"B": "EV6"}))

	assert.Equal(t, "A", rows[0].CarID)
	assert.Equal(t, models.UnknownCarType, rows[0].CarType)
	assert.Equal(t, "B", rows[1].CarID)
	assert.Equal(t, day0, rows[1].StartTime)
	assert.Equal(t, "EV6", rows[2].CarType)
}

type recordingSource struct {
	mapSource
	asked []string
}

func (r *recordingSource) Lookup(ctx context.Context, ids []string) (map[string]string, error) {
	r.asked = append(r.asked, ids...)
	return r.mapSource.Lookup(ctx, ids)
}

func TestAssignMissingCarTypesKeepsStoredTypes(t *testing.T) {
	rows := []models.SegmentSummary{
		{CarID: "B", StartTime: day0},
		{CarID: "A", CarType: "GV60", StartTime: day0},
		{CarID: "C", CarType: " ", StartTime: day0},
	}
	source := &recordingSource{mapSource: mapSource{"A": "EV6", "B": "EV6"}}

	require.NoError(t, AssignMissingCarTypes(context.Background(), rows, source))

	assert.ElementsMatch(t, []string{"B", "C"}, source.asked)
	assert.Equal(t, []string{"A", "B", "C"}, []string{rows[0].CarID, rows[1].CarID, rows[2].CarID})
	assert.Equal(t, "GV60", rows[0].CarType)
	assert.Equal(t, "EV6", rows[1].CarType)
	assert.Equal(t, models.UnknownCarType, rows[2].CarType)

	source.asked = nil
	require.NoError(t, AssignMissingCarTypes(context.Background(), rows, source))
	assert.Empty(t, source.asked)
}

func TestDeriveKeepsStoredCarTypes(t *testing.T) {
	outDir := t.TempDir()
	seg := func(car, carType string, start time.Time) models.SegmentSummary {
		return models.SegmentSummary{
			CarID:           car,
			CarType:         carType,
			ChargeType:      models.ChargeFast,
			StartSOC:        numeric.Of(30),
			EndSOC:          numeric.Of(70),
			SOCDelta:        numeric.Of(40),
			StartTime:       start,
			EndTime:         start.Add(20 * time.Minute),
			DurationSeconds: numeric.Of(1200),
			DurationHours:   numeric.Of(1200.0 / 3600),
			Lines:           11,
			PackCurrentAvg:  numeric.Of(100),
			PackVoltAvg:     numeric.Of(650),
		}
	}
	path, err := repository.NewTableWriter(outDir, "stored_").WriteSegments([]models.SegmentSummary{
		seg("V1", "GV60", day0),
		seg("V2", "", day0),
	})
	require.NoError(t, err)

	svc := newTestPipeline(t, t.TempDir(), t.TempDir())
	svc.carTypes = repository.StaticCarTypeSource{Model: models.UnknownCarType}
	result, err := svc.Derive(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, result.Segments, 2)
	assert.Equal(t, "GV60", result.Segments[0].CarType)
	assert.Equal(t, models.UnknownCarType, result.Segments[1].CarType)

	_, ok := result.References.Lookup(models.ReferenceKey{CarType: "GV60", ChargeType: models.ChargeFast})
	assert.True(t, ok)
}
