package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"baas/backend/services/degradation-service/internal/ingest"
	"baas/backend/services/degradation-service/internal/models"
	"baas/backend/services/degradation-service/internal/report"
	"baas/backend/services/degradation-service/internal/repository"
)

var (
	ErrNoInputFiles  = errors.New("pipeline: no input files found")
	ErrEmptySegments = errors.New("pipeline: segment table is empty")
	ErrRunInProgress = errors.New("pipeline: run already in progress")
)

// PipelineOptions configures a pipeline run.
type PipelineOptions struct {
	DataDir     string
	Workers     int
	OutputDir   string
	Prefix      string
	KeepParts   bool
	Plots       bool
	DropUnknown bool
	WindowDays  int
	Eligibility Eligibility
}

// PipelineService runs ingestion and the derivation stages.
type PipelineService struct {
	opts     PipelineOptions
	process  ingest.ProcessFunc
	carTypes repository.CarTypeSource
	writer   *repository.TableWriter
	store    *ResultStore
	logger   *zap.Logger

	running    sync.Mutex
	background sync.WaitGroup
}

// NewPipelineService wires a pipeline. store may be nil.
func NewPipelineService(opts PipelineOptions, process ingest.ProcessFunc, carTypes repository.CarTypeSource, store *ResultStore, logger *zap.Logger) *PipelineService {
	return &PipelineService{
		opts:     opts,
		process:  process,
		carTypes: carTypes,
		writer:   repository.NewTableWriter(opts.OutputDir, opts.Prefix),
		store:    store,
		logger:   logger,
	}
}

// PartsDir is where workers leave their intermediate artifacts.
func (s *PipelineService) PartsDir() string {
	return filepath.Join(s.opts.OutputDir, "."+s.opts.Prefix+string(repository.TableSegments)+ingest.PartsDirSuffix)
}

// Run discovers input files, builds the segment table and derives every
// downstream table from it.
func (s *PipelineService) Run(ctx context.Context) (*models.RunResult, error) {
	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()
	return s.run(ctx)
}

// Start launches Run in the background and returns once the run holds the
// pipeline. Failures are logged.
func (s *PipelineService) Start(ctx context.Context) error {
	if !s.running.TryLock() {
		return ErrRunInProgress
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer s.running.Unlock()
		if _, err := s.run(ctx); err != nil {
			s.logger.Error("background run failed", zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until every run launched by Start has returned or ctx is done.
func (s *PipelineService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pipeline: waiting for background run: %w", ctx.Err())
	}
}

func (s *PipelineService) run(ctx context.Context) (*models.RunResult, error) {
	result := s.newResult()
	logger := s.logger.With(zap.String("run_id", result.RunID))

	paths, err := ingest.Discover(s.opts.DataDir, s.opts.Prefix)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoInputFiles, s.opts.DataDir)
	}
	result.Stats.FilesFound = len(paths)
	logger.Info("input files discovered", zap.Int("files", len(paths)), zap.Int("workers", s.opts.Workers))

	partsDir := s.PartsDir()
	if !s.opts.KeepParts {
		defer func() {
			if err := os.RemoveAll(partsDir); err != nil {
				logger.Warn("failed to remove parts dir", zap.String("dir", partsDir), zap.Error(err))
			}
		}()
	}
	outcome, err := ingest.NewPool(s.opts.Workers, partsDir, s.process, logger).Run(ctx, paths)
	if err != nil {
		return nil, err
	}
	result.Stats.FilesFailed = outcome.Failed
	logger.Info("segments merged",
		zap.Int("rows", len(outcome.Rows)),
		zap.Int("parts", outcome.Parts),
		zap.Int("failed_files", outcome.Failed),
		zap.Int("empty_files", outcome.Empty),
	)

	rows := outcome.Rows
	if s.opts.DropUnknown {
		rows = dropUnknown(rows)
	}
	if err := AssignCarTypes(ctx, rows, s.carTypes); err != nil {
		return nil, err
	}
	path, err := s.writer.WriteSegments(rows)
	if err != nil {
		return nil, err
	}
	result.Outputs[string(repository.TableSegments)] = path

	if err := s.derive(logger, result, rows); err != nil {
		return nil, err
	}
	return result, nil
}

// Derive recomputes the downstream tables from an existing segment table.
// Rows without a car type are enriched first; the others keep theirs.
func (s *PipelineService) Derive(ctx context.Context, segmentsPath string) (*models.RunResult, error) {
	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()

	result := s.newResult()
	logger := s.logger.With(zap.String("run_id", result.RunID), zap.String("segments", segmentsPath))

	rows, err := repository.ReadSegments(segmentsPath)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptySegments
	}
	if s.opts.DropUnknown {
		rows = dropUnknown(rows)
	}
	if err := AssignMissingCarTypes(ctx, rows, s.carTypes); err != nil {
		return nil, err
	}
	result.Outputs[string(repository.TableSegments)] = segmentsPath

	if err := s.derive(logger, result, rows); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PipelineService) newResult() *models.RunResult {
	return &models.RunResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Outputs:   make(map[string]string),
	}
}

// derive runs the reference, slope, degradation, monthly and window stages in
// order. Each stage consumes the complete output of the previous one.
func (s *PipelineService) derive(logger *zap.Logger, result *models.RunResult, rows []models.SegmentSummary) error {
	result.Segments = rows
	result.Stats.Segments = len(rows)
	result.Stats.ByChargeType = countByChargeType(rows)
	result.Stats.Vehicles = countVehicles(rows)
	logger.Info("segment table ready",
		zap.Int("segments", len(rows)),
		zap.Int("fast", result.Stats.ByChargeType[models.ChargeFast]),
		zap.Int("slow", result.Stats.ByChargeType[models.ChargeSlow]),
		zap.Int("unknown", result.Stats.ByChargeType[models.ChargeUnknown]),
		zap.Int("vehicles", result.Stats.Vehicles),
	)

	refs := ReferenceCalculator{}.Calculate(rows)
	result.References = refs
	for _, ref := range refs.Values() {
		logger.Debug("reference value",
			zap.String("car_type", ref.CarType),
			zap.String("charge_type", string(ref.ChargeType)),
			zap.String("pack_current_ref", ref.PackCurrent.String()),
			zap.String("modul_temp_ref", ref.ModuleTemp.String()),
		)
	}

	slopes := NewSlopeCalculator(s.opts.Eligibility).Calculate(rows, refs)
	result.Slopes = slopes
	result.Stats.EligibleRows = len(slopes)

	degradation := DegradationCalculator{}.Calculate(slopes)
	monthly := MonthlyNormalizer{}.Normalize(degradation)
	filtered := ObservationWindow{MinDays: s.opts.WindowDays}.Filter(monthly)
	result.Degradation = monthly
	result.Filtered = filtered
	result.Stats.FilteredCount = len(filtered)
	result.Indicators = append(report.Summarize(report.ViewAll, monthly), report.Summarize(report.ViewFiltered, filtered)...)
	result.Periods = report.ObservationPeriods(monthly)
	result.Vehicles = report.VehicleAnalyses(monthly)
	result.Comparison = report.CompareChargeTypes(filtered)

	writes := []struct {
		table repository.Table
		write func() (string, error)
	}{
		{repository.TableSlopes, func() (string, error) { return s.writer.WriteSlopes(slopes) }},
		{repository.TableDegradation, func() (string, error) { return s.writer.WriteDegradation(degradation) }},
		{repository.TableMonthly, func() (string, error) { return s.writer.WriteMonthly(repository.TableMonthly, monthly) }},
		{repository.TableFiltered, func() (string, error) { return s.writer.WriteMonthly(repository.TableFiltered, filtered) }},
		{repository.TableIndicators, func() (string, error) { return s.writer.WriteIndicators(result.Indicators) }},
		{repository.TablePeriods, func() (string, error) { return s.writer.WriteObservationPeriods(result.Periods) }},
		{repository.TableVehicles, func() (string, error) { return s.writer.WriteVehicleAnalysis(result.Vehicles) }},
		{repository.TableComparison, func() (string, error) { return s.writer.WriteComparison(result.Comparison) }},
	}
	for _, w := range writes {
		path, err := w.write()
		if err != nil {
			return err
		}
		result.Outputs[string(w.table)] = path
	}

	if s.opts.Plots {
		files, err := report.BoxPlots(filepath.Join(s.opts.OutputDir, "plots"), monthly, filtered, s.opts.WindowDays)
		if err != nil {
			logger.Warn("plot rendering failed", zap.Error(err))
		}
		for _, f := range files {
			result.Outputs["plot:"+filepath.Base(f)] = f
		}
	}

	result.FinishedAt = time.Now().UTC()
	logger.Info("pipeline finished",
		zap.Int("eligible_rows", len(slopes)),
		zap.Int("vehicles", len(monthly)),
		zap.Int("filtered_vehicles", len(filtered)),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
	)
	if s.store != nil {
		s.store.Put(result)
	}
	return nil
}

func dropUnknown(rows []models.SegmentSummary) []models.SegmentSummary {
	out := rows[:0:0]
	for _, row := range rows {
		if row.ChargeType.Known() {
			out = append(out, row)
		}
	}
	return out
}

func countByChargeType(rows []models.SegmentSummary) map[models.ChargeType]int {
	counts := make(map[models.ChargeType]int)
	for _, row := range rows {
		counts[row.ChargeType]++
	}
	return counts
}

func countVehicles(rows []models.SegmentSummary) int {
	seen := make(map[string]struct{})
	for _, row := range rows {
		seen[row.CarID] = struct{}{}
	}
	return len(seen)
}
