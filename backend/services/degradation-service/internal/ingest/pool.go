package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"baas/backend/services/degradation-service/internal/models"
)

// ErrNoResults is returned when no file produced a single summary row.
var ErrNoResults = errors.New("pipeline: no usable intermediate results")

// ProcessFunc turns one input file into summary rows.
type ProcessFunc func(path string) ([]models.SegmentSummary, error)

// part is the artifact one task leaves in the parts directory.
type part struct {
	Index int                     `json:"index"`
	Path  string                  `json:"path"`
	Rows  []models.SegmentSummary `json:"rows"`
}

// Outcome reports what the fan-out produced.
type Outcome struct {
	Rows   []models.SegmentSummary
	Parts  int
	Failed int
	Empty  int
}

// Pool processes files concurrently and merges their artifacts by input index.
type Pool struct {
	workers  int
	partsDir string
	process  ProcessFunc
	logger   *zap.Logger
}

// NewPool returns a pool writing artifacts under partsDir. workers <= 0 uses the CPU count.
func NewPool(workers int, partsDir string, process ProcessFunc, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{
		workers:  workers,
		partsDir: partsDir,
		process:  process,
		logger:   logger,
	}
}

// PartPath names the artifact of input index idx.
func (p *Pool) PartPath(idx int) string {
	return filepath.Join(p.partsDir, fmt.Sprintf("part_%07d.msgpack", idx))
}

// Run processes paths. A failing file is logged and contributes no rows; only
// context cancellation, an unusable parts directory or an empty merge fail the run.
func (p *Pool) Run(ctx context.Context, paths []string) (*Outcome, error) {
	if err := os.MkdirAll(p.partsDir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: create parts dir: %w", err)
	}

	artifacts := make([]string, len(paths))
	failed := make([]bool, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for idx, path := range paths {
		idx, path := idx, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := p.process(path)
			if err != nil {
				p.logger.Warn("skip input file", zap.String("path", path), zap.Int("index", idx), zap.Error(err))
				failed[idx] = true
				return nil
			}
			if len(rows) == 0 {
				p.logger.Debug("no charging segments", zap.String("path", path))
				return nil
			}
			partPath := p.PartPath(idx)
			if err := writePart(partPath, part{Index: idx, Path: path, Rows: rows}); err != nil {
				p.logger.Error("write part failed", zap.String("path", path), zap.Error(err))
				failed[idx] = true
				return nil
			}
			p.logger.Info("file processed", zap.String("path", filepath.Base(path)), zap.Int("segments", len(rows)))
			artifacts[idx] = partPath
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Outcome{}
	for idx := range paths {
		switch {
		case failed[idx]:
			out.Failed++
		case artifacts[idx] == "":
			out.Empty++
		}
	}

	rows, parts, err := Merge(artifacts)
	if err != nil {
		return nil, err
	}
	out.Rows = rows
	out.Parts = parts
	return out, nil
}

// Merge reads part artifacts ordered by input index and concatenates their rows.
// Empty entries are ignored. Zero usable parts is ErrNoResults.
func Merge(partPaths []string) ([]models.SegmentSummary, int, error) {
	var parts []part
	for _, path := range partPaths {
		if path == "" {
			continue
		}
		pt, err := readPart(path)
		if err != nil {
			return nil, 0, fmt.Errorf("pipeline: read part %s: %w", path, err)
		}
		parts = append(parts, pt)
	}
	if len(parts) == 0 {
		return nil, 0, ErrNoResults
	}
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].Index < parts[j].Index })

	var rows []models.SegmentSummary
	for _, pt := range parts {
		for _, row := range pt.Rows {
			row.StartTime = row.StartTime.UTC()
			row.EndTime = row.EndTime.UTC()
			rows = append(rows, row)
		}
	}
	return rows, len(parts), nil
}

func writePart(path string, pt part) error {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(pt); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readPart(path string) (part, error) {
	f, err := os.Open(path)
	if err != nil {
		return part{}, err
	}
	defer f.Close()

	dec := msgpack.NewDecoder(f)
	dec.SetCustomStructTag("json")
	var pt part
	if err := dec.Decode(&pt); err != nil {
		return part{}, err
	}
	return pt, nil
}
