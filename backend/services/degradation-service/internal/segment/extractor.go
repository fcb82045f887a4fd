// Package segment splits a vehicle's telemetry stream into charging episodes.
package segment

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"baas/backend/services/degradation-service/internal/models"
)

// DefaultMaxGap is the largest gap between consecutive charging samples of one episode.
const DefaultMaxGap = 5 * time.Minute

// MinSamples is the smallest episode kept; shorter runs are noise.
const MinSamples = 2

// Mode selects how a file's samples are grouped into episodes.
type Mode string

const (
	// ModeActivity filters on the activity tag and splits on time gaps.
	ModeActivity Mode = "activity"
	// ModeWholeFile treats every sample of a file as a single episode.
	ModeWholeFile Mode = "whole-file"
)

// ParseMode validates a configured mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeActivity:
		return ModeActivity, nil
	case ModeWholeFile, "wholefile", "file":
		return ModeWholeFile, nil
	default:
		return "", fmt.Errorf("segment: unknown mode %q", s)
	}
}

// Extractor produces charging segments from samples of one vehicle.
type Extractor struct {
	Mode   Mode
	MaxGap time.Duration
}

// NewExtractor returns an extractor with the default gap.
func NewExtractor(mode Mode) *Extractor {
	return &Extractor{Mode: mode, MaxGap: DefaultMaxGap}
}

// Extract returns the segments of samples in time order. Samples may arrive in
// any order; timestamp ties keep their input order. The input slice is not modified.
func (e *Extractor) Extract(samples []models.TelemetrySample) []models.ChargingSegment {
	if e.Mode == ModeWholeFile {
		return e.wholeFile(samples)
	}

	charging := make([]models.TelemetrySample, 0, len(samples))
	for _, s := range samples {
		if strings.Contains(s.Kind, models.ChargingKind) {
			charging = append(charging, s)
		}
	}
	sortByTime(charging)

	maxGap := e.MaxGap
	if maxGap <= 0 {
		maxGap = DefaultMaxGap
	}

	var (
		segments []models.ChargingSegment
		current  []models.TelemetrySample
		boundary int
	)
	flush := func() {
		if len(current) >= MinSamples {
			segments = append(segments, models.ChargingSegment{Index: boundary, Samples: current})
		}
		current = nil
	}
	for i, s := range charging {
		if i == 0 || s.CollectedAt.Sub(charging[i-1].CollectedAt) > maxGap {
			if i > 0 {
				flush()
			}
			boundary++
		}
		current = append(current, s)
	}
	flush()
	return segments
}

func (e *Extractor) wholeFile(samples []models.TelemetrySample) []models.ChargingSegment {
	if len(samples) < MinSamples {
		return nil
	}
	ordered := append([]models.TelemetrySample(nil), samples...)
	sortByTime(ordered)
	return []models.ChargingSegment{{Index: 1, Samples: ordered}}
}

func sortByTime(samples []models.TelemetrySample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].CollectedAt.Before(samples[j].CollectedAt)
	})
}
