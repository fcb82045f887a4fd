// Package classify labels charging segments as fast or slow.
package classify

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"

	"baas/backend/services/degradation-service/internal/models"
	"baas/backend/services/degradation-service/internal/numeric"
)

// Strategy names accepted by New.
const (
	StrategyPathHint         = "path-hint"
	StrategyStatusVote       = "status-vote"
	StrategyCurrentThreshold = "current-threshold"
)

// DefaultCurrentThreshold is the mean pack current, in amperes, at and above which a segment is fast.
const DefaultCurrentThreshold = 50.0

// Classifier assigns a charge type to one segment.
type Classifier interface {
	Classify(seg models.ChargingSegment) models.ChargeType
}

// New selects the strategy used for a whole run.
func New(strategy string, threshold float64) (Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case StrategyPathHint:
		return PathHint{}, nil
	case StrategyStatusVote:
		return StatusVote{}, nil
	case StrategyCurrentThreshold, "":
		if threshold < 0 {
			return nil, fmt.Errorf("classify: negative current threshold %g", threshold)
		}
		return CurrentThreshold{Threshold: threshold}, nil
	default:
		return nil, fmt.Errorf("classify: unknown strategy %q", strategy)
	}
}

// RequiresStatusFlags reports whether strategy reads the connector status columns.
func RequiresStatusFlags(strategy string) bool {
	return strings.EqualFold(strings.TrimSpace(strategy), StrategyStatusVote)
}

// PathHint reads "fast" or "slow" from the segment provenance. "fast" is checked first.
type PathHint struct{}

// Classify implements Classifier.
func (PathHint) Classify(seg models.ChargingSegment) models.ChargeType {
	p := strings.ToLower(seg.Provenance)
	switch {
	case strings.Contains(p, string(models.ChargeFast)):
		return models.ChargeFast
	case strings.Contains(p, string(models.ChargeSlow)):
		return models.ChargeSlow
	default:
		return models.ChargeUnknown
	}
}

// StatusVote counts samples with the fast and slow connector flags set.
type StatusVote struct{}

// Classify implements Classifier.
func (StatusVote) Classify(seg models.ChargingSegment) models.ChargeType {
	var fast, slow int
	for _, s := range seg.Samples {
		if s.FastCharge {
			fast++
		}
		if s.SlowCharge {
			slow++
		}
	}
	switch {
	case fast > slow:
		return models.ChargeFast
	case slow > fast:
		return models.ChargeSlow
	case fast > 0:
		return models.ChargeFast
	default:
		return models.ChargeUnknown
	}
}

// CurrentThreshold compares the segment mean pack current with Threshold.
type CurrentThreshold struct {
	Threshold float64
}

// Classify implements Classifier.
func (c CurrentThreshold) Classify(seg models.ChargingSegment) models.ChargeType {
	currents := make([]numeric.Float, 0, len(seg.Samples))
	for _, s := range seg.Samples {
		currents = append(currents, s.PackCurrent)
	}
	values := numeric.Defined(currents)
	if len(values) == 0 {
		return models.ChargeUnknown
	}
	if stat.Mean(values, nil) >= c.Threshold {
		return models.ChargeFast
	}
	return models.ChargeSlow
}
