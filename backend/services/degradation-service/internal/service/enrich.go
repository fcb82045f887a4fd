package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"baas/backend/services/degradation-service/internal/models"
	"baas/backend/services/degradation-service/internal/repository"
)

// AssignCarTypes resolves every distinct car id once, defaults misses to
// models.UnknownCarType and stable-sorts rows by (car id, start time).
func AssignCarTypes(ctx context.Context, rows []models.SegmentSummary, source repository.CarTypeSource) error {
	return assignCarTypes(ctx, rows, source, func(models.SegmentSummary) bool { return true })
}

// AssignMissingCarTypes is AssignCarTypes restricted to rows without a car type.
// Rows that already carry one keep it.
func AssignMissingCarTypes(ctx context.Context, rows []models.SegmentSummary, source repository.CarTypeSource) error {
	return assignCarTypes(ctx, rows, source, func(row models.SegmentSummary) bool {
		return strings.TrimSpace(row.CarType) == ""
	})
}

func assignCarTypes(ctx context.Context, rows []models.SegmentSummary, source repository.CarTypeSource, want func(models.SegmentSummary) bool) error {
	seen := make(map[string]struct{})
	var ids []string
	for _, row := range rows {
		if !want(row) {
			continue
		}
		if _, ok := seen[row.CarID]; ok {
			continue
		}
		seen[row.CarID] = struct{}{}
		ids = append(ids, row.CarID)
	}

	if len(ids) > 0 {
		types, err := source.Lookup(ctx, ids)
		if err != nil {
			return fmt.Errorf("pipeline: car types: %w", err)
		}
		for i := range rows {
			if !want(rows[i]) {
				continue
			}
			carType, ok := types[rows[i].CarID]
			if !ok || carType == "" {
				carType = models.UnknownCarType
			}
			rows[i].CarType = carType
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CarID != rows[j].CarID {
			return rows[i].CarID < rows[j].CarID
		}
		return rows[i].StartTime.Before(rows[j].StartTime)
	})
	return nil
}
