package service

import "baas/backend/services/degradation-service/internal/models"

// DefaultWindowDays is the minimum observation span of the high-confidence view.
const DefaultWindowDays = 90

// ObservationWindow keeps vehicles observed for at least MinDays on some charge type.
type ObservationWindow struct {
	MinDays int
}

// Retain reports whether the fast or the slow span reaches MinDays.
func (w ObservationWindow) Retain(rec models.DegradationRecord) bool {
	for _, ct := range models.ChargeTypes {
		if days, ok := rec.For(ct).ElapsedDays(); ok && days >= w.MinDays {
			return true
		}
	}
	return false
}

// Filter returns the retained records in order.
func (w ObservationWindow) Filter(records []models.DegradationRecord) []models.DegradationRecord {
	out := make([]models.DegradationRecord, 0, len(records))
	for _, rec := range records {
		if w.Retain(rec) {
			out = append(out, rec)
		}
	}
	return out
}
