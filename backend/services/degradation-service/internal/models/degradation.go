package models

import (
	"fmt"
	"time"

	"baas/backend/services/degradation-service/internal/numeric"
)

// DaysPerMonth converts elapsed days to months.
const DaysPerMonth = 30.0

// SlopeTiers is the number of successively corrected charge-rate metrics.
const SlopeTiers = 3

// SlopeSet holds raw, current-corrected and current+temperature-corrected charge rates.
type SlopeSet [SlopeTiers]numeric.Float

// SlopeRecord is an eligible segment summary with its slopes.
type SlopeRecord struct {
	SegmentSummary
	Slopes SlopeSet `json:"slopes"`
}

// ChargeDegradation is the first-vs-last comparison of one charge type.
type ChargeDegradation struct {
	FirstDate     *time.Time                `json:"first_charging_date"`
	LastDate      *time.Time                `json:"last_charging_date"`
	Rates         [SlopeTiers]numeric.Float `json:"degradation_rate"`
	RatesPerMonth [SlopeTiers]numeric.Float `json:"degradation_rate_per_month"`
}

// Observed reports whether both dates are present.
func (c ChargeDegradation) Observed() bool {
	return c.FirstDate != nil && c.LastDate != nil
}

// ElapsedDays returns whole days between first and last date, floored like a
// calendar timedelta. ok is false when either date is missing.
func (c ChargeDegradation) ElapsedDays() (days int, ok bool) {
	if !c.Observed() {
		return 0, false
	}
	d := c.LastDate.Sub(*c.FirstDate)
	days = int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days, true
}

// ObservedMonths is whole elapsed days over DaysPerMonth. A zero span is
// zero months; missing dates are undefined.
func (c ChargeDegradation) ObservedMonths() numeric.Float {
	days, ok := c.ElapsedDays()
	if !ok {
		return numeric.Undefined()
	}
	return numeric.Of(float64(days) / DaysPerMonth)
}

// DegradationRecord is the per-vehicle row of the degradation tables.
type DegradationRecord struct {
	CarID   string            `json:"car_id"`
	CarType string            `json:"car_type"`
	Fast    ChargeDegradation `json:"fast"`
	Slow    ChargeDegradation `json:"slow"`
}

// For returns the half of the record matching charge type.
func (r *DegradationRecord) For(ct ChargeType) *ChargeDegradation {
	switch ct {
	case ChargeFast:
		return &r.Fast
	case ChargeSlow:
		return &r.Slow
	default:
		return nil
	}
}

// PerMonthIndicator names the per-month rate column of a charge type and slope tier (1 based).
func PerMonthIndicator(ct ChargeType, tier int) string {
	return fmt.Sprintf("%s_degradation_rate_%d_per_month", ct, tier)
}
