package models

import "strings"

// ChargeType labels a charging episode.
type ChargeType string

// Charge type constants.
const (
	ChargeFast    ChargeType = "fast"
	ChargeSlow    ChargeType = "slow"
	ChargeUnknown ChargeType = "unknown"
)

// ChargeTypes lists the charge types that carry degradation figures.
var ChargeTypes = []ChargeType{ChargeFast, ChargeSlow}

// ParseChargeType maps a stored label back to a ChargeType; anything else is unknown.
func ParseChargeType(s string) ChargeType {
	switch ChargeType(strings.ToLower(strings.TrimSpace(s))) {
	case ChargeFast:
		return ChargeFast
	case ChargeSlow:
		return ChargeSlow
	default:
		return ChargeUnknown
	}
}

// Known reports whether the charge type is fast or slow.
func (c ChargeType) Known() bool {
	return c == ChargeFast || c == ChargeSlow
}
