package models

import (
	"sort"

	"baas/backend/services/degradation-service/internal/numeric"
)

// ReferenceKey groups segment summaries for population baselines.
type ReferenceKey struct {
	CarType    string     `json:"car_type"`
	ChargeType ChargeType `json:"charge_type"`
}

// ReferenceValue is the population baseline of one (car type, charge type) group.
type ReferenceValue struct {
	ReferenceKey
	PackCurrent numeric.Float `json:"pack_current_ref"`
	ModuleTemp  numeric.Float `json:"modul_temp_ref"`
	Rows        int           `json:"rows"`
}

// ReferenceTable is an immutable lookup built once per run.
type ReferenceTable struct {
	values map[ReferenceKey]ReferenceValue
}

// NewReferenceTable copies values into a new table.
func NewReferenceTable(values []ReferenceValue) *ReferenceTable {
	t := &ReferenceTable{values: make(map[ReferenceKey]ReferenceValue, len(values))}
	for _, v := range values {
		t.values[v.ReferenceKey] = v
	}
	return t
}

// Lookup returns the baseline for key. A nil table has no entries.
func (t *ReferenceTable) Lookup(key ReferenceKey) (ReferenceValue, bool) {
	if t == nil {
		return ReferenceValue{}, false
	}
	v, ok := t.values[key]
	return v, ok
}

// Len returns the number of groups.
func (t *ReferenceTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.values)
}

// Values returns the groups ordered by car type then charge type.
func (t *ReferenceTable) Values() []ReferenceValue {
	if t == nil {
		return nil
	}
	out := make([]ReferenceValue, 0, len(t.values))
	for _, v := range t.values {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CarType != out[j].CarType {
			return out[i].CarType < out[j].CarType
		}
		return out[i].ChargeType < out[j].ChargeType
	})
	return out
}
