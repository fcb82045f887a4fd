// Package ingest reads raw telemetry files and turns each into segment summaries.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"baas/backend/services/degradation-service/internal/models"
	"baas/backend/services/degradation-service/internal/numeric"
)

// Telemetry column names.
const (
	ColDeviceID    = "dev_id"
	ColCollectedAt = "coll_dt"
	ColSOC         = "b_soc"
	ColPackCurrent = "b_pack_current"
	ColPackVoltage = "b_pack_volt"
	ColKind        = "kind"
	ColFastStatus  = "b_fast_charg_con_sts"
	ColSlowStatus  = "b_slow_charg_con_sts"
)

var (
	ErrMissingColumns = errors.New("ingest: missing required columns")
	ErrEmptyFile      = errors.New("ingest: empty file")
	ErrTimestamp      = errors.New("ingest: unparseable timestamp")
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006/01/02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ModuleTempColumn returns the column of module i (zero based).
func ModuleTempColumn(i int) string {
	return fmt.Sprintf("b_modul_%d_temp", i+1)
}

// Reader decodes telemetry CSV files.
type Reader struct {
	// RequireKind demands the activity tag column.
	RequireKind bool
	// RequireStatusFlags demands the fast/slow connector status columns.
	RequireStatusFlags bool
}

// ReadFile opens path and decodes it.
func (r Reader) ReadFile(path string) ([]models.TelemetrySample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open %s: %w", path, err)
	}
	defer f.Close()
	return r.Read(f)
}

// Read decodes every row of src. Blank timestamps drop the row; any other
// unparseable timestamp rejects the whole input.
func (r Reader) Read(src io.Reader) ([]models.TelemetrySample, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("ingest: read header: %w", err)
	}
	cols, err := r.columns(header)
	if err != nil {
		return nil, err
	}

	var samples []models.TelemetrySample
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: read line %d: %w", line, err)
		}

		raw := cols.get(record, ColCollectedAt)
		if strings.TrimSpace(raw) == "" {
			continue
		}
		ts, err := ParseTimestamp(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %q", ErrTimestamp, line, raw)
		}

		s := models.TelemetrySample{
			DeviceID:    strings.TrimSpace(cols.get(record, ColDeviceID)),
			CollectedAt: ts,
			SOC:         numeric.Parse(cols.get(record, ColSOC)),
			PackCurrent: numeric.Parse(cols.get(record, ColPackCurrent)),
			PackVoltage: numeric.Parse(cols.get(record, ColPackVoltage)),
			Kind:        cols.get(record, ColKind),
			FastCharge:  ParseFlag(cols.get(record, ColFastStatus)),
			SlowCharge:  ParseFlag(cols.get(record, ColSlowStatus)),
		}
		for i := range s.ModuleTemps {
			s.ModuleTemps[i] = numeric.Parse(cols.get(record, ModuleTempColumn(i)))
		}
		samples = append(samples, s)
	}
	if len(samples) == 0 {
		return nil, ErrEmptyFile
	}
	return samples, nil
}

func (r Reader) required() []string {
	cols := []string{ColDeviceID, ColCollectedAt, ColSOC}
	for i := 0; i < models.ModuleCount; i++ {
		cols = append(cols, ModuleTempColumn(i))
	}
	cols = append(cols, ColPackCurrent, ColPackVoltage)
	if r.RequireKind {
		cols = append(cols, ColKind)
	}
	if r.RequireStatusFlags {
		cols = append(cols, ColFastStatus, ColSlowStatus)
	}
	return cols
}

type columnIndex map[string]int

func (r Reader) columns(header []string) (columnIndex, error) {
	idx := make(columnIndex, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	var missing []string
	for _, col := range r.required() {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return idx, nil
}

func (c columnIndex) get(record []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

// ParseTimestamp accepts the timestamp layouts seen in telemetry exports.
// Values without a zone are taken as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var lastErr error
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, raw)
		if err == nil {
			return ts.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ParseFlag reads a connector status cell. Only true and 1 count as set.
func ParseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "1.0":
		return true
	default:
		return false
	}
}
