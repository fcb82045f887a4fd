package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"baas/backend/services/degradation-service/internal/ingest"
	"baas/backend/services/degradation-service/internal/models"
	"baas/backend/services/degradation-service/internal/numeric"
)

// TimeLayout formats timestamps in every written table.
const TimeLayout = "2006-01-02 15:04:05.999999999"

// Table names a flat output file.
type Table string

// Tables written by a run.
const (
	TableSegments    Table = "segments"
	TableSlopes      Table = "slopes"
	TableDegradation Table = "degradation"
	TableMonthly     Table = "monthly"
	TableFiltered    Table = "filtered"
	TableIndicators  Table = "indicators"
	TablePeriods     Table = "observation_periods"
	TableVehicles    Table = "vehicle_analysis"
	TableComparison  Table = "fast_vs_slow"
)

// ErrMissingColumns is returned when a stored table lacks columns needed to read it back.
var ErrMissingColumns = errors.New("tables: missing required columns")

var segmentColumns = func() []string {
	cols := []string{"car_id", "charge_type", "start_soc", "end_soc", "soc_quan", "start_time", "end_time", "duration", "duration_hour", "lines"}
	for i := 1; i <= models.ModuleCount; i++ {
		cols = append(cols, fmt.Sprintf("b_modul_%d_temp_avg", i))
	}
	return append(cols, "b_pack_current_avg", "b_pack_volt_avg", "source_path", "car_type")
}()

// TableWriter writes tables atomically under one directory.
type TableWriter struct {
	dir    string
	prefix string
}

// NewTableWriter returns a writer for dir. Every file name starts with prefix.
func NewTableWriter(dir, prefix string) *TableWriter {
	return &TableWriter{dir: dir, prefix: prefix}
}

// Dir returns the output directory.
func (w *TableWriter) Dir() string {
	return w.dir
}

// Path returns the file of table.
func (w *TableWriter) Path(table Table) string {
	return filepath.Join(w.dir, w.prefix+string(table)+".csv")
}

// WriteSegments writes the segment summary table.
func (w *TableWriter) WriteSegments(rows []models.SegmentSummary) (string, error) {
	return w.write(TableSegments, segmentColumns, len(rows), func(i int) []string {
		return segmentRecord(rows[i])
	})
}

// WriteSlopes writes the slope-augmented table. Slopes land in the columns
// of the row's charge type; the others stay empty.
func (w *TableWriter) WriteSlopes(rows []models.SlopeRecord) (string, error) {
	header := append([]string(nil), segmentColumns...)
	for _, ct := range models.ChargeTypes {
		for tier := 1; tier <= models.SlopeTiers; tier++ {
			header = append(header, fmt.Sprintf("%s_slope_%d", ct, tier))
		}
	}
	return w.write(TableSlopes, header, len(rows), func(i int) []string {
		row := rows[i]
		record := segmentRecord(row.SegmentSummary)
		for _, ct := range models.ChargeTypes {
			for tier := 0; tier < models.SlopeTiers; tier++ {
				cell := ""
				if row.ChargeType == ct {
					cell = row.Slopes[tier].String()
				}
				record = append(record, cell)
			}
		}
		return record
	})
}

// WriteDegradation writes the per-vehicle degradation table.
func (w *TableWriter) WriteDegradation(records []models.DegradationRecord) (string, error) {
	return w.write(TableDegradation, degradationColumns(false), len(records), func(i int) []string {
		return degradationRecord(records[i], false)
	})
}

// WriteMonthly writes a monthly-normalized view, either TableMonthly or TableFiltered.
func (w *TableWriter) WriteMonthly(table Table, records []models.DegradationRecord) (string, error) {
	return w.write(table, degradationColumns(true), len(records), func(i int) []string {
		return degradationRecord(records[i], true)
	})
}

// WriteIndicators writes the indicator summary statistics.
func (w *TableWriter) WriteIndicators(stats []models.IndicatorStats) (string, error) {
	header := []string{"indicator", "view", "mean", "std", "median", "n"}
	return w.write(TableIndicators, header, len(stats), func(i int) []string {
		s := stats[i]
		return []string{s.Indicator, s.View, s.Mean.String(), s.StdDev.String(), s.Median.String(), strconv.Itoa(s.N)}
	})
}

// WriteObservationPeriods writes one row per observed (vehicle, charge type).
func (w *TableWriter) WriteObservationPeriods(periods []models.ObservationPeriod) (string, error) {
	header := []string{"car_id", "charge_type", "observed_months", fmt.Sprintf("degradation_rate_%d_per_month", models.SlopeTiers)}
	return w.write(TablePeriods, header, len(periods), func(i int) []string {
		p := periods[i]
		return []string{p.CarID, string(p.ChargeType), p.Months.String(), p.RatePerMonth.String()}
	})
}

// WriteVehicleAnalysis writes the per-vehicle top-tier summary.
func (w *TableWriter) WriteVehicleAnalysis(vehicles []models.VehicleAnalysis) (string, error) {
	header := []string{"car_id", "car_type"}
	for _, ct := range models.ChargeTypes {
		header = append(header,
			fmt.Sprintf("%s_observed_months", ct),
			fmt.Sprintf("%s_degradation_rate_%d", ct, models.SlopeTiers),
			models.PerMonthIndicator(ct, models.SlopeTiers),
		)
	}
	return w.write(TableVehicles, header, len(vehicles), func(i int) []string {
		v := vehicles[i]
		return []string{
			v.CarID, v.CarType,
			v.Fast.Months.String(), v.Fast.Rate.String(), v.Fast.RatePerMonth.String(),
			v.Slow.Months.String(), v.Slow.Rate.String(), v.Slow.RatePerMonth.String(),
		}
	})
}

// WriteComparison writes the fast against slow comparison.
func (w *TableWriter) WriteComparison(rows []models.ChargeComparison) (string, error) {
	header := []string{"charge_type", "mean", "std", "median", "min", "max", "n"}
	return w.write(TableComparison, header, len(rows), func(i int) []string {
		c := rows[i]
		return []string{string(c.ChargeType), c.Mean.String(), c.StdDev.String(), c.Median.String(), c.Min.String(), c.Max.String(), strconv.Itoa(c.N)}
	})
}

// write renders a table to a temp file and renames it into place, so a failed
// write never leaves a truncated table behind.
func (w *TableWriter) write(table Table, header []string, n int, record func(i int) []string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("tables: create output dir: %w", err)
	}
	path := w.Path(table)
	tmp, err := os.CreateTemp(w.dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("tables: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	if err := cw.Write(header); err != nil {
		tmp.Close()
		return "", fmt.Errorf("tables: write %s: %w", table, err)
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(record(i)); err != nil {
			tmp.Close()
			return "", fmt.Errorf("tables: write %s: %w", table, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("tables: write %s: %w", table, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("tables: close %s: %w", table, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("tables: rename %s: %w", table, err)
	}
	return path, nil
}

func segmentRecord(s models.SegmentSummary) []string {
	record := []string{
		s.CarID,
		string(s.ChargeType),
		s.StartSOC.String(),
		s.EndSOC.String(),
		s.SOCDelta.String(),
		formatTime(s.StartTime),
		formatTime(s.EndTime),
		s.DurationSeconds.String(),
		s.DurationHours.String(),
		strconv.Itoa(s.Lines),
	}
	for _, v := range s.ModuleTempAvg {
		record = append(record, v.String())
	}
	return append(record, s.PackCurrentAvg.String(), s.PackVoltAvg.String(), s.SourcePath, s.CarType)
}

func degradationColumns(monthly bool) []string {
	cols := []string{"car_id", "car_type"}
	for _, ct := range models.ChargeTypes {
		cols = append(cols, fmt.Sprintf("first_%s_charging_date", ct), fmt.Sprintf("last_%s_charging_date", ct))
		for tier := 1; tier <= models.SlopeTiers; tier++ {
			cols = append(cols, fmt.Sprintf("%s_degradation_rate_%d", ct, tier))
		}
	}
	if monthly {
		cols = append(cols, PerMonthColumns()...)
	}
	return cols
}

// PerMonthColumns names the six per-month indicators, fast before slow.
func PerMonthColumns() []string {
	var cols []string
	for _, ct := range models.ChargeTypes {
		for tier := 1; tier <= models.SlopeTiers; tier++ {
			cols = append(cols, models.PerMonthIndicator(ct, tier))
		}
	}
	return cols
}

func degradationRecord(r models.DegradationRecord, monthly bool) []string {
	record := []string{r.CarID, r.CarType}
	for _, ct := range models.ChargeTypes {
		c := r.For(ct)
		record = append(record, formatDate(c.FirstDate), formatDate(c.LastDate))
		for _, v := range c.Rates {
			record = append(record, v.String())
		}
	}
	if monthly {
		for _, ct := range models.ChargeTypes {
			for _, v := range r.For(ct).RatesPerMonth {
				record = append(record, v.String())
			}
		}
	}
	return record
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

// ReadSegments loads a segment summary table written by WriteSegments or an
// equivalent export. Rows with an unparseable start time are rejected.
func ReadSegments(path string) ([]models.SegmentSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tables: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("tables: read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	var missing []string
	for _, col := range []string{"car_id", "start_soc", "soc_quan", "start_time", "duration", "duration_hour", "b_pack_current_avg"} {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	var rows []models.SegmentSummary
	for line := 2; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tables: read line %d: %w", line, err)
		}
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}

		row := models.SegmentSummary{
			CarID:           strings.TrimSpace(get("car_id")),
			CarType:         strings.TrimSpace(get("car_type")),
			ChargeType:      models.ParseChargeType(get("charge_type")),
			StartSOC:        numeric.Parse(get("start_soc")),
			EndSOC:          numeric.Parse(get("end_soc")),
			SOCDelta:        numeric.Parse(get("soc_quan")),
			DurationSeconds: numeric.Parse(get("duration")),
			DurationHours:   numeric.Parse(get("duration_hour")),
			PackCurrentAvg:  numeric.Parse(get("b_pack_current_avg")),
			PackVoltAvg:     numeric.Parse(get("b_pack_volt_avg")),
			SourcePath:      get("source_path"),
		}
		if row.StartTime, err = ingest.ParseTimestamp(get("start_time")); err != nil {
			return nil, fmt.Errorf("tables: line %d: start_time: %w", line, err)
		}
		if raw := strings.TrimSpace(get("end_time")); raw != "" {
			if row.EndTime, err = ingest.ParseTimestamp(raw); err != nil {
				return nil, fmt.Errorf("tables: line %d: end_time: %w", line, err)
			}
		}
		if lines := strings.TrimSpace(get("lines")); lines != "" {
			if v, err := strconv.ParseFloat(lines, 64); err == nil {
				row.Lines = int(v)
			}
		}
		for m := range row.ModuleTempAvg {
			row.ModuleTempAvg[m] = numeric.Parse(get(fmt.Sprintf("b_modul_%d_temp_avg", m+1)))
		}
		rows = append(rows, row)
	}
	return rows, nil
}
