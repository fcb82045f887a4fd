package report

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"baas/backend/services/degradation-service/internal/models"
)

// BoxPlots renders one PNG per indicator comparing the pre-filter and
// filtered views. Indicators without any values are skipped. It returns the
// written files.
func BoxPlots(dir string, all, filtered []models.DegradationRecord, minDays int) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("report: create plot dir: %w", err)
	}

	var written []string
	for _, ind := range Indicators() {
		views := []struct {
			label  string
			values []float64
		}{
			{"all", ind.Values(all)},
			{fmt.Sprintf(">=%dd", minDays), ind.Values(filtered)},
		}

		p := plot.New()
		p.Title.Text = ind.Name
		p.Y.Label.Text = "% per month"

		var names []string
		for _, v := range views {
			if len(v.values) == 0 {
				continue
			}
			box, err := plotter.NewBoxPlot(vg.Points(40), float64(len(names)), plotter.Values(v.values))
			if err != nil {
				return written, fmt.Errorf("report: box plot %s: %w", ind.Name, err)
			}
			p.Add(box)
			names = append(names, fmt.Sprintf("%s (n=%d)", v.label, len(v.values)))
		}
		if len(names) == 0 {
			continue
		}
		p.NominalX(names...)

		path := filepath.Join(dir, ind.Name+".png")
		if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
			return written, fmt.Errorf("report: save %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
