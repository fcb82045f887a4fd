package ingest

import (
	"fmt"

	"baas/backend/services/degradation-service/internal/classify"
	"baas/backend/services/degradation-service/internal/models"
	"baas/backend/services/degradation-service/internal/segment"
)

// Summarizer reduces one segment to its summary row.
type Summarizer interface {
	Summarize(seg models.ChargingSegment) models.SegmentSummary
}

// FileProcessor runs extraction, classification and summarisation for one file.
type FileProcessor struct {
	reader     Reader
	extractor  *segment.Extractor
	classifier classify.Classifier
	summarizer Summarizer
}

// NewFileProcessor builds a processor. The reader requires the activity tag
// unless the extractor works on whole files.
func NewFileProcessor(extractor *segment.Extractor, classifier classify.Classifier, summarizer Summarizer, requireStatusFlags bool) *FileProcessor {
	return &FileProcessor{
		reader: Reader{
			RequireKind:        extractor.Mode != segment.ModeWholeFile,
			RequireStatusFlags: requireStatusFlags,
		},
		extractor:  extractor,
		classifier: classifier,
		summarizer: summarizer,
	}
}

// Process returns the summaries of path in segment order. Samples of several
// vehicles in one file are segmented per vehicle in order of first appearance.
func (p *FileProcessor) Process(path string) ([]models.SegmentSummary, error) {
	samples, err := p.reader.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var (
		rows []models.SegmentSummary
		n    int
	)
	for _, vehicle := range groupByDevice(samples) {
		for _, seg := range p.extractor.Extract(vehicle) {
			seg.Provenance = fmt.Sprintf("%s#segment_%d", path, n)
			n++
			row := p.summarizer.Summarize(seg)
			row.ChargeType = p.classifier.Classify(seg)
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func groupByDevice(samples []models.TelemetrySample) [][]models.TelemetrySample {
	order := make(map[string]int)
	var groups [][]models.TelemetrySample
	for _, s := range samples {
		i, ok := order[s.DeviceID]
		if !ok {
			i = len(groups)
			order[s.DeviceID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], s)
	}
	return groups
}
