package repository

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// DefaultCarTypeQuery selects the model of every requested vehicle.
const DefaultCarTypeQuery = `
	SELECT dev_id, car_model
	FROM car_model_map
	WHERE dev_id = ANY($1)
`

// CarTypeSource resolves vehicle ids to car types. Unknown ids are absent from the result.
type CarTypeSource interface {
	Lookup(ctx context.Context, ids []string) (map[string]string, error)
}

// StaticCarTypeSource assigns one model to every vehicle.
type StaticCarTypeSource struct {
	Model string
}

// Lookup implements CarTypeSource.
func (s StaticCarTypeSource) Lookup(_ context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		out[id] = s.Model
	}
	return out, nil
}

// CSVCarTypeSource reads a dev_id,car_model map file once.
type CSVCarTypeSource struct {
	path string

	once    sync.Once
	mapping map[string]string
	err     error
}

// NewCSVCarTypeSource returns a source backed by path.
func NewCSVCarTypeSource(path string) *CSVCarTypeSource {
	return &CSVCarTypeSource{path: path}
}

// Lookup implements CarTypeSource.
func (s *CSVCarTypeSource) Lookup(_ context.Context, ids []string) (map[string]string, error) {
	s.once.Do(func() {
		s.mapping, s.err = loadCarTypeMap(s.path)
	})
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if model, ok := s.mapping[id]; ok {
			out[id] = model
		}
	}
	return out, nil
}

func loadCarTypeMap(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("car types: open map: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("car types: read header: %w", err)
	}
	idCol, modelCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case "dev_id", "car_id":
			idCol = i
		case "car_model", "car_type":
			modelCol = i
		}
	}
	if idCol < 0 || modelCol < 0 {
		return nil, errors.New("car types: map needs dev_id and car_model columns")
	}

	mapping := make(map[string]string)
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("car types: read map: %w", err)
		}
		if idCol >= len(record) || modelCol >= len(record) {
			continue
		}
		id := strings.TrimSpace(record[idCol])
		model := strings.TrimSpace(record[modelCol])
		if id == "" || model == "" {
			continue
		}
		// left join semantics: the first mapping of an id wins
		if _, dup := mapping[id]; !dup {
			mapping[id] = model
		}
	}
	return mapping, nil
}

// PostgresCarTypeSource queries the car model registry.
type PostgresCarTypeSource struct {
	db    *sql.DB
	query string
}

// NewPostgresCarTypeSource returns a source. An empty query uses DefaultCarTypeQuery.
func NewPostgresCarTypeSource(db *sql.DB, query string) *PostgresCarTypeSource {
	if strings.TrimSpace(query) == "" {
		query = DefaultCarTypeQuery
	}
	return &PostgresCarTypeSource{db: db, query: query}
}

// Lookup implements CarTypeSource.
func (r *PostgresCarTypeSource) Lookup(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, r.query, ids)
	if err != nil {
		return nil, fmt.Errorf("car types: query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, model sql.NullString
		if err := rows.Scan(&id, &model); err != nil {
			return nil, fmt.Errorf("car types: scan: %w", err)
		}
		if !id.Valid || !model.Valid {
			continue
		}
		if _, dup := out[id.String]; !dup {
			out[id.String] = model.String
		}
	}
	return out, rows.Err()
}

// CarTypeCache stores resolved car types between runs.
type CarTypeCache interface {
	GetMany(ctx context.Context, ids []string) (map[string]string, error)
	SetMany(ctx context.Context, types map[string]string) error
}

// CachedCarTypeSource answers from the cache and asks next for the misses.
// Cache failures are logged and bypassed.
type CachedCarTypeSource struct {
	cache  CarTypeCache
	next   CarTypeSource
	logger *zap.Logger
}

// NewCachedCarTypeSource wraps next with cache.
func NewCachedCarTypeSource(cache CarTypeCache, next CarTypeSource, logger *zap.Logger) *CachedCarTypeSource {
	return &CachedCarTypeSource{cache: cache, next: next, logger: logger}
}

// Lookup implements CarTypeSource.
func (s *CachedCarTypeSource) Lookup(ctx context.Context, ids []string) (map[string]string, error) {
	hits, err := s.cache.GetMany(ctx, ids)
	if err != nil {
		s.logger.Warn("car type cache read failed", zap.Error(err))
		hits = nil
	}

	out := make(map[string]string, len(ids))
	var misses []string
	for _, id := range ids {
		if model, ok := hits[id]; ok {
			out[id] = model
			continue
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := s.next.Lookup(ctx, misses)
	if err != nil {
		return nil, err
	}
	for id, model := range fetched {
		out[id] = model
	}
	if err := s.cache.SetMany(ctx, fetched); err != nil {
		s.logger.Warn("car type cache write failed", zap.Error(err))
	}
	s.logger.Debug("car types resolved",
		zap.Int("cached", len(ids)-len(misses)),
		zap.Int("fetched", len(fetched)),
	)
	return out, nil
}
