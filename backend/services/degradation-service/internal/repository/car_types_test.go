package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStaticCarTypeSource(t *testing.T) {
	got, err := StaticCarTypeSource{Model: "GV60"}.Lookup(context.Background(), []string{"V1", "V2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"V1": "GV60", "V2": "GV60"}, got)
}

func TestCSVCarTypeSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "car_model_map_standardized.csv")
	content := "\ufeffdev_id,car_model,region\nV1,IONIQ5,kr\nV2,EV6,kr\nV1,GV60,kr\nV3,,kr\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	src := NewCSVCarTypeSource(path)
	got, err := src.Lookup(context.Background(), []string{"V1", "V3", "V9"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"V1": "IONIQ5"}, got)
}

func TestCSVCarTypeSourceBadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,model\nV1,GV60\n"), 0o644))

	_, err := NewCSVCarTypeSource(path).Lookup(context.Background(), []string{"V1"})
	assert.Error(t, err)
}

type fakeCache struct {
	entries map[string]string
	getErr  error
	sets    int
}

func (c *fakeCache) GetMany(_ context.Context, ids []string) (map[string]string, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	out := make(map[string]string)
	for _, id := range ids {
		if v, ok := c.entries[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (c *fakeCache) SetMany(_ context.Context, types map[string]string) error {
	c.sets++
	for k, v := range types {
		c.entries[k] = v
	}
	return nil
}

type countingSource struct {
	mapping map[string]string
	asked   [][]string
}

func (s *countingSource) Lookup(_ context.Context, ids []string) (map[string]string, error) {
	s.asked = append(s.asked, ids)
	out := make(map[string]string)
	for _, id := range ids {
		if v, ok := s.mapping[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func TestCachedCarTypeSource(t *testing.T) {
	cache := &fakeCache{entries: map[string]string{"V1": "GV60"}}
	next := &countingSource{mapping: map[string]string{"V1": "WRONG", "V2": "EV6"}}
	src := NewCachedCarTypeSource(cache, next, zap.NewNop())

	got, err := src.Lookup(context.Background(), []string{"V1", "V2", "V3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"V1": "GV60", "V2": "EV6"}, got)
	assert.Equal(t, [][]string{{"V2", "V3"}}, next.asked)
	assert.Equal(t, "EV6", cache.entries["V2"])

	got, err = src.Lookup(context.Background(), []string{"V1", "V2"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Len(t, next.asked, 1, "fully cached lookups must not reach the source")
}

func TestCachedCarTypeSourceCacheDown(t *testing.T) {
	cache := &fakeCache{entries: map[string]string{}, getErr: errors.New("connection refused")}
	next := &countingSource{mapping: map[string]string{"V1": "GV60"}}

	got, err := NewCachedCarTypeSource(cache, next, zap.NewNop()).Lookup(context.Background(), []string{"V1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"V1": "GV60"}, got)
}
