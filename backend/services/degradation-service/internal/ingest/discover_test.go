package ingest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	want := []string{
		writeFile(t, root, "a/car_2.CSV", ""),
		writeFile(t, root, "a/car_10.csv", ""),
		writeFile(t, root, "b.csv", ""),
	}
	writeFile(t, root, ".cache/hidden.csv", "")
	writeFile(t, root, ".baas_segments_parts/part.csv", "")
	writeFile(t, root, "x_parts/part.csv", "")
	writeFile(t, root, "baas_segments.csv", "")
	writeFile(t, root, "notes.txt", "")

	got, err := Discover(root, "baas_")
	require.NoError(t, err)
	assert.Equal(t, []string{want[1], want[0], want[2]}, got)

	_, err = Discover(filepath.Join(root, "missing"), "")
	assert.Error(t, err)
}
