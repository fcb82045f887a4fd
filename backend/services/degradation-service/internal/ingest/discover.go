package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PartsDirSuffix marks directories holding intermediate worker artifacts.
const PartsDirSuffix = "_parts"

// Discover returns the sorted telemetry CSV paths under root. Hidden
// directories, artifact directories and files named with outputPrefix are skipped.
func Discover(root, outputPrefix string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("ingest: data dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("ingest: data dir %s is not a directory", root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return nil
			}
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || strings.HasSuffix(name, PartsDirSuffix)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(name), ".csv") {
			return nil
		}
		if outputPrefix != "" && strings.HasPrefix(name, outputPrefix) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingest: walk %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}
