// Package workspace ties a dataset on disk to the session engine: it lists
// the images under the input root, maps each one to its record under the
// output root, and drives the save-then-switch protocol between images.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fakeyudi/annotate/internal/session"
)

// RecordExt is the extension of per-image annotation records.
const RecordExt = ".json"

// ErrNoImages is returned when the input root holds no matching images.
var ErrNoImages = errors.New("no images found")

// Entry is one image of the dataset.
type Entry = session.Source

// ListImages returns the images under inputDir whose extension matches one of
// exts (case-insensitive), sorted by relative path. Subdirectories are only
// searched when recursive is set.
func ListImages(inputDir, outputDir string, exts []string, recursive bool) ([]Entry, error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input %s is not a directory", inputDir)
	}

	allowed := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = true
	}

	var entries []Entry
	err = filepath.WalkDir(inputDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != inputDir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !allowed[strings.ToLower(filepath.Ext(p))] {
			return nil
		}
		if !d.Type().IsRegular() {
			// Follow symlinks; skip anything that is not a file in the end.
			if info, err := os.Stat(p); err != nil || !info.Mode().IsRegular() {
				return nil
			}
		}
		rel, err := filepath.Rel(inputDir, p)
		if err != nil {
			return err
		}
		recordPath, err := MapOutputPath(inputDir, outputDir, p)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{
			ImagePath:    p,
			RelativePath: filepath.ToSlash(rel),
			RecordPath:   recordPath,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.RelativePath, b.RelativePath)
	})
	return entries, nil
}

// MapOutputPath returns the record path for imagePath: the same relative
// location under outputDir with the extension replaced by RecordExt.
func MapOutputPath(inputDir, outputDir, imagePath string) (string, error) {
	rel, err := filepath.Rel(inputDir, imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to map %s to the output directory: %w", imagePath, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("image %s is outside the input directory %s", imagePath, inputDir)
	}
	return filepath.Join(outputDir, strings.TrimSuffix(rel, filepath.Ext(rel))+RecordExt), nil
}

// Filter returns the indexes of entries whose relative path contains query,
// ignoring case and surrounding whitespace. An empty query matches all.
func Filter(entries []Entry, query string) []int {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]int, 0, len(entries))
	for i, e := range entries {
		if q == "" || strings.Contains(strings.ToLower(e.RelativePath), q) {
			out = append(out, i)
		}
	}
	return out
}
