// Package record models one image's persisted annotation record: image
// metadata, the ordered detections, and any unknown top-level keys that must
// survive a load/save cycle unchanged.
package record

import (
	"encoding/json"

	"github.com/fakeyudi/annotate/internal/geometry"
)

// FormatVersion is the only schema tag this module reads and writes.
const FormatVersion = "1.0"

// UserScore is the score given to boxes drawn by an annotator.
const UserScore = 1.0

// Top-level keys with a fixed meaning. Everything else is passthrough.
const (
	KeyFormatVersion = "format_version"
	KeyImage         = "image"
	KeyDetections    = "detections"
)

// Detection keys with a fixed meaning.
const (
	KeyID    = "id"
	KeyBBox  = "bbox"
	KeyScore = "score"
)

// ImageMeta describes the image a record belongs to.
type ImageMeta struct {
	FileName     string `json:"file_name"`
	RelativePath string `json:"relative_path"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

// Detection is one bounding box with its identity and provenance score.
type Detection struct {
	ID    int
	BBox  geometry.BBox
	Score float64
	// Extra carries unknown per-detection keys written by other producers.
	Extra map[string]json.RawMessage
}

// Record is the in-memory form of a per-image annotation file.
type Record struct {
	FormatVersion string
	Image         ImageMeta
	Detections    []*Detection // insertion order
	// Extra carries unknown top-level keys verbatim.
	Extra map[string]json.RawMessage
}

// New returns an empty record for the given image.
func New(meta ImageMeta) *Record {
	return &Record{
		FormatVersion: FormatVersion,
		Image:         meta,
		Detections:    []*Detection{},
		Extra:         map[string]json.RawMessage{},
	}
}

// MaxID returns the largest detection id and false when there are none.
func (r *Record) MaxID() (int, bool) {
	if len(r.Detections) == 0 {
		return 0, false
	}
	maxID := r.Detections[0].ID
	for _, d := range r.Detections[1:] {
		maxID = max(maxID, d.ID)
	}
	return maxID, true
}
