package session

import (
	"encoding/json"
	"errors"
	"math"
	"path"

	"github.com/fakeyudi/annotate/internal/geometry"
	"github.com/fakeyudi/annotate/internal/record"
)

var errTrailingData = errors.New("unexpected data after top-level value")

// Repair builds a session from the bytes of a persisted record, validating
// every detection entry and fixing what can be fixed. It never fails:
// unparseable input yields an empty record with ParseFailed set, and invalid
// entries are excluded and reported. width and height must be positive.
func Repair(data []byte, src Source, width, height int) (*Session, *LoadReport) {
	report := &LoadReport{}

	var top map[string]json.RawMessage
	if err := decodeStrict(data, &top); err != nil || top == nil {
		report.ParseFailed = true
		s := emptySession(src, width, height)
		s.Dirty = true
		return s, report
	}

	rec := &record.Record{Extra: map[string]json.RawMessage{}}
	for k, v := range top {
		switch k {
		case record.KeyFormatVersion, record.KeyImage, record.KeyDetections:
		default:
			rec.Extra[k] = v
		}
	}

	if err := decodeStrict(top[record.KeyFormatVersion], &rec.FormatVersion); err != nil || rec.FormatVersion == "" {
		rec.FormatVersion = record.FormatVersion
		report.MetadataRepaired = true
	}
	rec.Image, report.MetadataRepaired = repairImage(top[record.KeyImage], src, width, height, report.MetadataRepaired)
	rec.Detections = repairDetections(top[record.KeyDetections], width, height, report)

	s := newSession(src, rec, width, height)
	s.Dirty = report.NeedsSave()
	return s, report
}

func repairImage(raw json.RawMessage, src Source, width, height int, repaired bool) (record.ImageMeta, bool) {
	var meta record.ImageMeta
	if raw == nil || decodeStrict(raw, &meta) != nil {
		return freshMeta(src, width, height), true
	}
	if meta.Width != width || meta.Height != height {
		meta.Width, meta.Height = width, height
		repaired = true
	}
	return meta, repaired
}

func repairDetections(raw json.RawMessage, width, height int, report *LoadReport) []*record.Detection {
	dets := []*record.Detection{}
	if raw == nil {
		return dets
	}
	var entries []json.RawMessage
	if err := decodeStrict(raw, &entries); err != nil {
		report.MetadataRepaired = true
		return dets
	}

	seen := make(map[int]bool, len(entries))
	for _, entry := range entries {
		v := validateEntry(entry)
		if !v.hasID {
			report.SkippedEntries++
			continue
		}
		if !v.ok() {
			report.reject(v.id, v.reason)
			continue
		}
		// NextID is max+1, so the largest int cannot be kept.
		if v.id == math.MaxInt {
			report.reject(v.id, ReasonIDOutOfRange)
			continue
		}
		if seen[v.id] {
			report.reject(v.id, ReasonDuplicateID)
			continue
		}
		seen[v.id] = true

		clamped := geometry.Clamp(v.det.BBox, width, height)
		if clamped != v.det.BBox {
			report.ClampedCount++
			v.det.BBox = clamped
		}
		dets = append(dets, v.det)
	}
	return dets
}

// PeekImage reads the image metadata of a record without validating the rest.
func PeekImage(data []byte) (record.ImageMeta, bool) {
	var top map[string]json.RawMessage
	if err := decodeStrict(data, &top); err != nil {
		return record.ImageMeta{}, false
	}
	var meta record.ImageMeta
	if raw := top[record.KeyImage]; raw == nil || decodeStrict(raw, &meta) != nil {
		return record.ImageMeta{}, false
	}
	return meta, true
}

func freshMeta(src Source, width, height int) record.ImageMeta {
	return record.ImageMeta{
		FileName:     path.Base(src.RelativePath),
		RelativePath: src.RelativePath,
		Width:        width,
		Height:       height,
	}
}

func emptySession(src Source, width, height int) *Session {
	return newSession(src, record.New(freshMeta(src, width, height)), width, height)
}
