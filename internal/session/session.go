// Package session implements the annotation session engine: loading and
// repairing a per-image record, the mutation API over its detections, and
// atomic persistence back to disk.
package session

import (
	"crypto/sha256"
	"errors"

	"github.com/google/uuid"

	"github.com/fakeyudi/annotate/internal/record"
)

// ErrUnknownDetection is returned when a detection handle does not belong to
// the session it is used with.
var ErrUnknownDetection = errors.New("detection does not belong to this session")

// Source locates one image and its annotation record on disk.
type Source struct {
	ImagePath    string // absolute or cwd-relative image path
	RelativePath string // image path relative to the input root, '/'-separated
	RecordPath   string // per-image JSON path under the output root
}

// Session is the live, mutable state for one open image. It is the exclusive
// owner of its detections; views refer to them by id and resolve through
// Lookup.
type Session struct {
	Handle uuid.UUID // correlates log lines for one open/close cycle
	Source Source
	Width  int
	Height int
	Record *record.Record
	NextID int
	Dirty  bool

	diskDigest  [sha256.Size]byte
	subscribers []subscriber
	nextSubID   int
}

func newSession(src Source, rec *record.Record, width, height int) *Session {
	s := &Session{
		Handle: uuid.New(),
		Source: src,
		Width:  width,
		Height: height,
		Record: rec,
	}
	if maxID, ok := rec.MaxID(); ok {
		s.NextID = maxID + 1
	}
	return s
}

// Detections returns the detections in insertion order. The slice is a copy;
// the pointed-to detections are the canonical ones.
func (s *Session) Detections() []*record.Detection {
	out := make([]*record.Detection, len(s.Record.Detections))
	copy(out, s.Record.Detections)
	return out
}

// Lookup resolves an id to the canonical detection.
func (s *Session) Lookup(id int) (*record.Detection, bool) {
	for _, d := range s.Record.Detections {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// Has reports whether a detection with the given id is present.
func (s *Session) Has(id int) bool {
	_, ok := s.Lookup(id)
	return ok
}

// IDs returns detection ids in insertion order.
func (s *Session) IDs() []int {
	ids := make([]int, len(s.Record.Detections))
	for i, d := range s.Record.Detections {
		ids[i] = d.ID
	}
	return ids
}

// MatchesDisk reports whether data equals the bytes this session last read
// from or wrote to its record path.
func (s *Session) MatchesDisk(data []byte) bool {
	return sha256.Sum256(data) == s.diskDigest
}

func (s *Session) indexOf(d *record.Detection) int {
	for i, cur := range s.Record.Detections {
		if cur == d {
			return i
		}
	}
	return -1
}
