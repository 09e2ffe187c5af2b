package session

import (
	"github.com/fakeyudi/annotate/internal/geometry"
	"github.com/fakeyudi/annotate/internal/record"
)

// AddBox clamps b to the image, appends it under a freshly allocated id with
// the user score and returns the new detection so it can be selected.
func (s *Session) AddBox(b geometry.BBox) *record.Detection {
	d := &record.Detection{
		ID:    s.NextID,
		BBox:  geometry.Clamp(geometry.Normalize(b), s.Width, s.Height),
		Score: record.UserScore,
	}
	s.NextID++
	s.Record.Detections = append(s.Record.Detections, d)
	s.Dirty = true
	s.emit(Event{Kind: Added, ID: d.ID})
	return d
}

// DeleteBox removes d by identity and reports whether anything was removed.
// Deleting a detection that is already gone is a no-op.
func (s *Session) DeleteBox(d *record.Detection) bool {
	i := s.indexOf(d)
	if i < 0 {
		return false
	}
	s.Record.Detections = append(s.Record.Detections[:i], s.Record.Detections[i+1:]...)
	s.Dirty = true
	s.emit(Event{Kind: Deleted, ID: d.ID})
	return true
}

// DeleteID removes the detection with the given id, if present.
func (s *Session) DeleteID(id int) bool {
	d, ok := s.Lookup(id)
	if !ok {
		return false
	}
	return s.DeleteBox(d)
}

// EditBox replaces the geometry of d, typically after a drag completes. The
// new box is normalized and clamped so the invariants still hold.
func (s *Session) EditBox(d *record.Detection, b geometry.BBox) error {
	if s.indexOf(d) < 0 {
		return ErrUnknownDetection
	}
	d.BBox = geometry.Clamp(geometry.Normalize(b), s.Width, s.Height)
	s.Dirty = true
	s.emit(Event{Kind: Edited, ID: d.ID})
	return nil
}
