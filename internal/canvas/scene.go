// Package canvas is the spatial view of a session: one item per detection,
// keyed by id, with corner-handle drags and a rubber-band creation gesture.
// Geometry is always in image pixel coordinates; mapping to the screen is the
// host's concern.
package canvas

import (
	"math"

	"github.com/fakeyudi/annotate/internal/geometry"
	"github.com/fakeyudi/annotate/internal/record"
	"github.com/fakeyudi/annotate/internal/session"
)

// DefaultHandleTolerance is how close, in image pixels, a press must be to a
// corner to grab it.
const DefaultHandleTolerance = 5.0

// Mode selects what a press on empty space does.
type Mode int

const (
	ModeSelect Mode = iota
	ModeAdd
)

// Item is one drawn box. Selected only affects emphasis and whether the
// corner handles can be grabbed.
type Item struct {
	ID       int
	BBox     geometry.BBox
	Selected bool
}

type handleDrag struct {
	id     int
	corner geometry.Corner
	tl, br geometry.Point
}

type rubberBand struct {
	start, cur geometry.Point
}

// Scene mirrors the detections of one session.
type Scene struct {
	sess   *session.Session
	items  []Item
	mode   Mode
	sel    int
	hasSel bool

	drag   *handleDrag
	create *rubberBand

	onSelect func(id int, ok bool)
	cancel   func()

	// HandleTolerance is the grab distance for corner handles.
	HandleTolerance float64
}

// New builds a scene for s and keeps it in step with s's mutations until
// Close is called.
func New(s *session.Session) *Scene {
	sc := &Scene{sess: s, HandleTolerance: DefaultHandleTolerance}
	sc.refresh()
	sc.cancel = s.Subscribe(func(session.Event) { sc.refresh() })
	return sc
}

// Close detaches the scene from its session.
func (sc *Scene) Close() {
	if sc.cancel != nil {
		sc.cancel()
		sc.cancel = nil
	}
}

// OnSelect registers the handler for selections made on the canvas.
func (sc *Scene) OnSelect(fn func(id int, ok bool)) {
	sc.onSelect = fn
}

// Mode returns the current interaction mode.
func (sc *Scene) Mode() Mode { return sc.mode }

// SetMode switches interaction mode. Entering add mode clears the selection
// and reports it; leaving it abandons an unfinished rubber band.
func (sc *Scene) SetMode(m Mode) {
	if m == sc.mode {
		return
	}
	sc.mode = m
	sc.create = nil
	if m == ModeAdd && sc.hasSel {
		sc.hasSel = false
		sc.report()
	}
}

// SetSelected marks id as selected without reporting it.
func (sc *Scene) SetSelected(id int, ok bool) {
	sc.sel, sc.hasSel = id, ok && sc.indexOf(id) >= 0
	if sc.drag != nil && (!sc.hasSel || sc.drag.id != id) {
		sc.drag = nil
	}
}

// Selected returns the selected item id.
func (sc *Scene) Selected() (int, bool) {
	return sc.sel, sc.hasSel
}

// Items returns the drawable items in detection order. An item being dragged
// shows its live, constrained rectangle.
func (sc *Scene) Items() []Item {
	out := make([]Item, len(sc.items))
	for i, it := range sc.items {
		it.Selected = sc.hasSel && it.ID == sc.sel
		if sc.drag != nil && sc.drag.id == it.ID {
			it.BBox = dragBox(sc.drag)
		}
		out[i] = it
	}
	return out
}

// Preview returns the rubber band of a creation gesture in progress.
func (sc *Scene) Preview() (geometry.BBox, bool) {
	if sc.create == nil {
		return geometry.BBox{}, false
	}
	return geometry.RubberBand(sc.create.start, sc.create.cur, sc.sess.Width, sc.sess.Height), true
}

// Dragging reports whether a handle drag is in progress.
func (sc *Scene) Dragging() bool { return sc.drag != nil }

// HitItem returns the topmost item containing p.
func (sc *Scene) HitItem(p geometry.Point) (int, bool) {
	for i := len(sc.items) - 1; i >= 0; i-- {
		if sc.items[i].BBox.Contains(p) {
			return sc.items[i].ID, true
		}
	}
	return 0, false
}

// HitHandle returns the corner of the selected item within grab distance of p.
func (sc *Scene) HitHandle(p geometry.Point) (geometry.Corner, bool) {
	if !sc.hasSel {
		return 0, false
	}
	i := sc.indexOf(sc.sel)
	if i < 0 {
		return 0, false
	}
	b := sc.items[i].BBox
	tol := sc.HandleTolerance
	near := func(c geometry.Point) bool {
		return math.Abs(p.X-c.X) <= tol && math.Abs(p.Y-c.Y) <= tol
	}
	switch {
	case near(b.BottomRight()):
		return geometry.BottomRight, true
	case near(b.TopLeft()):
		return geometry.TopLeft, true
	}
	return 0, false
}

// Press handles a primary-button press at p.
func (sc *Scene) Press(p geometry.Point) {
	if sc.mode == ModeAdd {
		sc.BeginCreate(p)
		return
	}
	if corner, ok := sc.HitHandle(p); ok {
		sc.BeginHandleDrag(sc.sel, corner)
		return
	}
	id, ok := sc.HitItem(p)
	if ok == sc.hasSel && (!ok || id == sc.sel) {
		return
	}
	sc.sel, sc.hasSel = id, ok
	sc.report()
}

// Motion handles pointer movement with the button held.
func (sc *Scene) Motion(p geometry.Point) {
	switch {
	case sc.drag != nil:
		sc.DragTo(p)
	case sc.create != nil:
		sc.CreateTo(p)
	}
}

// Release finishes whichever gesture is in progress.
func (sc *Scene) Release(p geometry.Point) error {
	switch {
	case sc.drag != nil:
		sc.DragTo(p)
		return sc.EndDrag()
	case sc.create != nil:
		sc.CreateTo(p)
		sc.EndCreate()
	}
	return nil
}

// BeginHandleDrag starts dragging a corner of id. Only the selected item's
// handles are interactive.
func (sc *Scene) BeginHandleDrag(id int, corner geometry.Corner) bool {
	if !sc.hasSel || sc.sel != id {
		return false
	}
	i := sc.indexOf(id)
	if i < 0 {
		return false
	}
	b := sc.items[i].BBox
	sc.drag = &handleDrag{id: id, corner: corner, tl: b.TopLeft(), br: b.BottomRight()}
	return true
}

// DragTo moves the dragged corner toward p, constrained so the corners never
// cross and stay inside the image.
func (sc *Scene) DragTo(p geometry.Point) {
	d := sc.drag
	if d == nil {
		return
	}
	q := geometry.ConstrainCorner(d.corner, p, d.tl, d.br, sc.sess.Width, sc.sess.Height)
	if d.corner == geometry.TopLeft {
		d.tl = q
	} else {
		d.br = q
	}
}

// EndDrag commits the dragged rectangle through the session.
func (sc *Scene) EndDrag() error {
	d := sc.drag
	if d == nil {
		return nil
	}
	sc.drag = nil
	det, ok := sc.sess.Lookup(d.id)
	if !ok {
		return session.ErrUnknownDetection
	}
	return sc.sess.EditBox(det, dragBox(d))
}

// CancelGesture abandons a drag or rubber band without touching the session.
func (sc *Scene) CancelGesture() {
	sc.drag = nil
	sc.create = nil
}

// Nudge moves one corner of the selected item by (dx, dy) as a complete drag.
func (sc *Scene) Nudge(corner geometry.Corner, dx, dy float64) error {
	if !sc.BeginHandleDrag(sc.sel, corner) {
		return nil
	}
	from := sc.drag.tl
	if corner == geometry.BottomRight {
		from = sc.drag.br
	}
	sc.DragTo(geometry.Point{X: from.X + dx, Y: from.Y + dy})
	return sc.EndDrag()
}

// BeginCreate starts a rubber band at p.
func (sc *Scene) BeginCreate(p geometry.Point) {
	sc.drag = nil
	sc.create = &rubberBand{start: p, cur: p}
}

// CreateTo updates the rubber band's moving corner.
func (sc *Scene) CreateTo(p geometry.Point) {
	if sc.create != nil {
		sc.create.cur = p
	}
}

// EndCreate finishes the gesture. A rectangle smaller than the minimum size
// once clipped to the image is treated as a click and discarded; otherwise
// the box is added to the session and selected.
func (sc *Scene) EndCreate() (*record.Detection, bool) {
	rb := sc.create
	if rb == nil {
		return nil, false
	}
	sc.create = nil
	b, ok := geometry.Gesture(rb.start, rb.cur, sc.sess.Width, sc.sess.Height)
	if !ok {
		return nil, false
	}
	det := sc.sess.AddBox(b)
	sc.sel, sc.hasSel = det.ID, true
	sc.report()
	return det, true
}

func (sc *Scene) refresh() {
	dets := sc.sess.Detections()
	sc.items = sc.items[:0]
	for _, d := range dets {
		sc.items = append(sc.items, Item{ID: d.ID, BBox: d.BBox})
	}
	if sc.hasSel && sc.indexOf(sc.sel) < 0 {
		sc.hasSel = false
	}
	if sc.drag != nil && sc.indexOf(sc.drag.id) < 0 {
		sc.drag = nil
	}
}

func (sc *Scene) indexOf(id int) int {
	for i, it := range sc.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (sc *Scene) report() {
	if sc.onSelect != nil {
		sc.onSelect(sc.Selected())
	}
}

func dragBox(d *handleDrag) geometry.BBox {
	return geometry.BBox{XMin: d.tl.X, YMin: d.tl.Y, XMax: d.br.X, YMax: d.br.Y}
}
