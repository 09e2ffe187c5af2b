package geometry

// Corner identifies one of the two draggable control points of a box.
type Corner int

const (
	TopLeft Corner = iota
	BottomRight
)

func (c Corner) String() string {
	switch c {
	case TopLeft:
		return "top-left"
	case BottomRight:
		return "bottom-right"
	}
	return "unknown"
}

// ConstrainCorner limits the proposed position p of corner c so the two
// corners never cross and the box stays inside the image. tl and br are the
// current corner positions.
//
// The top-left corner lives in [0, br-MinSize]; the bottom-right corner lives
// in [tl+MinSize, (width, height)].
func ConstrainCorner(c Corner, p, tl, br Point, width, height int) Point {
	if c == TopLeft {
		return Point{
			X: clampValue(p.X, 0, br.X-MinSize),
			Y: clampValue(p.Y, 0, br.Y-MinSize),
		}
	}
	return Point{
		X: clampValue(p.X, tl.X+MinSize, float64(width)),
		Y: clampValue(p.Y, tl.Y+MinSize, float64(height)),
	}
}

// RubberBand returns the live preview rectangle of a new-box gesture that
// started at start and currently points at cur.
func RubberBand(start, cur Point, width, height int) BBox {
	r := Normalize(BBox{XMin: start.X, YMin: start.Y, XMax: cur.X, YMax: cur.Y})
	w, h := float64(width), float64(height)

	left := clampValue(r.XMin, 0, max(w-MinSize, 0))
	top := clampValue(r.YMin, 0, max(h-MinSize, 0))
	return BBox{
		XMin: left,
		YMin: top,
		XMax: clampValue(r.XMax, left+MinSize, w),
		YMax: clampValue(r.YMax, top+MinSize, h),
	}
}

// Gesture reports whether a release at cur completes a real box rather than
// an accidental click. The raw extent is clipped to the image before the
// check; nothing is forced up to the minimum size.
func Gesture(start, cur Point, width, height int) (BBox, bool) {
	raw := ClipToImage(BBox{XMin: start.X, YMin: start.Y, XMax: cur.X, YMax: cur.Y}, width, height)
	if raw.Width() < MinSize || raw.Height() < MinSize {
		return BBox{}, false
	}
	return Clamp(raw, width, height), true
}
