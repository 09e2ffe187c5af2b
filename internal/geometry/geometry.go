// Package geometry holds the pure rectangle arithmetic shared by the record
// loader, the mutation API and the interactive canvas: clamping to image
// bounds, minimum-size enforcement and corner-handle constraints.
package geometry

import "fmt"

// MinSize is the smallest allowed box extent, in pixel units, along either axis.
const MinSize = 1.0

// Point is a position in image pixel coordinates.
type Point struct {
	X float64
	Y float64
}

// BBox is an axis-aligned rectangle in image pixel coordinates.
type BBox struct {
	XMin float64
	YMin float64
	XMax float64
	YMax float64
}

// FromArray builds a BBox from the on-disk [xmin, ymin, xmax, ymax] order.
func FromArray(a [4]float64) BBox {
	return BBox{XMin: a[0], YMin: a[1], XMax: a[2], YMax: a[3]}
}

// Array returns the box in the on-disk [xmin, ymin, xmax, ymax] order.
func (b BBox) Array() [4]float64 {
	return [4]float64{b.XMin, b.YMin, b.XMax, b.YMax}
}

func (b BBox) Width() float64  { return b.XMax - b.XMin }
func (b BBox) Height() float64 { return b.YMax - b.YMin }

// TopLeft returns the (xmin, ymin) corner.
func (b BBox) TopLeft() Point { return Point{X: b.XMin, Y: b.YMin} }

// BottomRight returns the (xmax, ymax) corner.
func (b BBox) BottomRight() Point { return Point{X: b.XMax, Y: b.YMax} }

// Ordered reports whether xmin < xmax and ymin < ymax.
func (b BBox) Ordered() bool {
	return b.XMin < b.XMax && b.YMin < b.YMax
}

// Valid reports whether b lies inside a width x height image and is at least
// MinSize along both axes.
func (b BBox) Valid(width, height int) bool {
	w, h := float64(width), float64(height)
	return b.XMin >= 0 && b.YMin >= 0 &&
		b.XMax <= w && b.YMax <= h &&
		b.Width() >= MinSize && b.Height() >= MinSize
}

// Contains reports whether p lies inside b, edges included.
func (b BBox) Contains(p Point) bool {
	return p.X >= b.XMin && p.X <= b.XMax && p.Y >= b.YMin && p.Y <= b.YMax
}

func (b BBox) String() string {
	return fmt.Sprintf("[%g, %g, %g, %g]", b.XMin, b.YMin, b.XMax, b.YMax)
}

// Normalize swaps coordinates so that XMin <= XMax and YMin <= YMax.
func Normalize(b BBox) BBox {
	if b.XMin > b.XMax {
		b.XMin, b.XMax = b.XMax, b.XMin
	}
	if b.YMin > b.YMax {
		b.YMin, b.YMax = b.YMax, b.YMin
	}
	return b
}

// Clamp forces b inside a width x height image and grows it to MinSize along
// any axis where it is smaller. Clamp is idempotent for positive bounds.
func Clamp(b BBox, width, height int) BBox {
	w, h := float64(width), float64(height)

	b.XMin = clampValue(b.XMin, 0, max(w-MinSize, 0))
	b.YMin = clampValue(b.YMin, 0, max(h-MinSize, 0))
	b.XMax = clampValue(b.XMax, min(MinSize, w), w)
	b.YMax = clampValue(b.YMax, min(MinSize, h), h)

	if b.XMax-b.XMin < MinSize {
		b.XMax = min(w, b.XMin+MinSize)
		b.XMin = max(0, b.XMax-MinSize)
	}
	if b.YMax-b.YMin < MinSize {
		b.YMax = min(h, b.YMin+MinSize)
		b.YMin = max(0, b.YMax-MinSize)
	}
	return b
}

// ClipToImage intersects the normalized b with the image rectangle without
// enforcing a minimum size. The result may be empty.
func ClipToImage(b BBox, width, height int) BBox {
	b = Normalize(b)
	w, h := float64(width), float64(height)
	return BBox{
		XMin: clampValue(b.XMin, 0, w),
		YMin: clampValue(b.YMin, 0, h),
		XMax: clampValue(b.XMax, 0, w),
		YMax: clampValue(b.YMax, 0, h),
	}
}

// clampValue returns v limited to [low, high]. When the range is empty low wins.
func clampValue(v, low, high float64) float64 {
	return max(low, min(v, high))
}
