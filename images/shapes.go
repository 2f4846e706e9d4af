// Package images - Image processing utilities
package images

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Rect is an axis-aligned bounding box in pixel space.
//
// Coordinates are float32 so that boxes scaled from model space keep their
// fractional extents. A Rect is valid when X1 <= X2 and Y1 <= Y2.
type Rect struct {
	X1 float32 `json:"x1" yaml:"x1"`
	Y1 float32 `json:"y1" yaml:"y1"`
	X2 float32 `json:"x2" yaml:"x2"`
	Y2 float32 `json:"y2" yaml:"y2"`
}

// Width returns X2 - X1. It is negative for an inverted box.
func (r Rect) Width() float32 {
	return r.X2 - r.X1
}

// Height returns Y2 - Y1. It is negative for an inverted box.
func (r Rect) Height() float32 {
	return r.Y2 - r.Y1
}

// Area returns the area of the box, or 0 for inverted boxes.
func (r Rect) Area() float32 {
	if !r.Valid() {
		return 0
	}
	return r.Width() * r.Height()
}

// Valid reports whether the corners are ordered.
func (r Rect) Valid() bool {
	return r.X1 <= r.X2 && r.Y1 <= r.Y2
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.1f, %.1f)-(%.1f, %.1f)", r.X1, r.Y1, r.X2, r.Y2)
}

// CalculateIoU measures the overlap of two boxes as intersection area over
// union area.
//
//	IoU = Area of Intersection / Area of Union
//
//	- 1.0 means the boxes are identical.
//	- 0.0 means the boxes do not overlap. Boxes whose projections do not
//	  overlap on either axis (including boxes that only touch) yield 0.
//
// The intersection corners are the maximum of the top-left corners and the
// minimum of the bottom-right corners. The union follows inclusion-exclusion:
//
//	Union(A, B) = Area(A) + Area(B) - Intersection(A, B)
//
// Arguments:
//   - r: The first box.
//   - o: The other box to compare against.
//
// Returns:
//   - float32: A value in [0, 1].
//
// Example Usage:
// ```go
//
//	a := Rect{X1: 0, Y1: 0, X2: 1, Y2: 1}
//	b := Rect{X1: 0.5, Y1: 0, X2: 1.5, Y2: 1}
//	iou := CalculateIoU(a, b) // intersection 0.5, union 1.5, IoU 1/3
//
// ```
func CalculateIoU(r, o Rect) float32 {
	ix1 := math32.Max(r.X1, o.X1)
	iy1 := math32.Max(r.Y1, o.Y1)
	ix2 := math32.Min(r.X2, o.X2)
	iy2 := math32.Min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0
	}

	return interArea / unionArea
}
