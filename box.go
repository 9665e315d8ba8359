package personcam

import (
	"image"
	"math"
)

// Box represents a bounding box in pixel coordinates where (X1,Y1) is the
// top left corner and (X2,Y2) the bottom right corner
type Box struct {
	X1, Y1, X2, Y2 float32
}

// NewBox creates a new Box with the given corner coordinates
func NewBox(x1, y1, x2, y2 float32) Box {
	return Box{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Width returns the width of the box
func (b Box) Width() float32 {
	return b.X2 - b.X1
}

// Height returns the height of the box
func (b Box) Height() float32 {
	return b.Y2 - b.Y1
}

// Area returns the area of the box, a degenerate box has area 0
func (b Box) Area() float32 {
	w := b.Width()
	h := b.Height()

	if w <= 0 || h <= 0 {
		return 0
	}

	return w * h
}

// Rect converts the box to an image.Rectangle, rounding each coordinate
// to the nearest pixel
func (b Box) Rect() image.Rectangle {
	return image.Rect(
		int(math.Round(float64(b.X1))),
		int(math.Round(float64(b.Y1))),
		int(math.Round(float64(b.X2))),
		int(math.Round(float64(b.Y2))),
	)
}

// IoU calculates the Intersection over Union with another box.  Disjoint
// boxes return 0, identical boxes return 1.  Degenerate boxes with a union
// area of 0 are treated as non overlapping so no division error can occur.
func (b Box) IoU(other Box) float32 {

	ix1 := max32(b.X1, other.X1)
	iy1 := max32(b.Y1, other.Y1)
	ix2 := min32(b.X2, other.X2)
	iy2 := min32(b.Y2, other.Y2)

	iw := ix2 - ix1
	ih := iy2 - iy1

	if iw <= 0 || ih <= 0 {
		return 0
	}

	interArea := iw * ih
	unionArea := b.Area() + other.Area() - interArea

	if unionArea <= 0 {
		return 0
	}

	return interArea / unionArea
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
