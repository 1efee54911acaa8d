package annotate

import (
	"image"
	"math"
)

// Box is a bounding box in source image pixels in the order x1, y1, x2, y2
// where (x1,y1) is the top left corner and (x2,y2) the bottom right
type Box [4]float32

// NewBoxFromCenter returns a Box from its center point and dimensions
func NewBoxFromCenter(cx, cy, width, height float32) Box {
	return Box{
		cx - width/2,
		cy - height/2,
		cx + width/2,
		cy + height/2,
	}
}

// X1 returns the left edge of the box
func (b Box) X1() float32 {
	return b[0]
}

// Y1 returns the top edge of the box
func (b Box) Y1() float32 {
	return b[1]
}

// X2 returns the right edge of the box
func (b Box) X2() float32 {
	return b[2]
}

// Y2 returns the bottom edge of the box
func (b Box) Y2() float32 {
	return b[3]
}

// Width returns the width of the box
func (b Box) Width() float32 {
	return b[2] - b[0]
}

// Height returns the height of the box
func (b Box) Height() float32 {
	return b[3] - b[1]
}

// Area returns the area of the box, a box with inverted corners has no area
func (b Box) Area() float64 {
	w := math.Max(0, float64(b.Width()))
	h := math.Max(0, float64(b.Height()))
	return w * h
}

// Center returns the center point of the box
func (b Box) Center() (float32, float32) {
	return (b[0] + b[2]) / 2, (b[1] + b[3]) / 2
}

// Rect returns the box as an integer image.Rectangle
func (b Box) Rect() image.Rectangle {
	return image.Rect(
		int(math.Round(float64(b[0]))),
		int(math.Round(float64(b[1]))),
		int(math.Round(float64(b[2]))),
		int(math.Round(float64(b[3]))),
	)
}

// Clip restricts the box to lie within an image of the given dimensions
func (b Box) Clip(width, height int) Box {
	return Box{
		clamp(b[0], 0, float32(width)),
		clamp(b[1], 0, float32(height)),
		clamp(b[2], 0, float32(width)),
		clamp(b[3], 0, float32(height)),
	}
}

// IoU returns the Intersection over Union of two boxes
func (b Box) IoU(other Box) float32 {

	w := math.Max(0, math.Min(float64(b[2]), float64(other[2]))-math.Max(float64(b[0]), float64(other[0])))
	h := math.Max(0, math.Min(float64(b[3]), float64(other[3]))-math.Max(float64(b[1]), float64(other[1])))
	intersection := w * h

	union := b.Area() + other.Area() - intersection

	if union <= 0 {
		return 0
	}

	return float32(intersection / union)
}

// clamp restricts val to be within the range min and max
func clamp(val, min, max float32) float32 {

	if val > min {

		if val < max {
			return val
		}

		return max
	}

	return min
}
