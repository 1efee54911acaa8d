package annotate

import (
	"fmt"
	"image"
	"image/color"
	"sort"
)

// Mask is a binary segmentation mask with the same dimensions as the source
// image.  A pixel belongs to the object when its alpha value is non-zero.
type Mask struct {
	*image.Alpha
}

// NewMask returns an empty mask of the given dimensions
func NewMask(width, height int) *Mask {
	return &Mask{image.NewAlpha(image.Rect(0, 0, width, height))}
}

// MaskFromAlpha creates a binary mask from an alpha image where pixels with
// a non-zero alpha value greater or equal to threshold are set
func MaskFromAlpha(a *image.Alpha, threshold uint8) *Mask {

	b := a.Bounds()
	m := NewMask(b.Dx(), b.Dy())

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if v := a.AlphaAt(b.Min.X+x, b.Min.Y+y).A; v != 0 && v >= threshold {
				m.Pix[y*m.Stride+x] = 0xff
			}
		}
	}

	return m
}

// MaskFromBox returns a mask with every pixel inside the box set
func MaskFromBox(box Box, width, height int) *Mask {

	m := NewMask(width, height)
	r := box.Clip(width, height).Rect().Intersect(m.Bounds())

	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Pix[y*m.Stride+x] = 0xff
		}
	}

	return m
}

// Width returns the width of the mask
func (m *Mask) Width() int {
	return m.Bounds().Dx()
}

// Height returns the height of the mask
func (m *Mask) Height() int {
	return m.Bounds().Dy()
}

// Contains reports whether the pixel at x,y belongs to the object
func (m *Mask) Contains(x, y int) bool {
	if !image.Pt(x, y).In(m.Bounds()) {
		return false
	}
	return m.Pix[m.PixOffset(x, y)] != 0
}

// Mark sets the pixel at x,y as belonging to the object
func (m *Mask) Mark(x, y int) {
	m.SetAlpha(x, y, color.Alpha{A: 0xff})
}

// Area returns the number of pixels set in the mask
func (m *Mask) Area() int {

	area := 0

	for _, v := range m.Pix {
		if v != 0 {
			area++
		}
	}

	return area
}

// BoundingBox returns the tightest box containing all set pixels.  false is
// returned if the mask is empty.
func (m *Mask) BoundingBox() (Box, bool) {

	b := m.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := -1, -1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if m.Pix[m.PixOffset(x, y)] == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if maxX < 0 {
		return Box{}, false
	}

	return Box{float32(minX), float32(minY), float32(maxX + 1), float32(maxY + 1)}, true
}

// IDMap combines the detection masks into a single map the size of the
// image where each pixel holds the index of the detection + 1 or 0 for
// background.  Where masks overlap the smaller mask wins so small objects
// stay visible on top of larger ones.
func (d *Detections) IDMap(width, height int) ([]int32, error) {

	idMap := make([]int32, width*height)

	if !d.HasMasks() {
		return idMap, nil
	}

	// paint largest masks first
	areas := d.Area()
	order := make([]int, len(d.Mask))

	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return areas[order[a]] > areas[order[b]]
	})

	for _, i := range order {
		m := d.Mask[i]

		if m == nil {
			continue
		}

		if m.Width() != width || m.Height() != height {
			return nil, fmt.Errorf("%w: mask %d is %dx%d, image is %dx%d",
				ErrMaskSize, i, m.Width(), m.Height(), width, height)
		}

		for y := 0; y < height; y++ {
			row := m.Pix[y*m.Stride : y*m.Stride+width]
			for x, v := range row {
				if v != 0 {
					idMap[y*width+x] = int32(i + 1)
				}
			}
		}
	}

	return idMap, nil
}

// SplitIDMap is the reverse of IDMap, it splits a combined map of detection
// index + 1 values into n individual masks
func SplitIDMap(idMap []int32, width, height, n int) ([]*Mask, error) {

	if len(idMap) != width*height {
		return nil, fmt.Errorf("%w: id map has %d pixels, expected %d",
			ErrMaskSize, len(idMap), width*height)
	}

	masks := make([]*Mask, n)

	for i := range masks {
		masks[i] = NewMask(width, height)
	}

	for idx, id := range idMap {
		if id <= 0 || int(id) > n {
			continue
		}

		m := masks[id-1]
		m.Pix[(idx/width)*m.Stride+idx%width] = 0xff
	}

	return masks, nil
}
