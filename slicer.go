package annotate

import (
	"fmt"
	"github.com/samber/lo"
	"image"
	"math"
	"sort"
)

// Slicer splits a large source image into a grid of overlapping tiles so
// small objects can be detected at the model's native resolution, and merges
// the per tile detections back into source image coordinates.
type Slicer struct {
	// SliceWidth is the width of each tile before overlap is added
	SliceWidth int
	// SliceHeight is the height of each tile before overlap is added
	SliceHeight int
	// OverlapWidth is a ratio from 0.0 to 1.0 of SliceWidth's pixels that
	// neighbouring tiles overlap by.  A value of 0.2 represents 20%
	OverlapWidth float32
	// OverlapHeight is a ratio from 0.0 to 1.0 of SliceHeight's pixels that
	// neighbouring tiles overlap by
	OverlapHeight float32
}

// NewSlicer returns a Slicer.  The slice size should match the model's input
// tensor dimensions.
func NewSlicer(sliceWidth, sliceHeight int, overlapWidth, overlapHeight float32) Slicer {
	return Slicer{
		SliceWidth:    sliceWidth,
		SliceHeight:   sliceHeight,
		OverlapWidth:  overlapWidth,
		OverlapHeight: overlapHeight,
	}
}

// positions returns the start coordinate of each tile along one axis and the
// tile length.  The smallest number of tiles covering srcLen is used, with
// the step between them spread evenly so every overlap is at least
// sliceLen*overlapRatio pixels.
func positions(srcLen, sliceLen int, overlapRatio float32) ([]int, int) {

	// multiply in float32 so ratios such as 0.2 do not round up a pixel
	minOv := int(math.Ceil(float64(float32(sliceLen) * overlapRatio)))
	tileLen := sliceLen + minOv

	if tileLen >= srcLen || sliceLen <= 0 {
		return []int{0}, srcLen
	}

	n := int(math.Ceil(float64(srcLen-tileLen)/float64(sliceLen))) + 1
	step := float64(srcLen-tileLen) / float64(n-1)

	pos := make([]int, n)

	for i := range pos {
		p := int(math.Round(step * float64(i)))

		if p > srcLen-tileLen {
			p = srcLen - tileLen
		}

		pos[i] = p
	}

	return pos, tileLen
}

// Tiles returns the tile rectangles covering an image of the given size in
// row major order
func (s Slicer) Tiles(width, height int) []image.Rectangle {

	xs, tileW := positions(width, s.SliceWidth, s.OverlapWidth)
	ys, tileH := positions(height, s.SliceHeight, s.OverlapHeight)

	tiles := make([]image.Rectangle, 0, len(xs)*len(ys))

	for _, y := range ys {
		for _, x := range xs {
			tiles = append(tiles, image.Rect(x, y, x+tileW, y+tileH))
		}
	}

	return tiles
}

// Merge combines the detections of each tile into a single record for the
// source image of the given size.  results[i] holds the detections of
// tiles[i] in tile coordinates, masks if present must be tile sized.
//
// Objects on a tile boundary are usually found by more than one tile so
// detections are clustered, class agnostic, when their IoU exceeds
// iouThreshold or when more than smallOverlap of the smaller detection's box
// area lies inside the other.  The largest box of each cluster is kept, ties
// going to the higher confidence.
func (s Slicer) Merge(tiles []image.Rectangle, results []*Detections, width, height int,
	iouThreshold, smallOverlap float32) (*Detections, error) {

	if len(tiles) != len(results) {
		return nil, fmt.Errorf("%w: %d tiles with %d results", ErrLengthMismatch,
			len(tiles), len(results))
	}

	global := make([]*Detections, len(results))

	for i, d := range results {

		if d == nil || d.IsEmpty() {
			continue
		}

		shifted, err := toSource(d, tiles[i], width, height)

		if err != nil {
			return nil, fmt.Errorf("tile %d: %w", i, err)
		}

		global[i] = shifted
	}

	all, err := Merge(global...)

	if err != nil {
		return nil, fmt.Errorf("error merging tiles: %w", err)
	}

	return all.mergeClusters(iouThreshold, smallOverlap), nil
}

// toSource returns a copy of d with boxes and masks moved from tile to source
// image coordinates
func toSource(d *Detections, tile image.Rectangle, width, height int) (*Detections, error) {

	out, err := d.Select(lo.Range(d.Len()))

	if err != nil {
		return nil, err
	}

	dx, dy := float32(tile.Min.X), float32(tile.Min.Y)

	for i, b := range out.XYXY {
		out.XYXY[i] = Box{b[0] + dx, b[1] + dy, b[2] + dx, b[3] + dy}.Clip(width, height)
	}

	for i, m := range out.Mask {

		if m == nil {
			continue
		}

		if m.Width() != tile.Dx() || m.Height() != tile.Dy() {
			return nil, fmt.Errorf("%w: mask %dx%d for tile %dx%d", ErrMaskSize,
				m.Width(), m.Height(), tile.Dx(), tile.Dy())
		}

		full := NewMask(width, height)
		dst := tile.Intersect(full.Bounds())

		for y := dst.Min.Y; y < dst.Max.Y; y++ {
			src := (y - tile.Min.Y) * m.Stride
			copy(full.Pix[y*full.Stride+dst.Min.X:y*full.Stride+dst.Max.X],
				m.Pix[src+dst.Min.X-tile.Min.X:src+dst.Max.X-tile.Min.X])
		}

		out.Mask[i] = full
	}

	return out, nil
}

// mergeClusters keeps a single detection per cluster of overlapping boxes
func (d *Detections) mergeClusters(iouThreshold, smallOverlap float32) *Detections {

	n := d.Len()
	order := lo.Range(n)

	sort.SliceStable(order, func(a, b int) bool {
		return d.Confidence[order[a]] > d.Confidence[order[b]]
	})

	iou := BoxIoUBatch(d.XYXY, d.XYXY)
	used := make([]bool, n)
	kept := make([]int, 0, n)

	for i, base := range order {

		if used[base] {
			continue
		}

		used[base] = true
		best := base

		for _, other := range order[i+1:] {

			if used[other] {
				continue
			}

			if float32(iou.At(base, other)) <= iouThreshold &&
				coverage(d.XYXY[base], d.XYXY[other]) <= float64(smallOverlap) {
				continue
			}

			used[other] = true

			a, bestArea := d.XYXY[other].Area(), d.XYXY[best].Area()

			if a > bestArea || (a == bestArea && d.Confidence[other] > d.Confidence[best]) {
				best = other
			}
		}

		kept = append(kept, best)
	}

	// kept indices are always valid
	out, _ := d.Select(kept)
	return out
}

// coverage returns the fraction of the smaller box's area covered by the
// other box
func coverage(a, b Box) float64 {

	area := math.Min(a.Area(), b.Area())

	if area <= 0 {
		return 0
	}

	w := math.Min(float64(a.X2()), float64(b.X2())) - math.Max(float64(a.X1()), float64(b.X1()))
	h := math.Min(float64(a.Y2()), float64(b.Y2())) - math.Max(float64(a.Y1()), float64(b.Y1()))

	if w <= 0 || h <= 0 {
		return 0
	}

	return w * h / area
}
