package render

import (
	"fmt"
	"github.com/swdee/go-annotate"
	"gocv.io/x/gocv"
	"image"
	"image/color"
)

// PolygonAnnotator traces the outline of each detection mask.  Detections
// whose mask yields no usable contour get their bounding box drawn instead.
type PolygonAnnotator struct {
	// Thickness is the line thickness of the outline
	Thickness int
	// MinArea filters out contours smaller than this many pixels, picked up
	// from aliasing or noise in the mask
	MinArea float64
	// Epsilon is the maximum distance in pixels between the contour and its
	// simplified polygon
	Epsilon float64
	// Palette supplies the outline colors
	Palette Palette
	// Lookup selects how a detection is matched to a palette color
	Lookup Lookup
}

// DefaultPolygonAnnotator returns a PolygonAnnotator with 2 pixel lines
func DefaultPolygonAnnotator() PolygonAnnotator {
	return PolygonAnnotator{
		Thickness: 2,
		MinArea:   20,
		Epsilon:   3,
		Palette:   DefaultPalette(),
		Lookup:    ByIndex,
	}
}

// Annotate returns a copy of scene with the mask outlines drawn on it
func (p PolygonAnnotator) Annotate(scene gocv.Mat, d *annotate.Detections) (gocv.Mat, error) {
	return annotateCopy(scene, d, p.draw)
}

// Draw traces the mask outlines directly onto img
func (p PolygonAnnotator) Draw(img *gocv.Mat, d *annotate.Detections) error {
	return drawChecked(img, d, p.draw)
}

func (p PolygonAnnotator) draw(img *gocv.Mat, d *annotate.Detections) error {

	if !d.HasMasks() {
		return ErrNoMasks
	}

	width := img.Cols()
	height := img.Rows()

	thickness := p.Thickness

	if thickness <= 0 {
		thickness = 1
	}

	for i, mask := range d.Mask {

		useClr := p.Palette.colorFor(d, i, p.Lookup)
		rect := d.XYXY[i].Rect()

		if mask == nil {
			gocv.Rectangle(img, rect, useClr, thickness)
			continue
		}

		if mask.Width() != width || mask.Height() != height {
			return fmt.Errorf("%w: mask %d is %dx%d, image is %dx%d",
				annotate.ErrMaskSize, i, mask.Width(), mask.Height(), width, height)
		}

		used, err := p.drawOutline(img, mask, rect, useClr, thickness)

		if err != nil {
			return err
		}

		// draw rectangle around detected object if contour not found
		if used == 0 {
			gocv.Rectangle(img, rect, useClr, thickness)
		}
	}

	return nil
}

// drawOutline draws the contours of a single mask and returns how many were
// drawn
func (p PolygonAnnotator) drawOutline(img *gocv.Mat, mask *annotate.Mask,
	bbox image.Rectangle, useClr color.RGBA, thickness int) (int, error) {

	maskMat, err := gocv.NewMatFromBytes(mask.Height(), mask.Width(),
		gocv.MatTypeCV8U, maskBytes(mask))

	if err != nil {
		return 0, fmt.Errorf("error creating mask Mat: %w", err)
	}

	defer maskMat.Close()

	contours := gocv.FindContours(maskMat, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	used := 0

	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)

		if gocv.ContourArea(contour) < p.MinArea {
			continue
		}

		// contours straying far outside the box belong to noise in the mask
		if !isContourInsideRect(gocv.BoundingRect(contour), bbox, 10) {
			continue
		}

		approx := gocv.ApproxPolyDP(contour, p.Epsilon, true)

		ptsVec := gocv.NewPointsVector()
		ptsVec.Append(approx)

		gocv.Polylines(img, ptsVec, true, useClr, thickness)

		approx.Close()
		ptsVec.Close()
		used++
	}

	return used, nil
}

// isContourInsideRect checks if the bounding box of a contour fits inside
// the bounding box of the detection plus a pad
func isContourInsideRect(contourRect, bbox image.Rectangle, pad int) bool {
	return contourRect.Min.X >= bbox.Min.X-pad &&
		contourRect.Min.Y >= bbox.Min.Y-pad &&
		contourRect.Max.X <= bbox.Max.X+pad &&
		contourRect.Max.Y <= bbox.Max.Y+pad
}
