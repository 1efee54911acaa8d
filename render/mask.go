package render

import (
	"fmt"
	"github.com/swdee/go-annotate"
	"gocv.io/x/gocv"
	"image/color"
)

// MaskAnnotator renders detection masks as a transparent colored overlay
type MaskAnnotator struct {
	// Opacity of the overlay from 0 (invisible) to 1 (solid)
	Opacity float32
	// Palette supplies the overlay colors
	Palette Palette
	// Lookup selects how a detection is matched to a palette color
	Lookup Lookup
}

// DefaultMaskAnnotator returns a MaskAnnotator with 50% opacity using the
// default palette
func DefaultMaskAnnotator() MaskAnnotator {
	return MaskAnnotator{
		Opacity: 0.5,
		Palette: DefaultPalette(),
		Lookup:  ByIndex,
	}
}

// Annotate returns a copy of scene with the masks blended over it
func (m MaskAnnotator) Annotate(scene gocv.Mat, d *annotate.Detections) (gocv.Mat, error) {
	return annotateCopy(scene, d, m.draw)
}

// Draw blends the masks directly onto img
func (m MaskAnnotator) Draw(img *gocv.Mat, d *annotate.Detections) error {
	return drawChecked(img, d, m.draw)
}

func (m MaskAnnotator) draw(img *gocv.Mat, d *annotate.Detections) error {

	if !d.HasMasks() {
		return ErrNoMasks
	}

	width := img.Cols()
	height := img.Rows()

	// overlapping masks are resolved so the smallest object is on top
	idMap, err := d.IDMap(width, height)

	if err != nil {
		return fmt.Errorf("error combining masks: %w", err)
	}

	alpha := m.Opacity

	if alpha < 0 {
		alpha = 0
	} else if alpha > 1 {
		alpha = 1
	}

	colors := make([]color.RGBA, d.Len())

	for i := range colors {
		colors[i] = m.Palette.colorFor(d, i, m.Lookup)
	}

	// it is too slow to manipulate pixel by pixel using GoCV due to slowness
	// over CGO.  So we copy the bytes from the source image and manipulate
	// the bytes directly before copying back to a Mat
	imgData := img.ToBytes()

	for idx, id := range idMap {

		if id == 0 {
			continue
		}

		clr := colors[id-1]
		pixelPos := idx * 3

		b, g, r := imgData[pixelPos+0], imgData[pixelPos+1], imgData[pixelPos+2]

		imgData[pixelPos+0] = blend(b, clr.B, alpha)
		imgData[pixelPos+1] = blend(g, clr.G, alpha)
		imgData[pixelPos+2] = blend(r, clr.R, alpha)
	}

	return copyBytesTo(img, imgData)
}

// blend mixes the overlay value over the base value at the given alpha
func blend(base, overlay uint8, alpha float32) uint8 {
	return uint8(float32(base)*(1-alpha) + float32(overlay)*alpha + 0.5)
}

// copyBytesTo writes BGR bytes of the same dimensions back into img
func copyBytesTo(img *gocv.Mat, data []byte) error {

	tmpImg, err := gocv.NewMatFromBytes(img.Rows(), img.Cols(), gocv.MatTypeCV8UC3, data)

	if err != nil {
		return fmt.Errorf("error creating Mat from bytes: %w", err)
	}

	defer tmpImg.Close()
	tmpImg.CopyTo(img)

	return nil
}
