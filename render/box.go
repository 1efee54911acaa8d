package render

import (
	"github.com/swdee/go-annotate"
	"gocv.io/x/gocv"
)

// BoxAnnotator draws a rectangle around each detection
type BoxAnnotator struct {
	// Thickness is the line thickness of the rectangle
	Thickness int
	// Palette supplies the rectangle colors
	Palette Palette
	// Lookup selects how a detection is matched to a palette color
	Lookup Lookup
}

// DefaultBoxAnnotator returns a BoxAnnotator with 2 pixel lines using the
// default palette
func DefaultBoxAnnotator() BoxAnnotator {
	return BoxAnnotator{
		Thickness: 2,
		Palette:   DefaultPalette(),
		Lookup:    ByIndex,
	}
}

// Annotate returns a copy of scene with a rectangle drawn around each
// detection
func (b BoxAnnotator) Annotate(scene gocv.Mat, d *annotate.Detections) (gocv.Mat, error) {
	return annotateCopy(scene, d, b.draw)
}

// Draw renders the detection rectangles directly onto img
func (b BoxAnnotator) Draw(img *gocv.Mat, d *annotate.Detections) error {
	return drawChecked(img, d, b.draw)
}

func (b BoxAnnotator) draw(img *gocv.Mat, d *annotate.Detections) error {

	thickness := b.Thickness

	if thickness <= 0 {
		thickness = 1
	}

	for i, box := range d.XYXY {
		gocv.Rectangle(img, box.Rect(), b.Palette.colorFor(d, i, b.Lookup), thickness)
	}

	return nil
}
