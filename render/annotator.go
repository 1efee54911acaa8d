package render

import (
	"errors"
	"fmt"
	"github.com/swdee/go-annotate"
	"gocv.io/x/gocv"
	"image"
)

var (
	// ErrSceneType is returned when the scene is not a non-empty 8 bit
	// 3 channel BGR Mat
	ErrSceneType = errors.New("scene must be a non-empty 8-bit BGR image")
	// ErrNoMasks is returned by mask based annotators when the detections
	// carry no segmentation masks
	ErrNoMasks = errors.New("detections have no masks")
	// ErrLabelCount is returned when the number of custom labels differs from
	// the number of detections
	ErrLabelCount = errors.New("label count does not match detection count")
)

// Annotator draws detections onto an image
type Annotator interface {
	// Annotate returns a copy of scene with the detections drawn on it.  The
	// scene is left unmodified and the caller must Close the returned Mat.
	Annotate(scene gocv.Mat, d *annotate.Detections) (gocv.Mat, error)
	// Draw draws the detections directly onto img
	Draw(img *gocv.Mat, d *annotate.Detections) error
}

// checkScene verifies the scene can be drawn on and the detections are
// valid
func checkScene(scene gocv.Mat, d *annotate.Detections) error {

	if scene.Empty() || scene.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("%w: got %dx%d of type %v", ErrSceneType,
			scene.Cols(), scene.Rows(), scene.Type())
	}

	if d == nil {
		return nil
	}

	return d.Validate()
}

// annotateCopy clones the scene and runs draw on the clone unless there is
// nothing to draw
func annotateCopy(scene gocv.Mat, d *annotate.Detections,
	draw func(img *gocv.Mat, d *annotate.Detections) error) (gocv.Mat, error) {

	if err := checkScene(scene, d); err != nil {
		return gocv.NewMat(), err
	}

	img := scene.Clone()

	if d == nil || d.IsEmpty() {
		return img, nil
	}

	if err := draw(&img, d); err != nil {
		img.Close()
		return gocv.NewMat(), err
	}

	return img, nil
}

// drawChecked runs draw on img after checking it
func drawChecked(img *gocv.Mat, d *annotate.Detections,
	draw func(img *gocv.Mat, d *annotate.Detections) error) error {

	if err := checkScene(*img, d); err != nil {
		return err
	}

	if d == nil || d.IsEmpty() {
		return nil
	}

	return draw(img, d)
}

// Composite applies several annotators in order on a single copy of the
// scene
type Composite struct {
	annotators []Annotator
}

// Compose returns an Annotator that applies the given annotators in order,
// so later annotators draw on top of earlier ones
func Compose(annotators ...Annotator) *Composite {
	return &Composite{annotators: annotators}
}

// Annotate returns a copy of scene with every annotator applied
func (c *Composite) Annotate(scene gocv.Mat, d *annotate.Detections) (gocv.Mat, error) {
	return annotateCopy(scene, d, c.draw)
}

// Draw applies every annotator directly onto img
func (c *Composite) Draw(img *gocv.Mat, d *annotate.Detections) error {
	return drawChecked(img, d, c.draw)
}

func (c *Composite) draw(img *gocv.Mat, d *annotate.Detections) error {

	for i, a := range c.annotators {
		if err := a.Draw(img, d); err != nil {
			return fmt.Errorf("annotator %d failed: %w", i, err)
		}
	}

	return nil
}

// AnnotateImage runs the annotator over a Go image and returns the result as
// a new image
func AnnotateImage(img image.Image, a Annotator, d *annotate.Detections) (image.Image, error) {

	scene, err := gocv.ImageToMatRGB(img)

	if err != nil {
		return nil, fmt.Errorf("error converting image to Mat: %w", err)
	}

	defer scene.Close()

	out, err := a.Annotate(scene, d)

	if err != nil {
		return nil, err
	}

	defer out.Close()

	res, err := out.ToImage()

	if err != nil {
		return nil, fmt.Errorf("error converting Mat to image: %w", err)
	}

	return res, nil
}

// maskBytes returns the mask as a tightly packed single channel byte slice
// of width x height
func maskBytes(m *annotate.Mask) []byte {

	w, h := m.Width(), m.Height()

	if m.Stride == w && len(m.Pix) == w*h {
		return m.Pix
	}

	b := make([]byte, 0, w*h)

	for y := 0; y < h; y++ {
		off := y * m.Stride
		b = append(b, m.Pix[off:off+w]...)
	}

	return b
}
