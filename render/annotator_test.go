package render

import (
	"bytes"
	"errors"
	"github.com/swdee/go-annotate"
	"gocv.io/x/gocv"
	"image"
	"image/color"
	"testing"
)

var (
	red  = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	blue = color.RGBA{R: 0, G: 0, B: 255, A: 255}
)

// newScene returns a w x h BGR Mat filled with a single color
func newScene(w, h int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 80, 120, 0), h, w,
		gocv.MatTypeCV8UC3)
}

// pixelAt returns the BGR values of the pixel at x,y
func pixelAt(m gocv.Mat, x, y int) [3]uint8 {
	data := m.ToBytes()
	off := (y*m.Cols() + x) * 3
	return [3]uint8{data[off], data[off+1], data[off+2]}
}

// bgr returns the BGR byte order of a color
func bgr(c color.RGBA) [3]uint8 {
	return [3]uint8{c.B, c.G, c.R}
}

// sceneDetections returns two detections with masks on a 64x48 image
func sceneDetections() *annotate.Detections {

	boxes := []annotate.Box{{8, 16, 24, 40}, {36, 12, 56, 32}}

	return &annotate.Detections{
		XYXY: boxes,
		Mask: []*annotate.Mask{
			annotate.MaskFromBox(boxes[0], 64, 48),
			annotate.MaskFromBox(boxes[1], 64, 48),
		},
		ClassID:    []int{0, 1},
		ClassName:  []string{"person", "dog"},
		Confidence: []float32{0.9, 0.75},
	}
}

func allAnnotators() map[string]Annotator {
	return map[string]Annotator{
		"box":     DefaultBoxAnnotator(),
		"mask":    DefaultMaskAnnotator(),
		"polygon": DefaultPolygonAnnotator(),
		"label":   DefaultLabelAnnotator(),
		"compose": Compose(DefaultMaskAnnotator(), DefaultBoxAnnotator(), DefaultLabelAnnotator()),
	}
}

func TestAnnotateZeroDetections(t *testing.T) {

	scene := newScene(64, 48)
	defer scene.Close()

	for name, a := range allAnnotators() {
		for _, d := range []*annotate.Detections{annotate.Empty(), nil} {

			out, err := a.Annotate(scene, d)

			if err != nil {
				t.Fatalf("%s: unexpected error: %v", name, err)
			}

			if !bytes.Equal(out.ToBytes(), scene.ToBytes()) {
				t.Errorf("%s: expected identical copy for zero detections", name)
			}

			out.Close()
		}
	}
}

func TestAnnotateLeavesSceneUnmodified(t *testing.T) {

	scene := newScene(64, 48)
	defer scene.Close()

	original := scene.ToBytes()
	d := sceneDetections()

	for name, a := range allAnnotators() {

		out, err := a.Annotate(scene, d)

		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}

		if !bytes.Equal(scene.ToBytes(), original) {
			t.Errorf("%s: scene was modified", name)
		}

		if bytes.Equal(out.ToBytes(), original) {
			t.Errorf("%s: nothing was drawn", name)
		}

		if out.Cols() != scene.Cols() || out.Rows() != scene.Rows() {
			t.Errorf("%s: output is %dx%d", name, out.Cols(), out.Rows())
		}

		out.Close()
	}
}

func TestAnnotateSceneType(t *testing.T) {

	empty := gocv.NewMat()
	defer empty.Close()

	gray := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC1)
	defer gray.Close()

	for _, scene := range []gocv.Mat{empty, gray} {
		for name, a := range allAnnotators() {
			out, err := a.Annotate(scene, annotate.Empty())
			out.Close()

			if !errors.Is(err, ErrSceneType) {
				t.Errorf("%s: expected ErrSceneType, got %v", name, err)
			}
		}
	}
}

func TestAnnotateInvalidDetections(t *testing.T) {

	scene := newScene(64, 48)
	defer scene.Close()

	d := sceneDetections()
	d.Confidence = d.Confidence[:1]

	for name, a := range allAnnotators() {
		out, err := a.Annotate(scene, d)
		out.Close()

		if !errors.Is(err, annotate.ErrLengthMismatch) && !errors.Is(err, ErrLabelCount) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestComposeOrder(t *testing.T) {

	scene := newScene(64, 48)
	defer scene.Close()

	d := sceneDetections()

	// solid masks painted over the boxes hide the box lines
	a := Compose(
		BoxAnnotator{Thickness: 1, Palette: Palette{red}},
		MaskAnnotator{Opacity: 1, Palette: Palette{blue}},
	)

	out, err := a.Annotate(scene, d)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	defer out.Close()

	if got := pixelAt(out, 8, 20); got != bgr(blue) {
		t.Errorf("expected mask on top of box, got %v", got)
	}

	// a failing annotator is reported
	failed, err := Compose(DefaultBoxAnnotator(), DefaultMaskAnnotator()).Annotate(scene,
		&annotate.Detections{
			XYXY:       d.XYXY,
			ClassID:    d.ClassID,
			Confidence: d.Confidence,
		})
	failed.Close()

	if !errors.Is(err, ErrNoMasks) {
		t.Errorf("expected ErrNoMasks, got %v", err)
	}
}

func TestAnnotateImage(t *testing.T) {

	img := image.NewRGBA(image.Rect(0, 0, 64, 48))

	res, err := AnnotateImage(img, BoxAnnotator{Thickness: 1, Palette: Palette{red}},
		sceneDetections())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Bounds().Dx() != 64 || res.Bounds().Dy() != 48 {
		t.Fatalf("unexpected bounds %v", res.Bounds())
	}

	got := color.RGBAModel.Convert(res.At(8, 20)).(color.RGBA)

	if got.R != 255 || got.G != 0 || got.B != 0 {
		t.Errorf("expected red box edge, got %v", got)
	}
}

// countShapes returns the number of separate regions where out differs from
// scene
func countShapes(out, scene gocv.Mat) int {

	diff := gocv.NewMat()
	defer diff.Close()

	gocv.AbsDiff(out, scene, &diff)

	gray := gocv.NewMat()
	defer gray.Close()

	gocv.CvtColor(diff, &gray, gocv.ColorBGRToGray)

	bin := gocv.NewMat()
	defer bin.Close()

	gocv.Threshold(gray, &bin, 0, 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(bin, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	return contours.Size()
}

func TestBoxAndMaskShapeCount(t *testing.T) {

	scene := newScene(64, 48)
	defer scene.Close()

	d := sceneDetections()

	for name, a := range map[string]Annotator{
		"box":  DefaultBoxAnnotator(),
		"mask": DefaultMaskAnnotator(),
	} {
		out, err := a.Annotate(scene, d)

		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}

		if got := countShapes(out, scene); got != d.Len() {
			t.Errorf("%s: expected %d shapes, got %d", name, d.Len(), got)
		}

		out.Close()
	}
}
