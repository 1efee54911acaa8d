package render

import (
	"errors"
	"github.com/swdee/go-annotate"
	"testing"
)

func TestMaskAnnotatorBlend(t *testing.T) {

	scene := newScene(64, 48)
	defer scene.Close()

	d := sceneDetections()

	a := MaskAnnotator{Opacity: 0.5, Palette: Palette{red, blue}}

	out, err := a.Annotate(scene, d)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	defer out.Close()

	// scene is BGR 40,80,120 blended half with red
	if got, want := pixelAt(out, 12, 20), [3]uint8{20, 40, 188}; got != want {
		t.Errorf("expected blended %v, got %v", want, got)
	}

	// and half with blue for the second mask
	if got, want := pixelAt(out, 40, 20), [3]uint8{148, 40, 60}; got != want {
		t.Errorf("expected blended %v, got %v", want, got)
	}

	if got := pixelAt(out, 2, 2); got != pixelAt(scene, 2, 2) {
		t.Errorf("pixel outside masks changed to %v", got)
	}
}

func TestMaskAnnotatorOverlap(t *testing.T) {

	scene := newScene(32, 32)
	defer scene.Close()

	big := annotate.Box{0, 0, 32, 32}
	small := annotate.Box{10, 10, 20, 20}

	d := &annotate.Detections{
		XYXY:       []annotate.Box{small, big},
		Mask:       []*annotate.Mask{annotate.MaskFromBox(small, 32, 32), annotate.MaskFromBox(big, 32, 32)},
		ClassID:    []int{0, 0},
		Confidence: []float32{0.5, 0.9},
	}

	out, err := MaskAnnotator{Opacity: 1, Palette: Palette{red, blue}}.Annotate(scene, d)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	defer out.Close()

	// smaller object stays visible on top of the larger one
	if got := pixelAt(out, 15, 15); got != bgr(red) {
		t.Errorf("expected small mask on top, got %v", got)
	}

	if got := pixelAt(out, 2, 2); got != bgr(blue) {
		t.Errorf("expected large mask color, got %v", got)
	}
}

func TestMaskAnnotatorErrors(t *testing.T) {

	scene := newScene(64, 48)
	defer scene.Close()

	noMasks, _ := annotate.New([]annotate.Box{{0, 0, 4, 4}}, []int{0}, []float32{1})

	wrongSize := sceneDetections()
	wrongSize.Mask[1] = annotate.NewMask(10, 10)

	tests := []struct {
		name string
		d    *annotate.Detections
		want error
	}{
		{"no masks", noMasks, ErrNoMasks},
		{"mask size", wrongSize, annotate.ErrMaskSize},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {

			out, err := DefaultMaskAnnotator().Annotate(scene, tc.d)
			out.Close()

			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
