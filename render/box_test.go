package render

import (
	"github.com/swdee/go-annotate"
	"testing"
)

func TestBoxAnnotatorColors(t *testing.T) {

	scene := newScene(64, 48)
	defer scene.Close()

	d := &annotate.Detections{
		XYXY:       []annotate.Box{{8, 8, 20, 20}, {30, 8, 50, 20}, {8, 30, 20, 40}},
		ClassID:    []int{1, 0, 1},
		Confidence: []float32{0.9, 0.8, 0.7},
	}

	tests := []struct {
		name   string
		lookup Lookup
		want   [3][3]uint8
	}{
		{"by index", ByIndex, [3][3]uint8{bgr(red), bgr(blue), bgr(red)}},
		{"by class", ByClass, [3][3]uint8{bgr(blue), bgr(red), bgr(blue)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {

			a := BoxAnnotator{Thickness: 1, Palette: Palette{red, blue}, Lookup: tc.lookup}

			out, err := a.Annotate(scene, d)

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			defer out.Close()

			// one rectangle per detection, checked on the left edge
			for i, box := range d.XYXY {
				x := int(box.X1())
				y := int(box.Y1()+box.Y2()) / 2

				if got := pixelAt(out, x, y); got != tc.want[i] {
					t.Errorf("box %d expected %v, got %v", i, tc.want[i], got)
				}
			}

			// inside of the boxes is untouched
			if got := pixelAt(out, 14, 14); got != pixelAt(scene, 14, 14) {
				t.Errorf("box interior was drawn on, got %v", got)
			}
		})
	}
}

func TestBoxAnnotatorDraw(t *testing.T) {

	img := newScene(32, 32)
	defer img.Close()

	d, _ := annotate.New([]annotate.Box{{4, 4, 12, 12}}, []int{0}, []float32{1})

	a := BoxAnnotator{Thickness: 1, Palette: Palette{red}}

	if err := a.Draw(&img, d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := pixelAt(img, 4, 8); got != bgr(red) {
		t.Errorf("expected box drawn in place, got %v", got)
	}
}
