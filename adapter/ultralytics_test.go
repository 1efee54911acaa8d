package adapter

import (
	"errors"
	"github.com/google/go-cmp/cmp"
	"github.com/swdee/go-annotate"
	"go.uber.org/zap"
	"strings"
	"testing"
)

func ultralyticsFixture() UltralyticsResult {
	return UltralyticsResult{
		Names:     map[int]string{0: "person", 16: "dog"},
		OrigShape: [2]int{40, 60},
		Boxes: &UltralyticsBoxes{
			XYXY: [][4]float32{{0, 0, 10, 10}, {20, 20, 40, 30}},
			Conf: []float32{0.9, 0.4},
			Cls:  []float32{0, 16},
		},
	}
}

func TestFromUltralytics(t *testing.T) {

	d, err := FromUltralytics(ultralyticsFixture(), DefaultOptions())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &annotate.Detections{
		XYXY:       []annotate.Box{{0, 0, 10, 10}, {20, 20, 40, 30}},
		ClassID:    []int{0, 16},
		ClassName:  []string{"person", "dog"},
		Confidence: []float32{0.9, 0.4},
	}

	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("FromUltralytics mismatch (-want +got):\n%s", diff)
	}
}

func TestFromUltralyticsMasks(t *testing.T) {

	r := ultralyticsFixture()
	r.Masks = &UltralyticsMasks{
		XY: [][][2]float32{
			{{0, 0}, {10, 0}, {10, 10}, {0, 10}},
			{},
		},
	}

	d, err := FromUltralytics(r, Options{Logger: zap.NewExample()})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !d.HasMasks() || len(d.Mask) != 2 {
		t.Fatalf("expected 2 masks, got %d", len(d.Mask))
	}

	if d.Mask[0].Width() != 60 || d.Mask[0].Height() != 40 {
		t.Errorf("expected 60x40 mask, got %dx%d", d.Mask[0].Width(), d.Mask[0].Height())
	}

	// empty outline falls back to the box
	if d.Mask[0].Area() != 100 || d.Mask[1].Area() != 200 {
		t.Errorf("unexpected mask areas %d, %d", d.Mask[0].Area(), d.Mask[1].Area())
	}
}

func TestFromUltralyticsErrors(t *testing.T) {

	noBoxes := ultralyticsFixture()
	noBoxes.Boxes = nil

	badConf := ultralyticsFixture()
	badConf.Boxes.Conf = []float32{0.9}

	noConf := ultralyticsFixture()
	noConf.Boxes.Conf = nil

	noCls := ultralyticsFixture()
	noCls.Boxes.Cls = nil

	noXYXY := ultralyticsFixture()
	noXYXY.Boxes.XYXY = nil

	badMasks := ultralyticsFixture()
	badMasks.Masks = &UltralyticsMasks{XY: [][][2]float32{{{0, 0}, {1, 0}, {1, 1}}}}

	noShape := ultralyticsFixture()
	noShape.OrigShape = [2]int{}
	noShape.Masks = &UltralyticsMasks{XY: [][][2]float32{{}, {}}}

	tests := []struct {
		name string
		r    UltralyticsResult
		want error
	}{
		{"missing boxes", noBoxes, ErrMissingField},
		{"confidence count", badConf, ErrMalformed},
		{"missing confidences", noConf, ErrMissingField},
		{"missing classes", noCls, ErrMissingField},
		{"missing xyxy", noXYXY, ErrMissingField},
		{"mask count", badMasks, ErrMalformed},
		{"missing orig shape", noShape, ErrMissingField},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := FromUltralytics(tc.r, DefaultOptions()); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParseUltralyticsJSON(t *testing.T) {

	input := `[
  {"name": "person", "class": 0, "confidence": 0.87,
   "box": {"x1": 2, "y1": 4, "x2": 12, "y2": 14},
   "segments": {"x": [2, 12, 12, 2], "y": [4, 4, 14, 14]}},
  {"name": "cat", "class": 15, "confidence": 0.12,
   "box": {"x1": 0, "y1": 0, "x2": 5, "y2": 5}}
]`

	d, err := ParseUltralyticsJSON(strings.NewReader(input), 32, 32,
		Options{MinConfidence: 0.5})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.Len() != 1 {
		t.Fatalf("expected low confidence cat to be dropped, got %d detections", d.Len())
	}

	if d.Label(0) != "person" || d.ClassID[0] != 0 {
		t.Errorf("unexpected detection %s/%d", d.Label(0), d.ClassID[0])
	}

	if d.Mask[0].Area() != 100 {
		t.Errorf("expected mask area 100, got %d", d.Mask[0].Area())
	}

	// segments need the image size
	if _, err := ParseUltralyticsJSON(strings.NewReader(input), 0, 0,
		DefaultOptions()); !errors.Is(err, ErrMissingField) {
		t.Errorf("expected ErrMissingField, got %v", err)
	}

	if _, err := ParseUltralyticsJSON(strings.NewReader(`{"boxes":`), 0, 0,
		DefaultOptions()); err == nil {
		t.Error("expected decoding error")
	}
}

func TestUltralyticsClassNameOverride(t *testing.T) {

	d, err := FromUltralytics(ultralyticsFixture(), Options{
		ClassNames: []string{"human"},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff([]string{"human", "16"}, d.ClassName); diff != "" {
		t.Errorf("class names mismatch (-want +got):\n%s", diff)
	}
}

func TestParseUltralyticsJSONMissingFields(t *testing.T) {

	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "missing confidence",
			input: `[{"name": "dog", "class": 16, "box": {"x1": 0, "y1": 0, "x2": 5, "y2": 5}}]`,
		},
		{
			name:  "missing class",
			input: `[{"name": "dog", "confidence": 0.8, "box": {"x1": 0, "y1": 0, "x2": 5, "y2": 5}}]`,
		},
		{
			name:  "missing box",
			input: `[{"name": "dog", "class": 16, "confidence": 0.8}]`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseUltralyticsJSON(strings.NewReader(tc.input), 0, 0,
				DefaultOptions()); !errors.Is(err, ErrMissingField) {
				t.Errorf("expected ErrMissingField, got %v", err)
			}
		})
	}
}
