package adapter

import (
	"errors"
	"github.com/google/go-cmp/cmp"
	"github.com/swdee/go-annotate"
	"testing"
)

// yolov8Anchors are cx, cy, w, h, score class 0, score class 1
var yolov8Anchors = [][6]float32{
	{100, 100, 20, 20, 0.9, 0.1},
	{102, 100, 20, 20, 0.8, 0.05},
	{300, 300, 40, 40, 0.2, 0.6},
	{500, 500, 10, 10, 0.1, 0.2},
}

// yolov8Tensor lays the anchors out as [1, 6, N] or transposed as [1, N, 6]
func yolov8Tensor(transposed bool) Tensor {

	n := len(yolov8Anchors)
	data := make([]float32, 6*n)

	for a, anchor := range yolov8Anchors {
		for attr, v := range anchor {
			if transposed {
				data[a*6+attr] = v
			} else {
				data[attr*n+a] = v
			}
		}
	}

	if transposed {
		return Tensor{Shape: []int{1, n, 6}, Data: data}
	}

	return Tensor{Shape: []int{1, 6, n}, Data: data}
}

func yolov8TestParams() YOLOv8Params {
	p := YOLOv8COCOParams()
	p.ObjectClassNum = 2
	return p
}

func TestFromYOLOv8(t *testing.T) {

	want := &annotate.Detections{
		XYXY:       []annotate.Box{{90, 90, 110, 110}, {280, 280, 320, 320}},
		ClassID:    []int{0, 1},
		Confidence: []float32{0.9, 0.6},
	}

	for _, transposed := range []bool{false, true} {

		d, err := FromYOLOv8(yolov8Tensor(transposed), Identity(640, 640),
			yolov8TestParams(), DefaultOptions())

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if diff := cmp.Diff(want, d); diff != "" {
			t.Errorf("FromYOLOv8 transposed=%v mismatch (-want +got):\n%s", transposed, diff)
		}
	}
}

func TestFromYOLOv8Letterbox(t *testing.T) {

	p := yolov8TestParams()
	p.MaxObjectNumber = 1

	d, err := FromYOLOv8(yolov8Tensor(false), NewLetterbox(640, 480, 640, 640), p,
		Options{ClassNames: []string{"car", "bus"}})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.Len() != 1 {
		t.Fatalf("expected 1 detection, got %d", d.Len())
	}

	// (90,90)-(110,110) minus 80 y padding at a scale of 1
	if d.XYXY[0] != (annotate.Box{90, 10, 110, 30}) {
		t.Errorf("unexpected box %v", d.XYXY[0])
	}

	if d.Label(0) != "car" {
		t.Errorf("expected label car, got %s", d.Label(0))
	}
}

func TestFromYOLOv8Errors(t *testing.T) {

	tests := []struct {
		name string
		t    Tensor
		lb   Letterbox
	}{
		{"rank", Tensor{Shape: []int{6, 4}, Data: make([]float32, 24)}, Identity(640, 640)},
		{"classes", Tensor{Shape: []int{1, 7, 4}, Data: make([]float32, 28)}, Identity(640, 640)},
		{"data length", Tensor{Shape: []int{1, 6, 4}, Data: make([]float32, 10)}, Identity(640, 640)},
		{"letterbox", yolov8Tensor(false), Letterbox{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := FromYOLOv8(tc.t, tc.lb, yolov8TestParams(),
				DefaultOptions()); !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestTensorFromFloat16(t *testing.T) {

	// 1.0, -2.0, 0.5, 0
	tensor, err := TensorFromFloat16([]int{1, 4}, []uint16{0x3c00, 0xc000, 0x3800, 0x0000})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff([]float32{1, -2, 0.5, 0}, tensor.Data); diff != "" {
		t.Errorf("float16 conversion mismatch (-want +got):\n%s", diff)
	}

	if _, err := TensorFromFloat16([]int{2, 4}, []uint16{0x3c00}); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}

	if _, err := NewTensor([]int{0, 4}, nil); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}
