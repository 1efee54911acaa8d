package adapter

import (
	"github.com/swdee/go-annotate"
	"go.uber.org/zap"
)

const yolov8Source = "yolov8"

// YOLOv8Params defines the struct containing the YOLOv8 parameters to use
// when decoding raw output tensors
type YOLOv8Params struct {
	// BoxThreshold is the minimum probability score required for a bounding box
	// region to be considered for processing
	BoxThreshold float32
	// NMSThreshold is the Non-Maximum Suppression threshold used for defining
	// the maximum allowed Intersection Over Union (IoU) between two
	// bounding boxes for both to be kept
	NMSThreshold float32
	// ObjectClassNum is the number of different object classes the Model has
	// been trained with
	ObjectClassNum int
	// MaxObjectNumber is the maximum number of objects detected that can be
	// returned
	MaxObjectNumber int
}

// YOLOv8COCOParams returns an instance of YOLOv8Params configured with
// default values for a Model trained on the COCO dataset featuring:
// - Object Classes: 80
// - Box Threshold: 0.25
// - NMS Threshold: 0.45
// - Maximum Object Number: 64
func YOLOv8COCOParams() YOLOv8Params {
	return YOLOv8Params{
		BoxThreshold:    0.25,
		NMSThreshold:    0.45,
		ObjectClassNum:  80,
		MaxObjectNumber: 64,
	}
}

// FromYOLOv8 decodes the raw output tensor of an exported YOLOv8 detection
// model into Detections.  The tensor has shape [1, 4+classes, anchors] where
// each anchor holds the box center, width, height and the per class scores.
// The transposed layout [1, anchors, 4+classes] is also accepted.  Boxes are
// mapped back through the letterbox to source image pixels.
func FromYOLOv8(t Tensor, lb Letterbox, p YOLOv8Params,
	opts Options) (*annotate.Detections, error) {

	if p.ObjectClassNum <= 0 {
		return nil, malformed(yolov8Source, "object class number %d", p.ObjectClassNum)
	}

	if !lb.valid() {
		return nil, malformed(yolov8Source, "letterbox has no source dimensions")
	}

	attrs := 4 + p.ObjectClassNum

	if len(t.Shape) != 3 || t.Shape[0] != 1 {
		return nil, malformed(yolov8Source, "expected tensor shape [1, %d, N], got %v",
			attrs, t.Shape)
	}

	var anchors int
	var at func(attr, anchor int) float32

	switch {
	case t.Shape[1] == attrs:
		anchors = t.Shape[2]
		at = func(attr, anchor int) float32 {
			return t.Data[attr*anchors+anchor]
		}

	case t.Shape[2] == attrs:
		anchors = t.Shape[1]
		at = func(attr, anchor int) float32 {
			return t.Data[anchor*attrs+attr]
		}

	default:
		return nil, malformed(yolov8Source, "tensor shape %v does not hold %d classes",
			t.Shape, p.ObjectClassNum)
	}

	if len(t.Data) != attrs*anchors {
		return nil, malformed(yolov8Source, "tensor shape %v needs %d values, got %d",
			t.Shape, attrs*anchors, len(t.Data))
	}

	d := &annotate.Detections{
		XYXY:       make([]annotate.Box, 0),
		ClassID:    make([]int, 0),
		Confidence: make([]float32, 0),
	}

	for a := 0; a < anchors; a++ {

		maxClassID := -1
		maxScore := p.BoxThreshold

		for c := 0; c < p.ObjectClassNum; c++ {
			if score := at(4+c, a); score > maxScore {
				maxScore = score
				maxClassID = c
			}
		}

		if maxClassID < 0 {
			continue
		}

		box := annotate.NewBoxFromCenter(at(0, a), at(1, a), at(2, a), at(3, a))

		d.XYXY = append(d.XYXY, box)
		d.ClassID = append(d.ClassID, maxClassID)
		d.Confidence = append(d.Confidence, maxScore)
	}

	candidates := d.Len()
	d = d.NonMaxSuppression(p.NMSThreshold, false)

	if p.MaxObjectNumber > 0 && d.Len() > p.MaxObjectNumber {
		opts.logger().Debug("dropped detections over maximum object number",
			zap.String("source", yolov8Source),
			zap.Int("dropped", d.Len()-p.MaxObjectNumber),
		)
		d = d.Filter(func(i int) bool { return i < p.MaxObjectNumber })
	}

	for i, box := range d.XYXY {
		d.XYXY[i] = lb.Reverse(box)
	}

	opts.logger().Debug("decoded tensor",
		zap.String("source", yolov8Source),
		zap.Int("anchors", anchors),
		zap.Int("candidates", candidates),
		zap.Int("kept", d.Len()),
	)

	return opts.finish(d, yolov8Source)
}
