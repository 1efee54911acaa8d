package adapter

import (
	"encoding/json"
	"fmt"
	"github.com/swdee/go-annotate"
	"io"
)

const inferenceSource = "inference"

// InferenceResponse mirrors the object detection and instance segmentation
// response returned by a Roboflow Inference server
type InferenceResponse struct {
	InferenceID string                `json:"inference_id,omitempty"`
	Time        float64               `json:"time,omitempty"`
	Image       *InferenceImage       `json:"image"`
	Predictions []InferencePrediction `json:"predictions"`
}

// InferenceImage holds the dimensions of the image inference was run on
type InferenceImage struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// InferencePrediction is a single object found by Roboflow Inference.  The
// box is given by its center point and dimensions.
type InferencePrediction struct {
	X           float32  `json:"x"`
	Y           float32  `json:"y"`
	Width       float32  `json:"width"`
	Height      float32  `json:"height"`
	Confidence  *float32 `json:"confidence"`
	Class       string   `json:"class"`
	ClassID     *int     `json:"class_id"`
	DetectionID string   `json:"detection_id,omitempty"`
	// Points is the segment outline for instance segmentation models
	Points []InferencePoint `json:"points,omitempty"`
}

// InferencePoint is a point on a segment outline
type InferencePoint struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// FromInference converts a Roboflow Inference response into Detections.  If
// any prediction carries segment points then all detections get a mask.
func FromInference(r InferenceResponse, opts Options) (*annotate.Detections, error) {

	if r.Image == nil || r.Image.Width <= 0 || r.Image.Height <= 0 {
		return nil, missing(inferenceSource, "image dimensions")
	}

	if r.Predictions == nil {
		return nil, missing(inferenceSource, "predictions")
	}

	n := len(r.Predictions)

	d := &annotate.Detections{
		XYXY:       make([]annotate.Box, n),
		ClassID:    make([]int, n),
		ClassName:  make([]string, n),
		Confidence: make([]float32, n),
	}

	withPoints := false

	for i, p := range r.Predictions {

		if p.Width < 0 || p.Height < 0 {
			return nil, malformed(inferenceSource, "prediction %d has negative size %gx%g",
				i, p.Width, p.Height)
		}

		if p.Confidence == nil {
			return nil, missing(inferenceSource, fmt.Sprintf("confidence for prediction %d", i))
		}

		if p.ClassID == nil {
			return nil, missing(inferenceSource, fmt.Sprintf("class_id for prediction %d", i))
		}

		d.XYXY[i] = annotate.NewBoxFromCenter(p.X, p.Y, p.Width, p.Height)
		d.ClassID[i] = *p.ClassID
		d.ClassName[i] = p.Class
		d.Confidence[i] = *p.Confidence

		if len(p.Points) > 0 {
			withPoints = true
		}
	}

	if withPoints {

		d.Mask = make([]*annotate.Mask, n)

		for i, p := range r.Predictions {

			poly := make([][2]float32, len(p.Points))

			for j, pt := range p.Points {
				poly[j] = [2]float32{pt.X, pt.Y}
			}

			d.Mask[i] = polygonOrBoxMask(poly, d.XYXY[i], r.Image.Width,
				r.Image.Height, opts, inferenceSource)
		}
	}

	return opts.finish(d, inferenceSource)
}

// ParseInferenceJSON decodes a Roboflow Inference JSON response and converts
// it into Detections
func ParseInferenceJSON(rd io.Reader, opts Options) (*annotate.Detections, error) {

	var resp InferenceResponse

	if err := json.NewDecoder(rd).Decode(&resp); err != nil {
		return nil, fmt.Errorf("error decoding %s json: %w", inferenceSource, err)
	}

	return FromInference(resp, opts)
}
