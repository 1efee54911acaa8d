package adapter

import (
	"encoding/json"
	"fmt"
	"github.com/swdee/go-annotate"
	"go.uber.org/zap"
	"io"
)

const ultralyticsSource = "ultralytics"

// UltralyticsResult mirrors the attributes of an Ultralytics YOLO Results
// object for a single image
type UltralyticsResult struct {
	// Names maps class IDs to class names
	Names map[int]string `json:"names"`
	// OrigShape is the height and width of the source image
	OrigShape [2]int `json:"orig_shape"`
	// Boxes holds the detection boxes
	Boxes *UltralyticsBoxes `json:"boxes"`
	// Masks holds the segment outlines, nil for detection only models
	Masks *UltralyticsMasks `json:"masks,omitempty"`
}

// UltralyticsBoxes mirrors the Results.boxes attribute
type UltralyticsBoxes struct {
	// XYXY are the boxes in source image pixels
	XYXY [][4]float32 `json:"xyxy"`
	// Conf are the confidence scores
	Conf []float32 `json:"conf"`
	// Cls are the class IDs, which Ultralytics returns as floats
	Cls []float32 `json:"cls"`
}

// UltralyticsMasks mirrors the Results.masks attribute
type UltralyticsMasks struct {
	// XY are the segment outline polygons in source image pixels, one per
	// detection box
	XY [][][2]float32 `json:"xy"`
}

// UltralyticsSummary is a single entry of the list produced by
// Results.to_json() and Results.summary()
type UltralyticsSummary struct {
	Name       string              `json:"name"`
	Class      *int                `json:"class"`
	Confidence *float32            `json:"confidence"`
	Box        *UltralyticsBox     `json:"box"`
	Segments   *UltralyticsSegment `json:"segments,omitempty"`
}

// UltralyticsBox is the box of an UltralyticsSummary entry
type UltralyticsBox struct {
	X1 float32 `json:"x1"`
	Y1 float32 `json:"y1"`
	X2 float32 `json:"x2"`
	Y2 float32 `json:"y2"`
}

// UltralyticsSegment is the segment outline of an UltralyticsSummary entry
// given as separate lists of x and y coordinates
type UltralyticsSegment struct {
	X []float32 `json:"x"`
	Y []float32 `json:"y"`
}

// FromUltralytics converts an Ultralytics Results object into Detections
func FromUltralytics(r UltralyticsResult, opts Options) (*annotate.Detections, error) {

	if r.Boxes == nil {
		return nil, missing(ultralyticsSource, "boxes")
	}

	if r.Boxes.XYXY == nil {
		return nil, missing(ultralyticsSource, "boxes.xyxy")
	}

	if r.Boxes.Conf == nil {
		return nil, missing(ultralyticsSource, "boxes.conf")
	}

	if r.Boxes.Cls == nil {
		return nil, missing(ultralyticsSource, "boxes.cls")
	}

	n := len(r.Boxes.XYXY)

	if len(r.Boxes.Conf) != n || len(r.Boxes.Cls) != n {
		return nil, malformed(ultralyticsSource, "%d boxes with %d confidences and %d classes",
			n, len(r.Boxes.Conf), len(r.Boxes.Cls))
	}

	d := &annotate.Detections{
		XYXY:       make([]annotate.Box, n),
		ClassID:    make([]int, n),
		Confidence: make([]float32, n),
	}

	if r.Names != nil {
		d.ClassName = make([]string, n)
	}

	for i := 0; i < n; i++ {
		d.XYXY[i] = annotate.Box(r.Boxes.XYXY[i])
		d.ClassID[i] = int(r.Boxes.Cls[i])
		d.Confidence[i] = r.Boxes.Conf[i]

		if r.Names != nil {
			d.ClassName[i] = r.Names[d.ClassID[i]]
		}
	}

	if r.Masks != nil {

		height, width := r.OrigShape[0], r.OrigShape[1]

		if height <= 0 || width <= 0 {
			return nil, missing(ultralyticsSource, "orig_shape")
		}

		if len(r.Masks.XY) != n {
			return nil, malformed(ultralyticsSource, "%d boxes with %d masks", n, len(r.Masks.XY))
		}

		d.Mask = make([]*annotate.Mask, n)

		for i, poly := range r.Masks.XY {
			d.Mask[i] = polygonOrBoxMask(poly, d.XYXY[i], width, height, opts, ultralyticsSource)
		}
	}

	return opts.finish(d, ultralyticsSource)
}

// ParseUltralyticsJSON decodes the output of Results.to_json() and converts
// it into Detections.  The image dimensions are needed to rasterise segment
// outlines and may be zero for detection only results.
func ParseUltralyticsJSON(rd io.Reader, width, height int,
	opts Options) (*annotate.Detections, error) {

	var entries []UltralyticsSummary

	if err := json.NewDecoder(rd).Decode(&entries); err != nil {
		return nil, fmt.Errorf("error decoding %s json: %w", ultralyticsSource, err)
	}

	return FromUltralyticsSummary(entries, width, height, opts)
}

// FromUltralyticsSummary converts the list form of Ultralytics results into
// Detections
func FromUltralyticsSummary(entries []UltralyticsSummary, width, height int,
	opts Options) (*annotate.Detections, error) {

	n := len(entries)

	d := &annotate.Detections{
		XYXY:       make([]annotate.Box, n),
		ClassID:    make([]int, n),
		ClassName:  make([]string, n),
		Confidence: make([]float32, n),
	}

	withSegments := false

	for i, e := range entries {

		if e.Box == nil {
			return nil, missing(ultralyticsSource, fmt.Sprintf("box for entry %d", i))
		}

		if e.Class == nil {
			return nil, missing(ultralyticsSource, fmt.Sprintf("class for entry %d", i))
		}

		if e.Confidence == nil {
			return nil, missing(ultralyticsSource, fmt.Sprintf("confidence for entry %d", i))
		}

		d.XYXY[i] = annotate.Box{e.Box.X1, e.Box.Y1, e.Box.X2, e.Box.Y2}
		d.ClassID[i] = *e.Class
		d.ClassName[i] = e.Name
		d.Confidence[i] = *e.Confidence

		if e.Segments != nil {
			withSegments = true
		}
	}

	if withSegments {

		if width <= 0 || height <= 0 {
			return nil, missing(ultralyticsSource, "image size for segments")
		}

		d.Mask = make([]*annotate.Mask, n)

		for i, e := range entries {

			var poly [][2]float32

			if e.Segments != nil {

				if len(e.Segments.X) != len(e.Segments.Y) {
					return nil, malformed(ultralyticsSource, "entry %d has %d x and %d y segment points",
						i, len(e.Segments.X), len(e.Segments.Y))
				}

				poly = make([][2]float32, len(e.Segments.X))

				for j := range e.Segments.X {
					poly[j] = [2]float32{e.Segments.X[j], e.Segments.Y[j]}
				}
			}

			d.Mask[i] = polygonOrBoxMask(poly, d.XYXY[i], width, height, opts, ultralyticsSource)
		}
	}

	return opts.finish(d, ultralyticsSource)
}

// polygonOrBoxMask rasterises the polygon, falling back to filling the
// bounding box when the prediction has no usable outline
func polygonOrBoxMask(poly [][2]float32, box annotate.Box, width, height int,
	opts Options, source string) *annotate.Mask {

	if len(poly) < 3 {
		opts.logger().Debug("prediction has no segment outline, using box as mask",
			zap.String("source", source),
			zap.Int("points", len(poly)),
		)
		return annotate.MaskFromBox(box, width, height)
	}

	return PolygonToMask(poly, width, height)
}
