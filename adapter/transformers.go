package adapter

import (
	"encoding/json"
	"fmt"
	"github.com/swdee/go-annotate"
	"go.uber.org/zap"
	"io"
	"sort"
)

const transformersSource = "transformers"

// TransformersDetection mirrors the output of an image processor's
// post_process_object_detection() for a single image with tensors converted
// to lists
type TransformersDetection struct {
	Scores []float32 `json:"scores"`
	Labels []int     `json:"labels"`
	// Boxes are in xyxy format scaled to the target size passed to post
	// processing
	Boxes [][4]float32 `json:"boxes"`
}

// TransformersSegmentation mirrors the output of an image processor's
// post_process_instance_segmentation() for a single image
type TransformersSegmentation struct {
	// Segmentation is a height x width map where each pixel holds the ID of
	// the segment it belongs to, -1 or 0 for none
	Segmentation [][]int                  `json:"segmentation"`
	SegmentsInfo []TransformersSegmentInfo `json:"segments_info"`
}

// TransformersSegmentInfo describes one segment of a TransformersSegmentation
type TransformersSegmentInfo struct {
	ID       int      `json:"id"`
	LabelID  *int     `json:"label_id"`
	Score    *float32 `json:"score"`
	WasFused bool     `json:"was_fused,omitempty"`
}

// TransformersPipelineBox is the box of a pipeline("object-detection") entry
type TransformersPipelineBox struct {
	XMin float32 `json:"xmin"`
	YMin float32 `json:"ymin"`
	XMax float32 `json:"xmax"`
	YMax float32 `json:"ymax"`
}

// TransformersPipelineResult is a single entry of the list returned by the
// pipeline("object-detection") helper
type TransformersPipelineResult struct {
	Score *float32                 `json:"score"`
	Label string                   `json:"label"`
	Box   *TransformersPipelineBox `json:"box"`
}

// FromTransformers converts object detection post processing output into
// Detections.  id2label is the model config's mapping of label IDs to class
// names and may be nil.
func FromTransformers(r TransformersDetection, id2label map[int]string,
	opts Options) (*annotate.Detections, error) {

	if r.Boxes == nil {
		return nil, missing(transformersSource, "boxes")
	}

	if r.Scores == nil {
		return nil, missing(transformersSource, "scores")
	}

	if r.Labels == nil {
		return nil, missing(transformersSource, "labels")
	}

	n := len(r.Boxes)

	if len(r.Scores) != n || len(r.Labels) != n {
		return nil, malformed(transformersSource, "%d boxes with %d scores and %d labels",
			n, len(r.Scores), len(r.Labels))
	}

	d := &annotate.Detections{
		XYXY:       make([]annotate.Box, n),
		ClassID:    make([]int, n),
		Confidence: make([]float32, n),
	}

	for i := 0; i < n; i++ {
		d.XYXY[i] = annotate.Box(r.Boxes[i])
		d.ClassID[i] = r.Labels[i]
		d.Confidence[i] = r.Scores[i]
	}

	d.ClassName = namesFromID2Label(d.ClassID, id2label)

	return opts.finish(d, transformersSource)
}

// ParseTransformersJSON decodes object detection post processing output and
// converts it into Detections
func ParseTransformersJSON(rd io.Reader, id2label map[int]string,
	opts Options) (*annotate.Detections, error) {

	var r TransformersDetection

	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("error decoding %s json: %w", transformersSource, err)
	}

	return FromTransformers(r, id2label, opts)
}

// FromTransformersPipeline converts the list returned by the
// pipeline("object-detection") helper into Detections.  The pipeline only
// returns class names, so class IDs are looked up in label2id when given,
// otherwise IDs are assigned in order of first appearance.
func FromTransformersPipeline(entries []TransformersPipelineResult,
	label2id map[string]int, opts Options) (*annotate.Detections, error) {

	n := len(entries)

	d := &annotate.Detections{
		XYXY:       make([]annotate.Box, n),
		ClassID:    make([]int, n),
		ClassName:  make([]string, n),
		Confidence: make([]float32, n),
	}

	seen := make(map[string]int)

	for i, e := range entries {

		if e.Box == nil {
			return nil, missing(transformersSource, fmt.Sprintf("box for entry %d", i))
		}

		if e.Score == nil {
			return nil, missing(transformersSource, fmt.Sprintf("score for entry %d", i))
		}

		if e.Label == "" {
			return nil, missing(transformersSource, fmt.Sprintf("label for entry %d", i))
		}

		id, ok := label2id[e.Label]

		if !ok {
			if id, ok = seen[e.Label]; !ok {
				id = len(seen)
				seen[e.Label] = id
			}
		}

		d.XYXY[i] = annotate.Box{e.Box.XMin, e.Box.YMin, e.Box.XMax, e.Box.YMax}
		d.ClassID[i] = id
		d.ClassName[i] = e.Label
		d.Confidence[i] = *e.Score
	}

	return opts.finish(d, transformersSource)
}

// FromTransformersSegmentation converts instance segmentation post
// processing output into Detections.  Each segment becomes a detection with
// its mask scaled to targetWidth x targetHeight and its box derived from the
// mask bounds.  Segments that cover no pixels are dropped.
func FromTransformersSegmentation(r TransformersSegmentation, id2label map[int]string,
	targetWidth, targetHeight int, opts Options) (*annotate.Detections, error) {

	if r.Segmentation == nil {
		return nil, missing(transformersSource, "segmentation")
	}

	if r.SegmentsInfo == nil {
		return nil, missing(transformersSource, "segments_info")
	}

	height := len(r.Segmentation)
	width := 0

	if height > 0 {
		width = len(r.Segmentation[0])
	}

	for y, row := range r.Segmentation {
		if len(row) != width {
			return nil, malformed(transformersSource, "segmentation row %d has %d columns, expected %d",
				y, len(row), width)
		}
	}

	if targetWidth <= 0 || targetHeight <= 0 {
		targetWidth, targetHeight = width, height
	}

	// map segment IDs to their position in segments_info
	index := make(map[int]int, len(r.SegmentsInfo))

	for i, s := range r.SegmentsInfo {
		if s.ID <= 0 {
			continue
		}
		if _, dup := index[s.ID]; dup {
			return nil, malformed(transformersSource, "segment id %d listed twice", s.ID)
		}
		if s.LabelID == nil {
			return nil, missing(transformersSource, fmt.Sprintf("label_id for segment %d", s.ID))
		}
		if s.Score == nil {
			return nil, missing(transformersSource, fmt.Sprintf("score for segment %d", s.ID))
		}
		index[s.ID] = i
	}

	masks := make([]*annotate.Mask, len(r.SegmentsInfo))

	for y, row := range r.Segmentation {
		for x, id := range row {

			i, ok := index[id]

			if !ok {
				continue
			}

			if masks[i] == nil {
				masks[i] = annotate.NewMask(width, height)
			}

			masks[i].Mark(x, y)
		}
	}

	log := opts.logger()

	// keep segments in order of their ID
	ids := make([]int, 0, len(index))

	for id := range index {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	d := &annotate.Detections{
		XYXY:       make([]annotate.Box, 0, len(ids)),
		Mask:       make([]*annotate.Mask, 0, len(ids)),
		ClassID:    make([]int, 0, len(ids)),
		Confidence: make([]float32, 0, len(ids)),
	}

	for _, id := range ids {

		i := index[id]
		info := r.SegmentsInfo[i]

		if masks[i] == nil {
			log.Debug("dropped segment with empty mask",
				zap.String("source", transformersSource),
				zap.Int("segment_id", id),
			)
			continue
		}

		m := resizeMask(masks[i], targetWidth, targetHeight)
		box, ok := m.BoundingBox()

		if !ok {
			log.Debug("dropped segment lost when resizing mask",
				zap.String("source", transformersSource),
				zap.Int("segment_id", id),
			)
			continue
		}

		d.XYXY = append(d.XYXY, box)
		d.Mask = append(d.Mask, m)
		d.ClassID = append(d.ClassID, *info.LabelID)
		d.Confidence = append(d.Confidence, *info.Score)
	}

	d.ClassName = namesFromID2Label(d.ClassID, id2label)

	return opts.finish(d, transformersSource)
}

// ParseTransformersSegmentationJSON decodes instance segmentation post
// processing output and converts it into Detections
func ParseTransformersSegmentationJSON(rd io.Reader, id2label map[int]string,
	targetWidth, targetHeight int, opts Options) (*annotate.Detections, error) {

	var r TransformersSegmentation

	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("error decoding %s json: %w", transformersSource, err)
	}

	return FromTransformersSegmentation(r, id2label, targetWidth, targetHeight, opts)
}

// namesFromID2Label returns the class names of the given IDs or nil if no
// mapping was supplied
func namesFromID2Label(ids []int, id2label map[int]string) []string {

	if id2label == nil {
		return nil
	}

	names := make([]string, len(ids))

	for i, id := range ids {
		names[i] = id2label[id]
	}

	return names
}
