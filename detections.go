package annotate

import (
	"errors"
	"fmt"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"strconv"
)

var (
	// ErrLengthMismatch is returned when the per detection sequences of a
	// Detections record are not all the same length
	ErrLengthMismatch = errors.New("detection fields have mismatched lengths")
	// ErrIndexOutOfRange is returned when selecting a detection index that
	// does not exist
	ErrIndexOutOfRange = errors.New("detection index out of range")
	// ErrIncompatible is returned when merging records where some have masks
	// or class names and others do not
	ErrIncompatible = errors.New("detections are incompatible")
	// ErrMaskSize is returned when a mask does not match the image dimensions
	ErrMaskSize = errors.New("mask size mismatch")
)

// Detections is the normalised result of a single inference call.  Each
// field is a sequence with one entry per detected object and the i-th entry
// of every field describes the same object.
type Detections struct {
	// XYXY are the bounding boxes of the objects in source image pixels
	XYXY []Box
	// Mask are the segmentation masks of the objects.  It is nil when the
	// model did not produce segmentation output.
	Mask []*Mask
	// ClassID is the index of the class in the labels the model was
	// trained on
	ClassID []int
	// ClassName is the human readable name of the class, nil if the names
	// are not known
	ClassName []string
	// Confidence is the score of each detection, typically in the range [0,1]
	Confidence []float32
}

// New returns a Detections record from boxes, class ids and confidences
// after checking they are index aligned
func New(xyxy []Box, classID []int, confidence []float32) (*Detections, error) {

	d := &Detections{
		XYXY:       xyxy,
		ClassID:    classID,
		Confidence: confidence,
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	return d, nil
}

// Empty returns a Detections record holding no objects
func Empty() *Detections {
	return &Detections{
		XYXY:       []Box{},
		ClassID:    []int{},
		Confidence: []float32{},
	}
}

// Validate checks that all per detection sequences are the same length.
// Every mismatch found is reported.
func (d *Detections) Validate() error {

	n := len(d.XYXY)
	var err error

	check := func(name string, l int) {
		if l != n {
			err = multierr.Append(err, fmt.Errorf("%w: %s has %d entries, expected %d",
				ErrLengthMismatch, name, l, n))
		}
	}

	check("class_id", len(d.ClassID))
	check("confidence", len(d.Confidence))

	if d.Mask != nil {
		check("mask", len(d.Mask))

		for i, m := range d.Mask {
			if m == nil {
				err = multierr.Append(err, fmt.Errorf("%w: mask %d is nil", ErrLengthMismatch, i))
			}
		}
	}

	if d.ClassName != nil {
		check("class_name", len(d.ClassName))
	}

	return err
}

// Len returns the number of detections
func (d *Detections) Len() int {
	return len(d.XYXY)
}

// IsEmpty returns true if the record holds no detections
func (d *Detections) IsEmpty() bool {
	return d.Len() == 0
}

// HasMasks returns true if the record carries segmentation masks
func (d *Detections) HasMasks() bool {
	return d.Mask != nil
}

// Label returns the class name of the i-th detection or its class ID when
// no names are known
func (d *Detections) Label(i int) string {
	if d.ClassName != nil && d.ClassName[i] != "" {
		return d.ClassName[i]
	}
	return strconv.Itoa(d.ClassID[i])
}

// Select returns a new record holding only the detections at the given
// indices, in the order given
func (d *Detections) Select(indices []int) (*Detections, error) {

	out := &Detections{
		XYXY:       make([]Box, 0, len(indices)),
		ClassID:    make([]int, 0, len(indices)),
		Confidence: make([]float32, 0, len(indices)),
	}

	if d.Mask != nil {
		out.Mask = make([]*Mask, 0, len(indices))
	}

	if d.ClassName != nil {
		out.ClassName = make([]string, 0, len(indices))
	}

	for _, i := range indices {

		if i < 0 || i >= d.Len() {
			return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, d.Len())
		}

		out.XYXY = append(out.XYXY, d.XYXY[i])
		out.ClassID = append(out.ClassID, d.ClassID[i])
		out.Confidence = append(out.Confidence, d.Confidence[i])

		if d.Mask != nil {
			out.Mask = append(out.Mask, d.Mask[i])
		}

		if d.ClassName != nil {
			out.ClassName = append(out.ClassName, d.ClassName[i])
		}
	}

	return out, nil
}

// Filter returns a new record holding the detections for which keep returns
// true
func (d *Detections) Filter(keep func(i int) bool) *Detections {

	indices := lo.Filter(lo.Range(d.Len()), func(i int, _ int) bool {
		return keep(i)
	})

	// indices are always in range so Select can not fail
	out, _ := d.Select(indices)
	return out
}

// WithMinConfidence returns the detections with a confidence of at least min
func (d *Detections) WithMinConfidence(min float32) *Detections {
	return d.Filter(func(i int) bool {
		return d.Confidence[i] >= min
	})
}

// WithClasses returns the detections belonging to one of the given classes
func (d *Detections) WithClasses(classIDs ...int) *Detections {
	return d.Filter(func(i int) bool {
		return lo.Contains(classIDs, d.ClassID[i])
	})
}

// WithMinArea returns the detections whose area is at least area pixels.
// Mask area is used when masks are present, otherwise box area.
func (d *Detections) WithMinArea(area float64) *Detections {
	areas := d.Area()
	return d.Filter(func(i int) bool {
		return areas[i] >= area
	})
}

// Area returns the area of each detection, using the mask area when masks
// are present and the bounding box area otherwise
func (d *Detections) Area() []float64 {

	if !d.HasMasks() {
		return d.BoxArea()
	}

	areas := make([]float64, len(d.Mask))

	for i, m := range d.Mask {
		if m == nil {
			areas[i] = d.XYXY[i].Area()
			continue
		}
		areas[i] = float64(m.Area())
	}

	return areas
}

// BoxArea returns the bounding box area of each detection
func (d *Detections) BoxArea() []float64 {
	return lo.Map(d.XYXY, func(b Box, _ int) float64 {
		return b.Area()
	})
}

// Merge concatenates the records into a single record.  All records must
// agree on whether they carry masks and class names, empty records are
// skipped.
func Merge(records ...*Detections) (*Detections, error) {

	nonEmpty := lo.Filter(records, func(d *Detections, _ int) bool {
		return d != nil && !d.IsEmpty()
	})

	if len(nonEmpty) == 0 {
		return Empty(), nil
	}

	withMasks := nonEmpty[0].HasMasks()
	withNames := nonEmpty[0].ClassName != nil

	out := Empty()

	if withMasks {
		out.Mask = []*Mask{}
	}

	if withNames {
		out.ClassName = []string{}
	}

	for i, d := range nonEmpty {

		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("record %d is invalid: %w", i, err)
		}

		if d.HasMasks() != withMasks {
			return nil, fmt.Errorf("%w: record %d mask presence differs", ErrIncompatible, i)
		}

		if (d.ClassName != nil) != withNames {
			return nil, fmt.Errorf("%w: record %d class name presence differs", ErrIncompatible, i)
		}

		out.XYXY = append(out.XYXY, d.XYXY...)
		out.ClassID = append(out.ClassID, d.ClassID...)
		out.Confidence = append(out.Confidence, d.Confidence...)

		if withMasks {
			out.Mask = append(out.Mask, d.Mask...)
		}

		if withNames {
			out.ClassName = append(out.ClassName, d.ClassName...)
		}
	}

	return out, nil
}
