package adapter

import (
	"errors"
	"fmt"
	"github.com/swdee/go-annotate"
	"go.uber.org/zap"
)

var (
	// ErrMissingField is returned when a framework result lacks a field
	// needed to build the detections
	ErrMissingField = errors.New("result is missing a required field")
	// ErrMalformed is returned when the fields of a framework result
	// contradict each other
	ErrMalformed = errors.New("result is malformed")
)

// Options are optional settings shared by all adapters
type Options struct {
	// Logger receives debug messages about predictions that were dropped or
	// clipped during conversion.  Defaults to a no-op logger.
	Logger *zap.Logger
	// ClassNames overrides the class names supplied by the framework.  The
	// class ID is the index into the list.
	ClassNames []string
	// MinConfidence drops predictions scoring below this value
	MinConfidence float32
}

// DefaultOptions returns Options with a no-op logger and no filtering
func DefaultOptions() Options {
	return Options{
		Logger: zap.NewNop(),
	}
}

// logger returns the configured logger or a no-op one
func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// finish applies the common post conversion steps of every adapter, class
// name overrides, confidence filtering and validation
func (o Options) finish(d *annotate.Detections, source string) (*annotate.Detections, error) {

	if o.ClassNames != nil {
		d = d.WithClassNames(o.ClassNames)
	}

	if o.MinConfidence > 0 {
		before := d.Len()
		d = d.WithMinConfidence(o.MinConfidence)

		if dropped := before - d.Len(); dropped > 0 {
			o.logger().Debug("dropped low confidence predictions",
				zap.String("source", source),
				zap.Int("dropped", dropped),
				zap.Float32("min_confidence", o.MinConfidence),
			)
		}
	}

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%s result produced invalid detections: %w", source, err)
	}

	return d, nil
}

// missing returns an ErrMissingField error for the named field
func missing(source, field string) error {
	return fmt.Errorf("%w: %s result has no %s", ErrMissingField, source, field)
}

// malformed returns an ErrMalformed error with the given description
func malformed(source, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformed, source, fmt.Sprintf(format, args...))
}
