package adapter

import (
	"fmt"
	"github.com/x448/float16"
	"sync"
)

// Tensor is a dense float32 model output in row major order as returned by
// generic tensor serving runtimes
type Tensor struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

var (
	f16LookupTable [65536]float32
	f16Once        sync.Once
)

// initF16 precomputes the float16 lookup table for faster conversion to
// float32
func initF16() {
	for i := range f16LookupTable {
		f16LookupTable[i] = float16.Frombits(uint16(i)).Float32()
	}
}

// NewTensor returns a Tensor after checking the data length agrees with the
// shape
func NewTensor(shape []int, data []float32) (Tensor, error) {

	size := 1

	for _, d := range shape {
		if d <= 0 {
			return Tensor{}, malformed("tensor", "invalid shape %v", shape)
		}
		size *= d
	}

	if len(data) != size {
		return Tensor{}, malformed("tensor", "shape %v needs %d values, got %d",
			shape, size, len(data))
	}

	return Tensor{Shape: shape, Data: data}, nil
}

// TensorFromFloat16 converts half precision output, given as the raw
// float16 bits, to a float32 Tensor
func TensorFromFloat16(shape []int, bits []uint16) (Tensor, error) {

	f16Once.Do(initF16)

	data := make([]float32, len(bits))

	for i, b := range bits {
		data[i] = f16LookupTable[b]
	}

	t, err := NewTensor(shape, data)

	if err != nil {
		return Tensor{}, fmt.Errorf("error converting float16 tensor: %w", err)
	}

	return t, nil
}
