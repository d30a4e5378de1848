package preprocess

import (
	"fmt"

	"ripple/internal/butler"
)

// Tensor is a dense float32 array with an explicit shape. Image cutouts are
// 2-D (height, width).
type Tensor struct {
	Shape []int
	Data  []float32
}

// NewTensor wraps data with a shape, checking that the shape accounts for
// every element.
func NewTensor(shape []int, data []float32) (*Tensor, error) {
	expected := 1
	for _, dim := range shape {
		if dim <= 0 {
			return nil, fmt.Errorf("tensor shape dimension must be positive, got %d", dim)
		}
		expected *= dim
	}
	if expected != len(data) {
		return nil, fmt.Errorf("tensor shape %v implies %d elements, data has %d", shape, expected, len(data))
	}
	return &Tensor{Shape: shape, Data: data}, nil
}

// FromResult converts an image fetch result into a tensor. Catalog results
// have no pixel data and are rejected.
func FromResult(result *butler.Result) (*Tensor, error) {
	if result == nil {
		return nil, fmt.Errorf("nil fetch result")
	}
	if len(result.Pixels) == 0 {
		return nil, fmt.Errorf("fetch result for %s carries no pixel data", result.Request)
	}
	shape := result.Shape
	if len(shape) == 0 {
		shape = []int{len(result.Pixels)}
	}
	data := make([]float32, len(result.Pixels))
	copy(data, result.Pixels)
	return NewTensor(append([]int(nil), shape...), data)
}

// Len returns the element count.
func (t *Tensor) Len() int {
	return len(t.Data)
}

// SameShape reports whether two tensors have identical shapes.
func (t *Tensor) SameShape(other *Tensor) bool {
	if len(t.Shape) != len(other.Shape) {
		return false
	}
	for i, dim := range t.Shape {
		if other.Shape[i] != dim {
			return false
		}
	}
	return true
}

// CenterCrop extracts the centered size x size window from a 2-D tensor.
// The tensor must be at least size in both dimensions.
func CenterCrop(t *Tensor, size int) (*Tensor, error) {
	if size <= 0 {
		return nil, fmt.Errorf("crop size must be positive, got %d", size)
	}
	if len(t.Shape) != 2 {
		return nil, fmt.Errorf("center crop requires a 2-D tensor, got shape %v", t.Shape)
	}
	height, width := t.Shape[0], t.Shape[1]
	if height < size || width < size {
		return nil, fmt.Errorf("tensor %dx%d is smaller than crop size %d", height, width, size)
	}
	if height == size && width == size {
		return t, nil
	}

	top := (height - size) / 2
	left := (width - size) / 2
	data := make([]float32, size*size)
	for row := 0; row < size; row++ {
		srcStart := (top+row)*width + left
		copy(data[row*size:(row+1)*size], t.Data[srcStart:srcStart+size])
	}
	return &Tensor{Shape: []int{size, size}, Data: data}, nil
}
