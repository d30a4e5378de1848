package preprocess

import "fmt"

// Batch groups shape-consistent tensors for one inference call.
type Batch struct {
	Tensors []*Tensor
	// Indices maps each tensor back to its position in the input slice so
	// predictions can be attributed to targets.
	Indices []int
}

// Shape returns the per-item shape of the batch.
func (b Batch) Shape() []int {
	if len(b.Tensors) == 0 {
		return nil
	}
	return b.Tensors[0].Shape
}

// MakeBatches splits tensors into groups of at most size. All tensors must
// share a shape; a mismatch is a pipeline bug, not a data condition.
func MakeBatches(tensors []*Tensor, size int) ([]Batch, error) {
	if size <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}
	if len(tensors) == 0 {
		return nil, nil
	}

	first := tensors[0]
	for i, t := range tensors[1:] {
		if !first.SameShape(t) {
			return nil, fmt.Errorf("tensor %d shape %v does not match batch shape %v", i+1, t.Shape, first.Shape)
		}
	}

	var batches []Batch
	for start := 0; start < len(tensors); start += size {
		end := start + size
		if end > len(tensors) {
			end = len(tensors)
		}
		batch := Batch{
			Tensors: tensors[start:end],
			Indices: make([]int, 0, end-start),
		}
		for i := start; i < end; i++ {
			batch.Indices = append(batch.Indices, i)
		}
		batches = append(batches, batch)
	}
	return batches, nil
}
