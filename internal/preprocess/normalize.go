package preprocess

import (
	"fmt"
	"math"

	"ripple/internal/config"
)

// Normalizer applies an elementwise transform to a tensor in place.
type Normalizer interface {
	Name() string
	Apply(t *Tensor) error
}

// NewNormalizer builds the configured transform. Clipping, when configured,
// runs before the normalization proper.
func NewNormalizer(cfg config.Preprocessing) (Normalizer, error) {
	var inner Normalizer
	switch cfg.Normalization {
	case "minmax":
		inner = minMax{}
	case "zscore":
		inner = zScore{}
	case "asinh":
		softening := cfg.AsinhSoftening
		if softening <= 0 {
			softening = 0.1
		}
		inner = asinhStretch{softening: softening}
	default:
		return nil, fmt.Errorf("unknown normalization %q", cfg.Normalization)
	}

	if cfg.ClipMax > cfg.ClipMin {
		return clipped{min: float32(cfg.ClipMin), max: float32(cfg.ClipMax), inner: inner}, nil
	}
	return inner, nil
}

// minMax rescales values to [0, 1]. A constant image maps to zeros.
type minMax struct{}

func (minMax) Name() string { return "minmax" }

func (minMax) Apply(t *Tensor) error {
	if t.Len() == 0 {
		return fmt.Errorf("cannot normalize empty tensor")
	}
	lo, hi := t.Data[0], t.Data[0]
	for _, v := range t.Data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	if span == 0 {
		for i := range t.Data {
			t.Data[i] = 0
		}
		return nil
	}
	for i, v := range t.Data {
		t.Data[i] = (v - lo) / span
	}
	return nil
}

// zScore centers on the mean and scales by the standard deviation. A
// zero-variance image maps to zeros.
type zScore struct{}

func (zScore) Name() string { return "zscore" }

func (zScore) Apply(t *Tensor) error {
	n := t.Len()
	if n == 0 {
		return fmt.Errorf("cannot normalize empty tensor")
	}
	var sum float64
	for _, v := range t.Data {
		sum += float64(v)
	}
	mean := sum / float64(n)

	var variance float64
	for _, v := range t.Data {
		diff := float64(v) - mean
		variance += diff * diff
	}
	std := math.Sqrt(variance / float64(n))
	if std == 0 {
		for i := range t.Data {
			t.Data[i] = 0
		}
		return nil
	}
	for i, v := range t.Data {
		t.Data[i] = float32((float64(v) - mean) / std)
	}
	return nil
}

// asinhStretch compresses the dynamic range with asinh(x/b), which is
// near-linear around zero and logarithmic in the bright tail, then rescales
// to [0, 1]. Standard stretch for survey imagery with bright point sources.
type asinhStretch struct {
	softening float64
}

func (asinhStretch) Name() string { return "asinh" }

func (s asinhStretch) Apply(t *Tensor) error {
	if t.Len() == 0 {
		return fmt.Errorf("cannot normalize empty tensor")
	}
	for i, v := range t.Data {
		t.Data[i] = float32(math.Asinh(float64(v) / s.softening))
	}
	return minMax{}.Apply(t)
}

// clipped bounds values to [min, max] before delegating.
type clipped struct {
	min, max float32
	inner    Normalizer
}

func (c clipped) Name() string { return c.inner.Name() + "+clip" }

func (c clipped) Apply(t *Tensor) error {
	for i, v := range t.Data {
		if v < c.min {
			t.Data[i] = c.min
		} else if v > c.max {
			t.Data[i] = c.max
		}
	}
	return c.inner.Apply(t)
}
