package pipeline

import (
	"context"

	"ripple/internal/butler"
	"ripple/internal/config"
	"ripple/internal/model"
	"ripple/internal/preprocess"
)

// Item carries one target through the per-item stages.
type Item struct {
	RecordID int64
	Target   config.Target
	Request  butler.Request
	Result   *butler.Result
	Tensor   *preprocess.Tensor
}

// Health summarizes the readiness of a stage.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// Stage is one per-item processing step.
type Stage interface {
	Name() string
	Execute(ctx context.Context, item *Item) error
	HealthCheck(ctx context.Context) Health
}

// fetchStage retrieves the dataset for an item.
type fetchStage struct {
	fetcher butler.Fetcher
	probe   *butler.Client
}

func (s *fetchStage) Name() string { return "fetch" }

func (s *fetchStage) Execute(ctx context.Context, item *Item) error {
	result, err := s.fetcher.Fetch(ctx, item.Request)
	if err != nil {
		return err
	}
	item.Result = result
	return nil
}

func (s *fetchStage) HealthCheck(ctx context.Context) Health {
	if s.probe == nil {
		return Healthy(s.Name())
	}
	if ok, reason := s.probe.TestConnection(ctx); !ok {
		return Unhealthy(s.Name(), reason)
	}
	return Healthy(s.Name())
}

// preprocessStage converts a fetch result into a normalized tensor.
type preprocessStage struct {
	normalizer preprocess.Normalizer
	cutoutSize int
}

func (s *preprocessStage) Name() string { return "preprocess" }

func (s *preprocessStage) Execute(ctx context.Context, item *Item) error {
	tensor, err := preprocess.FromResult(item.Result)
	if err != nil {
		return err
	}
	if s.cutoutSize > 0 && len(tensor.Shape) == 2 {
		if tensor, err = preprocess.CenterCrop(tensor, s.cutoutSize); err != nil {
			return err
		}
	}
	if err := s.normalizer.Apply(tensor); err != nil {
		return err
	}
	item.Tensor = tensor
	// The raw result is no longer needed once the tensor exists; drop it so
	// large cutouts do not accumulate across the pool.
	item.Result = nil
	return nil
}

func (s *preprocessStage) HealthCheck(ctx context.Context) Health {
	return Healthy(s.Name())
}

// predictStage runs batched inference over the surviving items.
type predictStage struct {
	client    *model.Client
	batchSize int
}

func (s *predictStage) Name() string { return "predict" }

// ExecuteBatch predicts for all items and returns one prediction per item,
// aligned by index.
func (s *predictStage) ExecuteBatch(ctx context.Context, items []*Item) ([]model.Prediction, error) {
	tensors := make([]*preprocess.Tensor, len(items))
	for i, item := range items {
		tensors[i] = item.Tensor
	}
	batches, err := preprocess.MakeBatches(tensors, s.batchSize)
	if err != nil {
		return nil, err
	}

	predictions := make([]model.Prediction, len(items))
	for _, batch := range batches {
		batchPredictions, err := s.client.Predict(ctx, batch)
		if err != nil {
			return nil, err
		}
		for i, idx := range batch.Indices {
			predictions[idx] = batchPredictions[i]
		}
	}
	return predictions, nil
}

func (s *predictStage) HealthCheck(ctx context.Context) Health {
	if err := s.client.HealthCheck(ctx); err != nil {
		return Unhealthy(s.Name(), err.Error())
	}
	return Healthy(s.Name())
}
