package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"ripple/internal/butler"
	"ripple/internal/config"
	"ripple/internal/logging"
	"ripple/internal/results"
	"ripple/internal/services"
)

// Outcome summarizes one pipeline run.
type Outcome struct {
	RunID   string
	Summary map[results.Status]int
}

// Runner executes configured targets through the stage sequence.
type Runner struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *results.Store
	fetch      *fetchStage
	preprocess *preprocessStage
	predict    *predictStage
}

// Close releases the results store.
func (r *Runner) Close() error {
	return r.store.Close()
}

// Store exposes the results store for CLI inspection.
func (r *Runner) Store() *results.Store {
	return r.store
}

// HealthCheck reports per-stage readiness.
func (r *Runner) HealthCheck(ctx context.Context) []Health {
	checks := []Health{
		r.fetch.HealthCheck(ctx),
		r.preprocess.HealthCheck(ctx),
	}
	if r.predict != nil {
		checks = append(checks, r.predict.HealthCheck(ctx))
	}
	return checks
}

// Run processes every configured target. Targets whose datasets are absent
// are skipped; configuration and authentication errors abort the run, since
// every remaining target would fail identically.
func (r *Runner) Run(ctx context.Context) (*Outcome, error) {
	if len(r.cfg.Targets) == 0 {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "run", "no targets configured", nil)
	}

	lock := flock.New(filepath.Join(r.cfg.Paths.OutputDir, ".ripple.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another pipeline run holds the lock on %s", r.cfg.Paths.OutputDir)
	}
	defer lock.Unlock()

	run, err := r.store.BeginRun(ctx, r.cfg.Pipeline.Name)
	if err != nil {
		return nil, err
	}
	ctx = services.WithRunID(ctx, run.ID)
	logger := r.logger.With(logging.String(logging.FieldRunID, run.ID))
	logger.Info("pipeline run started",
		logging.Int("target_count", len(r.cfg.Targets)),
		logging.Int("workers", r.cfg.Pipeline.NumWorkers))

	items := r.registerTargets(ctx, run.ID, logger)

	abortErr := r.runItemStages(ctx, items, logger)
	if abortErr == nil {
		r.runPredictions(ctx, items, logger)
	}

	if err := r.store.FinishRun(ctx, run.ID); err != nil {
		logger.Warn("failed to stamp run completion", logging.Error(err))
	}

	summary, err := r.store.Summary(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	outcome := &Outcome{RunID: run.ID, Summary: summary}
	if abortErr != nil {
		logger.Error("pipeline run aborted", logging.Error(abortErr))
		return outcome, abortErr
	}
	logger.Info("pipeline run finished",
		logging.Int("predicted", summary[results.StatusPredicted]),
		logging.Int("skipped", summary[results.StatusSkipped]),
		logging.Int("failed", summary[results.StatusFailed]))
	return outcome, nil
}

// registerTargets creates a pending record per target. Targets that fail
// request validation are marked failed immediately and excluded.
func (r *Runner) registerTargets(ctx context.Context, runID string, logger *slog.Logger) []*Item {
	items := make([]*Item, 0, len(r.cfg.Targets))
	for _, target := range r.cfg.Targets {
		req, err := butler.FromTarget(target)
		ident := target.Label
		if ident == "" {
			if err == nil {
				ident = req.String()
			} else {
				ident = fmt.Sprintf("%s target", target.Type)
			}
		}

		cacheKey := ""
		if err == nil {
			cacheKey = req.CacheKey()
		}
		record, storeErr := r.store.AddTarget(ctx, runID, ident, cacheKey)
		if storeErr != nil {
			logger.Error("failed to register target", logging.String("target", ident), logging.Error(storeErr))
			continue
		}
		if err != nil {
			if markErr := r.store.MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
				logger.Warn("failed to mark invalid target", logging.Error(markErr))
			}
			continue
		}
		items = append(items, &Item{RecordID: record.ID, Target: target, Request: req})
	}
	return items
}

// runItemStages fetches and preprocesses items under the worker pool. The
// returned error, when non-nil, is an abort: remaining work was cancelled.
func (r *Runner) runItemStages(ctx context.Context, items []*Item, logger *slog.Logger) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.cfg.Pipeline.NumWorkers)

	var mu sync.Mutex
	markFailed := func(item *Item, err error) {
		mu.Lock()
		defer mu.Unlock()
		if markErr := r.store.MarkFailed(ctx, item.RecordID, err.Error()); markErr != nil {
			logger.Warn("failed to record target failure", logging.Error(markErr))
		}
	}

	for _, item := range items {
		group.Go(func() error {
			itemLogger := logger.With(logging.String(logging.FieldTarget, item.Request.String()))

			result, err := r.executeFetch(groupCtx, item)
			if err != nil {
				switch services.FailureDisposition(err) {
				case services.DispositionSkip:
					itemLogger.Info("dataset not found, skipping target")
					mu.Lock()
					if markErr := r.store.MarkSkipped(ctx, item.RecordID, err.Error()); markErr != nil {
						itemLogger.Warn("failed to record skip", logging.Error(markErr))
					}
					mu.Unlock()
					return nil
				case services.DispositionAbort:
					markFailed(item, err)
					return err
				default:
					itemLogger.Error("fetch failed", logging.Error(err))
					markFailed(item, err)
					return nil
				}
			}
			item.Result = result
			mu.Lock()
			err = r.store.MarkFetched(ctx, item.RecordID, result.FromCache)
			mu.Unlock()
			if err != nil {
				itemLogger.Warn("failed to record fetch", logging.Error(err))
			}

			if err := r.preprocess.Execute(groupCtx, item); err != nil {
				itemLogger.Error("preprocess failed", logging.Error(err))
				markFailed(item, err)
				return nil
			}
			mu.Lock()
			err = r.store.MarkPreprocessed(ctx, item.RecordID)
			mu.Unlock()
			if err != nil {
				itemLogger.Warn("failed to record preprocess", logging.Error(err))
			}
			return nil
		})
	}
	return group.Wait()
}

func (r *Runner) executeFetch(ctx context.Context, item *Item) (*butler.Result, error) {
	stageCtx := services.WithStage(ctx, r.fetch.Name())
	if err := r.fetch.Execute(stageCtx, item); err != nil {
		return nil, err
	}
	return item.Result, nil
}

// runPredictions batches the preprocessed items through the model. A model
// failure fails the affected targets, not the run.
func (r *Runner) runPredictions(ctx context.Context, items []*Item, logger *slog.Logger) {
	if r.predict == nil {
		return
	}
	ready := make([]*Item, 0, len(items))
	for _, item := range items {
		if item.Tensor != nil {
			ready = append(ready, item)
		}
	}
	if len(ready) == 0 {
		return
	}

	stageCtx := services.WithStage(ctx, r.predict.Name())
	predictions, err := r.predict.ExecuteBatch(stageCtx, ready)
	if err != nil {
		logger.Error("inference failed", logging.Error(err))
		for _, item := range ready {
			if markErr := r.store.MarkFailed(ctx, item.RecordID, fmt.Sprintf("inference failed: %v", err)); markErr != nil {
				logger.Warn("failed to record inference failure", logging.Error(markErr))
			}
		}
		return
	}
	for i, item := range ready {
		if err := r.store.RecordPrediction(ctx, item.RecordID, predictions[i].Label, predictions[i].Score); err != nil {
			logger.Warn("failed to record prediction", logging.Error(err))
		}
	}
}
