package pipeline

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"ripple/internal/butler"
	"ripple/internal/config"
	"ripple/internal/fetchcache"
	"ripple/internal/logging"
	"ripple/internal/model"
	"ripple/internal/preprocess"
	"ripple/internal/results"
)

// New assembles a runner from configuration: results store, remote client
// with retry policy, optional cache decoration, normalizer, and the model
// client when an endpoint is configured.
func New(cfg *config.Config, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	store, err := results.Open(cfg)
	if err != nil {
		return nil, err
	}

	access, err := butler.NewAccessConfig(cfg.Data, cfg.Fetch)
	if err != nil {
		store.Close()
		return nil, err
	}
	client, err := butler.NewClient(access,
		butler.WithPolicy(butler.PolicyFromConfig(cfg.Fetch)),
		butler.WithLogger(logger))
	if err != nil {
		store.Close()
		return nil, err
	}

	var fetcher butler.Fetcher = client
	if cfg.Cache.Enabled {
		cacheDir := cfg.Cache.Dir
		if strings.TrimSpace(cacheDir) == "" {
			cacheDir = cfg.Paths.CacheDir
		}
		cache := fetchcache.New(fetchcache.Options{
			Path:       filepath.Join(cacheDir, "fetch.json"),
			TTL:        time.Duration(cfg.Cache.TTLMinutes) * time.Minute,
			MaxEntries: cfg.Cache.MaxEntries,
		}, logger)
		fetcher = butler.NewCachedClient(client, cache, logger)
	}

	normalizer, err := preprocess.NewNormalizer(cfg.Preprocessing)
	if err != nil {
		store.Close()
		return nil, err
	}

	var predict *predictStage
	if strings.TrimSpace(cfg.Model.EndpointURL) != "" {
		modelClient, err := model.NewClient(cfg.Model, model.WithLogger(logger))
		if err != nil {
			store.Close()
			return nil, err
		}
		predict = &predictStage{client: modelClient, batchSize: cfg.Pipeline.BatchSize}
	}

	return &Runner{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		store:  store,
		fetch:  &fetchStage{fetcher: fetcher, probe: client},
		preprocess: &preprocessStage{
			normalizer: normalizer,
			cutoutSize: cfg.Preprocessing.CutoutSize,
		},
		predict: predict,
	}, nil
}
