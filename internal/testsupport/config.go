package testsupport

import (
	"path/filepath"
	"testing"

	"ripple/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "results")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Cache.Dir = cfg.Paths.CacheDir
	cfg.Data.Token = "test-token"
	cfg.Pipeline.NumWorkers = 2
	cfg.Fetch.MaxAttempts = 2
	cfg.Fetch.BaseDelayMS = 1
	cfg.Fetch.MaxDelayMS = 5

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithServerURL points the data section at a test server.
func WithServerURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Data.ServerURL = url
	}
}

// WithModelEndpoint points the model section at a test server.
func WithModelEndpoint(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Model.EndpointURL = url
	}
}

// WithTargets sets the target list.
func WithTargets(targets ...config.Target) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Targets = targets
	}
}

// WithCacheEnabled switches the fetch cache on.
func WithCacheEnabled() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Cache.Enabled = true
	}
}
