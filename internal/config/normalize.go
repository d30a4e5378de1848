package config

import (
	"fmt"
	"os"
	"strings"
)

// EnvAccessToken is the environment variable consulted for the RSP bearer
// token when the config file does not supply one.
const EnvAccessToken = "RSP_ACCESS_TOKEN"

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeData(); err != nil {
		return err
	}
	c.normalizeFetch()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizePreprocessing()
	c.normalizeModel()
	c.normalizePipeline()
	c.normalizeTargets()
	c.normalizeOutput()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeData() error {
	c.Data.ServerURL = strings.TrimRight(strings.TrimSpace(c.Data.ServerURL), "/")
	if c.Data.ServerURL == "" {
		c.Data.ServerURL = strings.TrimRight(defaultServerURL, "/")
	}
	c.Data.AuthMethod = strings.ToLower(strings.TrimSpace(c.Data.AuthMethod))
	if c.Data.AuthMethod == "" {
		c.Data.AuthMethod = defaultAuthMethod
	}
	c.Data.Token = strings.TrimSpace(c.Data.Token)
	if c.Data.Token == "" {
		if value, ok := os.LookupEnv(EnvAccessToken); ok {
			c.Data.Token = strings.TrimSpace(value)
		}
	}
	var err error
	if c.Data.TokenFile, err = expandPath(strings.TrimSpace(c.Data.TokenFile)); err != nil {
		return fmt.Errorf("data.token_file: %w", err)
	}
	if c.Data.RepoPath, err = expandPath(strings.TrimSpace(c.Data.RepoPath)); err != nil {
		return fmt.Errorf("data.repo_path: %w", err)
	}
	collections := make([]string, 0, len(c.Data.Collections))
	seen := make(map[string]struct{}, len(c.Data.Collections))
	for _, collection := range c.Data.Collections {
		trimmed := strings.TrimSpace(collection)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		collections = append(collections, trimmed)
	}
	if len(collections) == 0 {
		collections = []string{defaultCollection}
	}
	c.Data.Collections = collections
	c.Data.Instrument = strings.TrimSpace(c.Data.Instrument)
	if c.Data.Instrument == "" {
		c.Data.Instrument = defaultInstrument
	}
	return nil
}

func (c *Config) normalizeFetch() {
	if c.Fetch.MaxAttempts <= 0 {
		c.Fetch.MaxAttempts = defaultFetchMaxAttempts
	}
	if c.Fetch.BaseDelayMS <= 0 {
		c.Fetch.BaseDelayMS = defaultFetchBaseDelayMS
	}
	if c.Fetch.MaxDelayMS <= 0 {
		c.Fetch.MaxDelayMS = defaultFetchMaxDelayMS
	}
	if c.Fetch.MaxDelayMS < c.Fetch.BaseDelayMS {
		c.Fetch.MaxDelayMS = c.Fetch.BaseDelayMS
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = defaultFetchTimeoutSecs
	}
}

func (c *Config) normalizeCache() error {
	var err error
	if strings.TrimSpace(c.Cache.Dir) == "" {
		c.Cache.Dir = c.Paths.CacheDir
	}
	if c.Cache.Dir, err = expandPath(c.Cache.Dir); err != nil {
		return fmt.Errorf("cache.dir: %w", err)
	}
	if c.Cache.TTLMinutes <= 0 {
		c.Cache.TTLMinutes = defaultCacheTTLMinutes
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = defaultCacheMaxEntries
	}
	return nil
}

func (c *Config) normalizePreprocessing() {
	c.Preprocessing.Normalization = strings.ToLower(strings.TrimSpace(c.Preprocessing.Normalization))
	if c.Preprocessing.Normalization == "" {
		c.Preprocessing.Normalization = defaultNormalization
	}
	if c.Preprocessing.AsinhSoftening <= 0 {
		c.Preprocessing.AsinhSoftening = defaultAsinhSoftening
	}
	if c.Preprocessing.CutoutSize <= 0 {
		c.Preprocessing.CutoutSize = defaultCutoutSize
	}
}

func (c *Config) normalizeModel() {
	c.Model.EndpointURL = strings.TrimSpace(c.Model.EndpointURL)
	c.Model.Name = strings.TrimSpace(c.Model.Name)
	if c.Model.TimeoutSeconds <= 0 {
		c.Model.TimeoutSeconds = defaultModelTimeoutSecs
	}
}

func (c *Config) normalizePipeline() {
	c.Pipeline.Name = strings.TrimSpace(c.Pipeline.Name)
	if c.Pipeline.Name == "" {
		c.Pipeline.Name = defaultPipelineName
	}
	if c.Pipeline.BatchSize <= 0 {
		c.Pipeline.BatchSize = defaultPipelineBatchSize
	}
	if c.Pipeline.NumWorkers <= 0 {
		c.Pipeline.NumWorkers = defaultPipelineNumWorkers
	}
}

func (c *Config) normalizeTargets() {
	for i := range c.Targets {
		c.Targets[i].Type = strings.ToLower(strings.TrimSpace(c.Targets[i].Type))
		c.Targets[i].Band = strings.ToLower(strings.TrimSpace(c.Targets[i].Band))
		c.Targets[i].Label = strings.TrimSpace(c.Targets[i].Label)
	}
}

func (c *Config) normalizeOutput() {
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = defaultOutputFormat
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
