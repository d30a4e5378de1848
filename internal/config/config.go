package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed sample_config.yaml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `yaml:"output_dir"`
	LogDir    string `yaml:"log_dir"`
	CacheDir  string `yaml:"cache_dir"`
}

// Data contains configuration for the remote Butler data service.
type Data struct {
	ServerURL   string   `yaml:"server_url"`
	AuthMethod  string   `yaml:"auth_method"` // "token" or "local"
	Token       string   `yaml:"token"`
	TokenFile   string   `yaml:"token_file"`
	RepoPath    string   `yaml:"repo_path"`
	Collections []string `yaml:"collections"`
	Instrument  string   `yaml:"instrument"`
}

// Fetch contains retry and timeout configuration for remote data access.
type Fetch struct {
	MaxAttempts    int `yaml:"max_attempts"`
	BaseDelayMS    int `yaml:"base_delay_ms"`
	MaxDelayMS     int `yaml:"max_delay_ms"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Cache contains configuration for the fetch response cache.
type Cache struct {
	Enabled    bool   `yaml:"enabled"`
	Dir        string `yaml:"dir"`
	TTLMinutes int    `yaml:"ttl_minutes"`
	MaxEntries int    `yaml:"max_entries"`
}

// Preprocessing contains configuration for cutout normalization.
type Preprocessing struct {
	// Normalization selects the elementwise transform: "minmax", "zscore",
	// or "asinh".
	Normalization  string  `yaml:"normalization"`
	AsinhSoftening float64 `yaml:"asinh_softening"`
	ClipMin        float64 `yaml:"clip_min"`
	ClipMax        float64 `yaml:"clip_max"`
	CutoutSize     int     `yaml:"cutout_size"`
}

// Model contains configuration for the external inference endpoint.
type Model struct {
	EndpointURL    string `yaml:"endpoint_url"`
	Name           string `yaml:"name"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Pipeline contains execution configuration.
type Pipeline struct {
	Name       string `yaml:"name"`
	BatchSize  int    `yaml:"batch_size"`
	NumWorkers int    `yaml:"num_workers"`
}

// Target identifies one dataset the pipeline should process.
type Target struct {
	Type     string `yaml:"type"` // "deep_coadd", "object_catalog", or "calexp"
	Tract    int    `yaml:"tract"`
	Patch    int    `yaml:"patch"`
	Band     string `yaml:"band"`
	Visit    int64  `yaml:"visit"`
	Detector int    `yaml:"detector"`
	Label    string `yaml:"label"`
}

// Output contains configuration for prediction export.
type Output struct {
	Format string `yaml:"format"` // "csv" or "json"
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config encapsulates all configuration values for RIPPLe.
//
// Configuration sections by subsystem:
//   - Paths: output, log, and cache directories
//   - Data: remote Butler service endpoint, auth, collections, instrument
//   - Fetch: retry policy and per-attempt timeout
//   - Cache: fetch response cache (TTL eviction)
//   - Preprocessing: cutout normalization transforms
//   - Model: external inference endpoint
//   - Pipeline: batch size and worker count
//   - Targets: datasets to process
//   - Output: prediction export format
//   - Logging: log level and format
type Config struct {
	Paths         Paths         `yaml:"paths"`
	Data          Data          `yaml:"data"`
	Fetch         Fetch         `yaml:"fetch"`
	Cache         Cache         `yaml:"cache"`
	Preprocessing Preprocessing `yaml:"preprocessing"`
	Model         Model         `yaml:"model"`
	Pipeline      Pipeline      `yaml:"pipeline"`
	Targets       []Target      `yaml:"targets"`
	Output        Output        `yaml:"output"`
	Logging       Logging       `yaml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/ripple/config.yaml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("ripple.yaml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for a pipeline run.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.OutputDir, c.Paths.LogDir}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Dir) != "" {
		dirs = append(dirs, c.Cache.Dir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "ripple", "fetch")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/ripple/fetch"
	}
	return filepath.Join(home, ".cache", "ripple", "fetch")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
