package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateData(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validatePreprocessing(); err != nil {
		return err
	}
	if err := c.validateModel(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateTargets(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateData() error {
	switch c.Data.AuthMethod {
	case "token":
		if c.Data.Token == "" && c.Data.TokenFile == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = "~/.config/ripple/config.yaml"
			}
			return fmt.Errorf("data.token is required for token auth. Set %s env var, data.token_file, or edit %s (create with 'ripple config init')", EnvAccessToken, defaultPath)
		}
	case "local":
		if c.Data.RepoPath == "" {
			return errors.New("data.repo_path must be set when data.auth_method is \"local\"")
		}
	default:
		return fmt.Errorf("data.auth_method must be \"token\" or \"local\", got %q", c.Data.AuthMethod)
	}
	parsed, err := url.Parse(c.Data.ServerURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("data.server_url %q is not a valid URL", c.Data.ServerURL)
	}
	if len(c.Data.Collections) == 0 {
		return errors.New("data.collections must list at least one collection")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.MaxAttempts < 1 {
		return errors.New("fetch.max_attempts must be at least 1")
	}
	return nil
}

func (c *Config) validatePreprocessing() error {
	switch c.Preprocessing.Normalization {
	case "minmax", "zscore", "asinh":
	default:
		return fmt.Errorf("preprocessing.normalization must be one of minmax, zscore, asinh; got %q", c.Preprocessing.Normalization)
	}
	if c.Preprocessing.ClipMax != 0 && c.Preprocessing.ClipMax <= c.Preprocessing.ClipMin {
		return errors.New("preprocessing.clip_max must be greater than preprocessing.clip_min")
	}
	return nil
}

func (c *Config) validateModel() error {
	if c.Model.EndpointURL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Model.EndpointURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("model.endpoint_url %q is not a valid URL", c.Model.EndpointURL)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.BatchSize < 1 {
		return errors.New("pipeline.batch_size must be at least 1")
	}
	if c.Pipeline.NumWorkers < 1 {
		return errors.New("pipeline.num_workers must be at least 1")
	}
	return nil
}

func (c *Config) validateTargets() error {
	for i, target := range c.Targets {
		switch target.Type {
		case "deep_coadd", "object_catalog":
			if target.Band == "" {
				return fmt.Errorf("targets[%d]: band must be set for %s", i, target.Type)
			}
			if target.Tract < 0 || target.Patch < 0 {
				return fmt.Errorf("targets[%d]: tract and patch must be non-negative", i)
			}
		case "calexp":
			if target.Visit <= 0 {
				return fmt.Errorf("targets[%d]: visit must be positive for calexp", i)
			}
			if target.Detector < 0 {
				return fmt.Errorf("targets[%d]: detector must be non-negative", i)
			}
		default:
			return fmt.Errorf("targets[%d]: unknown type %q (expected deep_coadd, object_catalog, or calexp)", i, target.Type)
		}
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Format {
	case "csv", "json":
		return nil
	default:
		return fmt.Errorf("output.format must be \"csv\" or \"json\", got %q", c.Output.Format)
	}
}
