package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv(EnvAccessToken, "env-token")
	path := writeConfig(t, "data:\n  instrument: LSSTCam\n")

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Data.Instrument != "LSSTCam" {
		t.Fatalf("instrument = %q", cfg.Data.Instrument)
	}
	if cfg.Fetch.MaxAttempts != defaultFetchMaxAttempts {
		t.Fatalf("fetch.max_attempts = %d, want default %d", cfg.Fetch.MaxAttempts, defaultFetchMaxAttempts)
	}
	if cfg.Pipeline.BatchSize != defaultPipelineBatchSize {
		t.Fatalf("pipeline.batch_size = %d", cfg.Pipeline.BatchSize)
	}
	if cfg.Data.Token != "env-token" {
		t.Fatalf("token = %q, want env fallback", cfg.Data.Token)
	}
}

func TestLoadTokenAuthWithoutTokenFails(t *testing.T) {
	t.Setenv(EnvAccessToken, "")
	path := writeConfig(t, "data:\n  auth_method: token\n")

	_, _, _, err := Load(path)
	if err == nil {
		t.Fatal("expected configuration error for missing token")
	}
	if !strings.Contains(err.Error(), "data.token") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadTokenFileSatisfiesTokenAuth(t *testing.T) {
	t.Setenv(EnvAccessToken, "")
	tokenFile := filepath.Join(t.TempDir(), "rsp_token")
	if err := os.WriteFile(tokenFile, []byte("secret\n"), 0o600); err != nil {
		t.Fatalf("write token file: %v", err)
	}
	path := writeConfig(t, "data:\n  auth_method: token\n  token_file: "+tokenFile+"\n")

	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Data.TokenFile != tokenFile {
		t.Fatalf("token_file = %q", cfg.Data.TokenFile)
	}
}

func TestLoadLocalAuthRequiresRepoPath(t *testing.T) {
	path := writeConfig(t, "data:\n  auth_method: local\n")
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected error for local auth without repo_path")
	}
}

func TestLoadRejectsUnknownAuthMethod(t *testing.T) {
	path := writeConfig(t, "data:\n  auth_method: kerberos\n")
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown auth method")
	}
}

func TestLoadRejectsUnknownNormalization(t *testing.T) {
	t.Setenv(EnvAccessToken, "tok")
	path := writeConfig(t, "preprocessing:\n  normalization: sqrt\n")
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown normalization")
	}
}

func TestLoadValidatesTargets(t *testing.T) {
	t.Setenv(EnvAccessToken, "tok")
	cases := map[string]string{
		"unknown type":  "targets:\n  - type: mosaic\n",
		"missing band":  "targets:\n  - type: deep_coadd\n    tract: 1\n    patch: 2\n",
		"missing visit": "targets:\n  - type: calexp\n    detector: 10\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, body)
			if _, _, _, err := Load(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadNormalizesCollections(t *testing.T) {
	t.Setenv(EnvAccessToken, "tok")
	path := writeConfig(t, "data:\n  collections:\n    - \" 2.2i/runs/DP0.2 \"\n    - 2.2i/runs/DP0.2\n    - refcats\n")

	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.Data.Collections) != 2 {
		t.Fatalf("collections = %v, want deduplicated pair", cfg.Data.Collections)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvAccessToken, "tok")
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	cfg, _, exists, err := Load(missing)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Data.ServerURL == "" || cfg.Output.Format != "csv" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestEnsureDirectories(t *testing.T) {
	t.Setenv(EnvAccessToken, "tok")
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Cache.Enabled = true
	cfg.Cache.Dir = filepath.Join(base, "cache")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.LogDir, cfg.Cache.Dir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s, err=%v", dir, err)
		}
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "server_url") {
		t.Fatal("sample config missing data section")
	}
}
