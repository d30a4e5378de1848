// Package preflight runs pre-run readiness checks: credential resolution,
// directory writability, data service reachability, and inference endpoint
// health. It only reports; deciding whether to proceed is the caller's job.
package preflight

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ripple/internal/butler"
	"ripple/internal/config"
	"ripple/internal/logging"
	"ripple/internal/model"
)

// Check is one readiness probe outcome.
type Check struct {
	Name   string
	Passed bool
	Detail string
}

// Report collects all preflight checks.
type Report struct {
	Checks []Check
}

// Passed reports whether every check passed.
func (r Report) Passed() bool {
	for _, check := range r.Checks {
		if !check.Passed {
			return false
		}
	}
	return true
}

// Run executes all checks against the configuration. It never returns an
// error; failures are findings in the report.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) Report {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "preflight")

	var report Report
	add := func(check Check) {
		if !check.Passed {
			logger.Warn("preflight check failed",
				logging.String("check", check.Name),
				logging.String("detail", check.Detail))
		}
		report.Checks = append(report.Checks, check)
	}

	add(checkTargets(cfg))
	add(checkOutputDir(cfg))

	access, credentials := checkCredentials(cfg)
	add(credentials)
	add(checkDataService(ctx, access))
	add(checkModelEndpoint(ctx, cfg))

	return report
}

func checkTargets(cfg *config.Config) Check {
	if len(cfg.Targets) == 0 {
		return Check{Name: "targets", Detail: "no targets configured"}
	}
	return Check{Name: "targets", Passed: true, Detail: fmt.Sprintf("%d configured", len(cfg.Targets))}
}

func checkOutputDir(cfg *config.Config) Check {
	const name = "output directory"
	if err := cfg.EnsureDirectories(); err != nil {
		return Check{Name: name, Detail: err.Error()}
	}
	probe := filepath.Join(cfg.Paths.OutputDir, ".preflight")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return Check{Name: name, Detail: fmt.Sprintf("not writable: %v", err)}
	}
	os.Remove(probe)
	return Check{Name: name, Passed: true, Detail: cfg.Paths.OutputDir}
}

func checkCredentials(cfg *config.Config) (*butler.AccessConfig, Check) {
	const name = "credentials"
	access, err := butler.NewAccessConfig(cfg.Data, cfg.Fetch)
	if err != nil {
		return nil, Check{Name: name, Detail: err.Error()}
	}
	return access, Check{Name: name, Passed: true, Detail: "token from " + access.TokenOrigin}
}

func checkDataService(ctx context.Context, access *butler.AccessConfig) Check {
	const name = "data service"
	if access == nil {
		return Check{Name: name, Detail: "skipped: credentials unresolved"}
	}
	client, err := butler.NewClient(access)
	if err != nil {
		return Check{Name: name, Detail: err.Error()}
	}
	if ok, reason := client.TestConnection(ctx); !ok {
		return Check{Name: name, Detail: reason}
	}
	return Check{Name: name, Passed: true, Detail: access.ServerURL}
}

func checkModelEndpoint(ctx context.Context, cfg *config.Config) Check {
	const name = "model endpoint"
	if cfg.Model.EndpointURL == "" {
		return Check{Name: name, Passed: true, Detail: "not configured"}
	}
	client, err := model.NewClient(cfg.Model)
	if err != nil {
		return Check{Name: name, Detail: err.Error()}
	}
	if err := client.HealthCheck(ctx); err != nil {
		return Check{Name: name, Detail: err.Error()}
	}
	return Check{Name: name, Passed: true, Detail: cfg.Model.EndpointURL}
}
