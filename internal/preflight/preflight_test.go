package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"ripple/internal/config"
	"ripple/internal/testsupport"
)

func healthyServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRunAllChecksPass(t *testing.T) {
	dataSrv := healthyServer(t)
	defer dataSrv.Close()
	modelSrv := healthyServer(t)
	defer modelSrv.Close()

	cfg := testsupport.NewConfig(t,
		testsupport.WithServerURL(dataSrv.URL),
		testsupport.WithModelEndpoint(modelSrv.URL),
		testsupport.WithTargets(config.Target{Type: "deep_coadd", Tract: 1, Patch: 1, Band: "r"}),
	)

	report := Run(context.Background(), cfg, nil)
	if !report.Passed() {
		t.Fatalf("report = %+v", report.Checks)
	}
	if len(report.Checks) != 5 {
		t.Fatalf("checks = %d", len(report.Checks))
	}
}

func TestRunReportsMissingCredentials(t *testing.T) {
	t.Setenv(config.EnvAccessToken, "")
	dataSrv := healthyServer(t)
	defer dataSrv.Close()

	cfg := testsupport.NewConfig(t,
		testsupport.WithServerURL(dataSrv.URL),
		testsupport.WithTargets(config.Target{Type: "deep_coadd", Tract: 1, Patch: 1, Band: "r"}),
	)
	cfg.Data.Token = ""

	report := Run(context.Background(), cfg, nil)
	if report.Passed() {
		t.Fatal("expected failing report")
	}

	var credentials, dataService *Check
	for i := range report.Checks {
		switch report.Checks[i].Name {
		case "credentials":
			credentials = &report.Checks[i]
		case "data service":
			dataService = &report.Checks[i]
		}
	}
	if credentials == nil || credentials.Passed {
		t.Fatalf("credentials check = %+v", credentials)
	}
	if dataService == nil || dataService.Passed {
		t.Fatalf("data service check should be skipped: %+v", dataService)
	}
}

func TestRunReportsUnreachableService(t *testing.T) {
	dataSrv := healthyServer(t)
	dataSrv.Close()

	cfg := testsupport.NewConfig(t,
		testsupport.WithServerURL(dataSrv.URL),
		testsupport.WithTargets(config.Target{Type: "calexp", Visit: 1, Detector: 0}),
	)

	report := Run(context.Background(), cfg, nil)
	if report.Passed() {
		t.Fatal("expected failing report for unreachable service")
	}
}

func TestRunReportsNoTargets(t *testing.T) {
	dataSrv := healthyServer(t)
	defer dataSrv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithServerURL(dataSrv.URL))
	report := Run(context.Background(), cfg, nil)

	if report.Checks[0].Name != "targets" || report.Checks[0].Passed {
		t.Fatalf("targets check = %+v", report.Checks[0])
	}
}

func TestRunModelNotConfiguredPasses(t *testing.T) {
	dataSrv := healthyServer(t)
	defer dataSrv.Close()

	cfg := testsupport.NewConfig(t,
		testsupport.WithServerURL(dataSrv.URL),
		testsupport.WithTargets(config.Target{Type: "deep_coadd", Tract: 1, Patch: 1, Band: "r"}),
	)

	report := Run(context.Background(), cfg, nil)
	for _, check := range report.Checks {
		if check.Name == "model endpoint" && !check.Passed {
			t.Fatalf("model check = %+v", check)
		}
	}
}
