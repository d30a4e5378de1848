package butler

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ripple/internal/services"
)

func testAccess(serverURL string) *AccessConfig {
	return &AccessConfig{
		ServerURL:   serverURL,
		Token:       "test-token",
		TokenOrigin: "config",
		Collections: []string{"2.2i/runs/DP0.2"},
		Instrument:  "LSSTCam-imSim",
		Timeout:     5 * time.Second,
	}
}

func newTestClient(t *testing.T, serverURL string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithSleeper(func(time.Duration) {})}, opts...)
	client, err := NewClient(testAccess(serverURL), opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func encodePixels(pixels []float32) string {
	raw := make([]byte, 4*len(pixels))
	for i, v := range pixels {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func imageResponse(t *testing.T, pixels []float32, shape []int, band string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"data":  encodePixels(pixels),
		"shape": shape,
		"band":  band,
		"bbox":  map[string]int{"x0": 100, "y0": 200, "width": shape[1], "height": shape[0]},
	})
	if err != nil {
		t.Fatalf("marshal image response: %v", err)
	}
	return body
}

func TestFetchDecodesImagePayload(t *testing.T) {
	pixels := []float32{0.5, 1.25, -3, 42, 0, 7}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization header = %q", got)
		}
		if r.URL.Path != "/v1/cutouts/deep_coadd" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("tract") != "3828" || q.Get("patch") != "12" || q.Get("band") != "r" {
			t.Errorf("query = %v", q)
		}
		if q.Get("collections") != "2.2i/runs/DP0.2" {
			t.Errorf("collections = %q", q.Get("collections"))
		}
		w.Write(imageResponse(t, pixels, []int{2, 3}, "r"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.Fetch(context.Background(), DeepCoadd(3828, 12, "r"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.PixelCount() != len(pixels) {
		t.Fatalf("pixel count = %d, want %d", result.PixelCount(), len(pixels))
	}
	for i, v := range pixels {
		if result.Pixels[i] != v {
			t.Fatalf("pixel[%d] = %v, want %v", i, result.Pixels[i], v)
		}
	}
	if result.Band != "r" || len(result.Shape) != 2 || result.Shape[0] != 2 {
		t.Fatalf("metadata = band %q shape %v", result.Band, result.Shape)
	}
	if result.BBox == nil || result.BBox.X0 != 100 {
		t.Fatalf("bbox = %+v", result.BBox)
	}
	if result.FromCache {
		t.Fatal("direct fetch should not be marked cached")
	}
}

func TestFetchRetriesTransientThenSucceeds(t *testing.T) {
	const failures = 2
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= failures {
			http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write(imageResponse(t, []float32{1}, []int{1, 1}, "g"))
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := newTestClient(t, server.URL,
		WithPolicy(Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}),
		WithSleeper(func(d time.Duration) { sleeps = append(sleeps, d) }))

	if _, err := client.Fetch(context.Background(), DeepCoadd(1, 2, "g")); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := calls.Load(); got != failures+1 {
		t.Fatalf("attempts = %d, want %d", got, failures+1)
	}
	if len(sleeps) != failures {
		t.Fatalf("sleeps = %d, want %d", len(sleeps), failures)
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	const maxAttempts = 3
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL,
		WithPolicy(Policy{MaxAttempts: maxAttempts, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}))

	_, err := client.Fetch(context.Background(), CalExp(192350, 94))
	if err == nil {
		t.Fatal("expected retry exhaustion error")
	}
	var transient *TransientError
	if !errors.As(err, &transient) {
		t.Fatalf("error type = %T", err)
	}
	if transient.Attempts != maxAttempts {
		t.Fatalf("attempts in error = %d, want %d", transient.Attempts, maxAttempts)
	}
	if got := calls.Load(); got != maxAttempts {
		t.Fatalf("server calls = %d, want exactly %d", got, maxAttempts)
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("expected transient sentinel match")
	}
}

func TestFetchAuthFailureDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid token", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL,
		WithPolicy(Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}))

	_, err := client.Fetch(context.Background(), DeepCoadd(1, 1, "i"))
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("error type = %T (%v)", err, err)
	}
	if authErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", authErr.StatusCode)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("server calls = %d, want 1 (no retries)", got)
	}
	if !errors.Is(err, services.ErrAuthentication) {
		t.Fatal("expected authentication sentinel match")
	}
}

func TestFetchNotFoundDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such dataset", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Fetch(context.Background(), DeepCoadd(9999, 0, "z"))
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error type = %T (%v)", err, err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("server calls = %d, want 1", got)
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatal("expected not-found sentinel match")
	}
}

func TestFetchHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		w.Write(imageResponse(t, []float32{1}, []int{1, 1}, "r"))
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := newTestClient(t, server.URL,
		WithPolicy(Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Second}),
		WithSleeper(func(d time.Duration) { sleeps = append(sleeps, d) }))

	if _, err := client.Fetch(context.Background(), DeepCoadd(1, 1, "r")); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(sleeps) != 1 || sleeps[0] != 2*time.Second {
		t.Fatalf("sleeps = %v, want [2s]", sleeps)
	}
}

func TestFetchInvalidRequestFailsFast(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if _, err := client.Fetch(context.Background(), DeepCoadd(1, 1, "")); err == nil {
		t.Fatal("expected validation error")
	} else if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("invalid request must not reach the network")
	}
}

func TestFetchCancelledContextStopsRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := newTestClient(t, server.URL,
		WithPolicy(Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}),
		WithSleeper(func(time.Duration) { cancel() }))

	if _, err := client.Fetch(ctx, DeepCoadd(1, 1, "r")); err == nil {
		t.Fatal("expected cancellation error")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("server calls = %d, want 1 after cancel", got)
	}
}

func TestQueryCatalogBuildsConeSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/tap/sync" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		query := r.PostForm.Get("QUERY")
		if query == "" || r.PostForm.Get("LANG") != "ADQL" {
			t.Errorf("form = %v", r.PostForm)
		}
		for _, fragment := range []string{"TOP 100", "CIRCLE('ICRS', 62.5, -37.2, 0.05)"} {
			if !strings.Contains(query, fragment) {
				t.Errorf("query missing %q: %s", fragment, query)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"rows": []map[string]any{
				{"object_id": 12345, "ra": 62.51, "dec": -37.19},
				{"object_id": 67890, "ra": 62.49, "dec": -37.21},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	rows, err := client.QueryCatalog(context.Background(), ConeSearch{RA: 62.5, Dec: -37.2, RadiusDeg: 0.05, MaxRows: 100})
	if err != nil {
		t.Fatalf("QueryCatalog: %v", err)
	}
	if len(rows) != 2 || rows[0].ObjectID != 12345 {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestQueryCatalogRejectsNonPositiveRadius(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:0")
	if _, err := client.QueryCatalog(context.Background(), ConeSearch{RA: 1, Dec: 2}); err == nil {
		t.Fatal("expected radius validation error")
	}
}

func TestTestConnectionHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/health" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	ok, reason := client.TestConnection(context.Background())
	if !ok {
		t.Fatalf("expected healthy, reason: %s", reason)
	}
}

func TestTestConnectionUnreachableReturnsFalse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(t, server.URL)
	ok, reason := client.TestConnection(context.Background())
	if ok {
		t.Fatal("expected unreachable service to report false")
	}
	if reason == "" {
		t.Fatal("expected a reason for the failure")
	}
}

func TestTestConnectionRejectedCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	ok, reason := client.TestConnection(context.Background())
	if ok || reason == "" {
		t.Fatalf("ok=%v reason=%q", ok, reason)
	}
}
