package butler

import (
	"errors"
	"testing"

	"ripple/internal/config"
	"ripple/internal/services"
)

func TestRequestValidate(t *testing.T) {
	cases := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"deep coadd ok", DeepCoadd(3828, 12, "r"), false},
		{"deep coadd missing band", DeepCoadd(3828, 12, ""), true},
		{"deep coadd negative tract", DeepCoadd(-1, 0, "r"), true},
		{"object catalog ok", ObjectCatalog(3828, 12, "i"), false},
		{"calexp ok", CalExp(192350, 94), false},
		{"calexp zero visit", CalExp(0, 94), true},
		{"calexp negative detector", CalExp(192350, -1), true},
		{"zero value", Request{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr && !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation sentinel, got %v", err)
			}
		})
	}
}

func TestCacheKeyIdentity(t *testing.T) {
	a := DeepCoadd(3828, 12, "r")
	b := DeepCoadd(3828, 12, "r")
	if a.CacheKey() != b.CacheKey() {
		t.Fatal("identical requests must share a cache key")
	}

	distinct := []Request{
		DeepCoadd(3828, 12, "g"),
		DeepCoadd(3828, 13, "r"),
		ObjectCatalog(3828, 12, "r"),
		CalExp(3828, 12),
	}
	seen := map[string]Request{a.CacheKey(): a}
	for _, req := range distinct {
		key := req.CacheKey()
		if prev, dup := seen[key]; dup {
			t.Fatalf("cache key collision: %v vs %v", prev, req)
		}
		seen[key] = req
	}
}

func TestFromTarget(t *testing.T) {
	req, err := FromTarget(config.Target{Type: "deep_coadd", Tract: 1, Patch: 2, Band: "r"})
	if err != nil {
		t.Fatalf("FromTarget: %v", err)
	}
	if req.Kind != KindDeepCoadd || req.Tract != 1 || req.Band != "r" {
		t.Fatalf("req = %+v", req)
	}

	req, err = FromTarget(config.Target{Type: "calexp", Visit: 42, Detector: 7})
	if err != nil {
		t.Fatalf("FromTarget: %v", err)
	}
	if req.Kind != KindCalExp || req.Visit != 42 {
		t.Fatalf("req = %+v", req)
	}

	if _, err := FromTarget(config.Target{Type: "mosaic"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
