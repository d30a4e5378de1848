package services

import (
	"errors"
	"testing"
)

func TestWrapPreservesMarkerAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(ErrTransient, "fetch", "deep_coadd", "tract 3828", cause)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected wrapped error to match ErrTransient, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped error to retain cause, got %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "fetch", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("nil marker should default to ErrTransient, got %v", err)
	}
}

func TestFailureDisposition(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Disposition
	}{
		{"not found skips", Wrap(ErrNotFound, "fetch", "", "", nil), DispositionSkip},
		{"configuration aborts", Wrap(ErrConfiguration, "fetch", "", "", nil), DispositionAbort},
		{"authentication aborts", Wrap(ErrAuthentication, "fetch", "", "", nil), DispositionAbort},
		{"transient fails target", Wrap(ErrTransient, "fetch", "", "", nil), DispositionFail},
		{"timeout fails target", Wrap(ErrTimeout, "fetch", "", "", nil), DispositionFail},
		{"unknown fails target", errors.New("boom"), DispositionFail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FailureDisposition(tc.err); got != tc.want {
				t.Fatalf("FailureDisposition(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
