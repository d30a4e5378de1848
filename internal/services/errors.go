package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration  = errors.New("configuration error")
	ErrAuthentication = errors.New("authentication error")
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("not found")
	ErrTimeout        = errors.New("timeout")
	ErrTransient      = errors.New("transient failure")
)

// Disposition describes what the pipeline runner should do with a target
// after a stage error.
type Disposition int

const (
	// DispositionFail marks the target failed and continues with the rest
	// of the run.
	DispositionFail Disposition = iota
	// DispositionSkip records the target as skipped; absence of a dataset
	// is not a run failure.
	DispositionSkip
	// DispositionAbort stops the run; the error would repeat for every
	// remaining target.
	DispositionAbort
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later disposition mapping. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureDisposition maps a stage error to the action the pipeline runner
// should take for the affected target.
//
// Missing datasets are skipped. Configuration and authentication errors
// abort the run because every remaining target would hit the same wall.
// Everything else fails the single target.
func FailureDisposition(err error) Disposition {
	switch {
	case errors.Is(err, ErrNotFound):
		return DispositionSkip
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrAuthentication):
		return DispositionAbort
	default:
		return DispositionFail
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
