package butler

import (
	"fmt"
	"strings"
	"time"

	"ripple/internal/services"
)

// AuthError reports a credential rejection by the data service. It is
// terminal: retrying with the same token cannot succeed.
type AuthError struct {
	StatusCode int
	Request    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("butler fetch %s: authentication rejected (http %d)", e.Request, e.StatusCode)
}

func (e *AuthError) Is(target error) bool {
	return target == services.ErrAuthentication
}

// NotFoundError reports that the requested dataset does not exist in the
// configured collections. Absence is not a fetch failure at the run level;
// callers skip the target.
type NotFoundError struct {
	Request string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("butler fetch %s: dataset not found", e.Request)
}

func (e *NotFoundError) Is(target error) bool {
	return target == services.ErrNotFound
}

// TransientError reports retry exhaustion: every attempt failed with a
// condition that was worth retrying.
type TransientError struct {
	Request  string
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("butler fetch %s: failed after %d attempts: %v", e.Request, e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func (e *TransientError) Is(target error) bool {
	return target == services.ErrTransient
}

// statusError is the per-attempt error for non-2xx responses that are
// neither auth nor not-found.
type statusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("butler request: http %d", e.StatusCode)
	}
	return fmt.Sprintf("butler request: http %d: %s", e.StatusCode, body)
}
