package butler

import (
	"math/rand/v2"
	"time"

	"ripple/internal/config"
)

const (
	defaultRetryAttempts  = 4
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultRetryMaxDelay  = 10 * time.Second
)

// Policy bounds the fetch retry loop. The zero value means "use defaults";
// substitute a tighter policy in tests through WithPolicy.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy returns the standard retry bounds.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: defaultRetryAttempts,
		BaseDelay:   defaultRetryBaseDelay,
		MaxDelay:    defaultRetryMaxDelay,
	}
}

// PolicyFromConfig builds a Policy from the fetch configuration section.
func PolicyFromConfig(fetch config.Fetch) Policy {
	policy := DefaultPolicy()
	if fetch.MaxAttempts > 0 {
		policy.MaxAttempts = fetch.MaxAttempts
	}
	if fetch.BaseDelayMS > 0 {
		policy.BaseDelay = time.Duration(fetch.BaseDelayMS) * time.Millisecond
	}
	if fetch.MaxDelayMS > 0 {
		policy.MaxDelay = time.Duration(fetch.MaxDelayMS) * time.Millisecond
	}
	return policy
}

// Attempts returns the bounded attempt count, never less than 1.
func (p Policy) Attempts() int {
	if p.MaxAttempts <= 0 {
		return defaultRetryAttempts
	}
	return p.MaxAttempts
}

// Delay returns the sleep before the attempt after the given 1-based failed
// attempt. Full jitter: uniform in [0, min(maxDelay, base*2^(attempt-1))],
// so concurrent workers retrying against the same outage spread out.
func (p Policy) Delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = defaultRetryBaseDelay
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}
	if attempt < 1 {
		attempt = 1
	}

	ceiling := base
	for i := 1; i < attempt; i++ {
		if ceiling > maxDelay/2 {
			ceiling = maxDelay
			break
		}
		ceiling *= 2
	}
	if ceiling > maxDelay {
		ceiling = maxDelay
	}
	return time.Duration(rand.Float64() * float64(ceiling))
}

// Cap bounds an externally supplied delay (for example Retry-After) to the
// policy maximum.
func (p Policy) Cap(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}
