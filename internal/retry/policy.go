package retry

import (
	"context"
	"fmt"
	"time"

	ferrors "git.home.luguber.info/inful/refbuilder/internal/foundation/errors"
)

// Mode selects how the delay grows between attempts.
type Mode string

const (
	ModeFixed       Mode = "fixed"
	ModeLinear      Mode = "linear"
	ModeExponential Mode = "exponential"
)

// Modes lists the accepted backoff modes.
var Modes = []Mode{ModeFixed, ModeLinear, ModeExponential}

// Policy encapsulates retry/backoff settings for transient failures such as git fetches
// and search record publishing. It is immutable after construction.
type Policy struct {
	Mode       Mode
	Initial    time.Duration // base delay
	Max        time.Duration // cap for growth
	MaxRetries int           // retries after the first failure
}

// DefaultPolicy returns linear backoff, 1s initial, 30s cap, 2 retries.
func DefaultPolicy() Policy {
	return Policy{Mode: ModeLinear, Initial: time.Second, Max: 30 * time.Second, MaxRetries: 2}
}

// NewPolicy builds a policy from raw config fields; zero or invalid values fall back to defaults.
func NewPolicy(mode Mode, initial, maxDuration time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	switch mode {
	case ModeFixed, ModeLinear, ModeExponential:
		p.Mode = mode
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the backoff delay for the given retry number (first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	var d time.Duration
	switch p.Mode {
	case ModeFixed:
		return p.Initial
	case ModeExponential:
		if retryCount > 30 {
			return p.Max
		}
		d = p.Initial * (1 << (retryCount - 1))
	default:
		d = time.Duration(retryCount) * p.Initial
	}
	if d > p.Max {
		return p.Max
	}
	return d
}

// Validate ensures invariants; returns error if the policy is impossible to apply.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	return nil
}

// Do runs fn until it succeeds, the retries are used up, or ctx is done.
// Classified errors that do not allow retries stop the loop immediately; unclassified
// errors are retried.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if ce, ok := ferrors.AsClassified(err); ok && !ce.CanRetry() {
			return err
		}
		if attempt >= p.MaxRetries {
			return err
		}
		timer := time.NewTimer(p.Delay(attempt + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-timer.C:
		}
	}
}
