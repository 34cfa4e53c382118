// Package retry runs an operation until it succeeds, fails with a fatal
// error, or runs out of attempts.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	// ErrExhausted matches an *Error whose attempts ran out.
	ErrExhausted = errors.New("retry attempts exhausted")
	// ErrFatal matches an *Error stopped by a non-retryable failure.
	ErrFatal = errors.New("non-retryable failure")
)

// Policy configures how failed attempts are retried.
type Policy struct {
	// MaxAttempts is the total number of attempts. 0 means unlimited.
	MaxAttempts  int           `toml:"max_attempts" mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialDelay time.Duration `toml:"initial_delay" mapstructure:"initial_delay" yaml:"initial_delay"`
	// MaxDelay caps the backoff. 0 disables the cap.
	MaxDelay   time.Duration `toml:"max_delay" mapstructure:"max_delay" yaml:"max_delay"`
	Multiplier float64       `toml:"multiplier" mapstructure:"multiplier" yaml:"multiplier"`
	// Jitter is the fraction (0..1) by which each delay is randomly spread.
	Jitter float64 `toml:"jitter" mapstructure:"jitter" yaml:"jitter"`
}

// DefaultPolicy returns a bounded exponential backoff with jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  5,
		InitialDelay: 2 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2,
		Jitter:       0.2,
	}
}

// LegacyPolicy retries forever with a fixed 30 second pause.
func LegacyPolicy() Policy {
	return Policy{
		MaxAttempts:  0,
		InitialDelay: 30 * time.Second,
		Multiplier:   1,
	}
}

// Validate checks that the policy knobs are usable.
func (p Policy) Validate() error {
	if p.MaxAttempts < 0 {
		return errors.Errorf("max_attempts must not be negative (got %d)", p.MaxAttempts)
	}
	if p.InitialDelay < 0 || p.MaxDelay < 0 {
		return errors.New("retry delays must not be negative")
	}
	if p.Multiplier < 0 {
		return errors.Errorf("multiplier must not be negative (got %g)", p.Multiplier)
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		return errors.Errorf("jitter must be between 0 and 1 (got %g)", p.Jitter)
	}
	return nil
}

// Delay returns the pause after the given number of consecutive failures,
// before jitter is applied.
func (p Policy) Delay(failures int) time.Duration {
	if failures < 1 {
		return 0
	}
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	d := float64(p.InitialDelay) * math.Pow(multiplier, float64(failures-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return clampDuration(d)
}

// clampDuration converts nanoseconds to a Duration, saturating at the
// largest representable value.
func clampDuration(ns float64) time.Duration {
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}

// Error is the typed outcome of a failed Do.
type Error struct {
	Attempts int
	Err      error
	Fatal    bool
}

func (e *Error) Error() string {
	if e.Fatal {
		return fmt.Sprintf("giving up after %d attempt(s): %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("retry attempts exhausted after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrExhausted and ErrFatal.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrExhausted:
		return !e.Fatal
	case ErrFatal:
		return e.Fatal
	}
	return false
}

// Retrier executes operations under a Policy.
type Retrier struct {
	Policy Policy
	// Classify reports whether an error is worth another attempt.
	// A nil Classify retries everything.
	Classify func(error) bool
	// Sleep pauses between attempts and returns early when ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
	// Random returns a value in [0, 1) used for jitter.
	Random func() float64
}

// New returns a Retrier using the given policy and classifier.
func New(policy Policy, classify func(error) bool) *Retrier {
	return &Retrier{
		Policy:   policy,
		Classify: classify,
		Sleep:    sleepContext,
		Random:   rand.Float64,
	}
}

// Do calls op until it succeeds. It returns the number of attempts made and
// nil, or an *Error describing why it stopped.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) (int, error) {
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return attempt, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt, &Error{Attempts: attempt, Err: ctxErr, Fatal: true}
		}
		if r.Classify != nil && !r.Classify(err) {
			return attempt, &Error{Attempts: attempt, Err: err, Fatal: true}
		}
		if r.Policy.MaxAttempts > 0 && attempt >= r.Policy.MaxAttempts {
			return attempt, &Error{Attempts: attempt, Err: err}
		}

		delay := r.jitter(r.Policy.Delay(attempt))
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Request failed, retrying")

		if err := sleep(ctx, delay); err != nil {
			return attempt, &Error{Attempts: attempt, Err: err, Fatal: true}
		}
	}
}

func (r *Retrier) jitter(d time.Duration) time.Duration {
	if r.Policy.Jitter <= 0 || d <= 0 {
		return d
	}
	random := r.Random
	if random == nil {
		random = rand.Float64
	}
	spread := r.Policy.Jitter * (2*random() - 1)
	return clampDuration(float64(d) * (1 + spread))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
