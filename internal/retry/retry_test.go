package retry

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func newTestRetrier(policy Policy, classify func(error) bool) (*Retrier, *recordingSleeper) {
	sleeper := &recordingSleeper{}
	r := New(policy, classify)
	r.Sleep = sleeper.sleep
	r.Random = func() float64 { return 0.5 }
	return r, sleeper
}

var errTransient = errors.New("transient")

func TestDoSucceedsAfterFailures(t *testing.T) {
	r, sleeper := newTestRetrier(LegacyPolicy(), nil)

	calls := 0
	attempts, err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls <= 2 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{30 * time.Second, 30 * time.Second}, sleeper.delays)
}

func TestDoExhaustsAttempts(t *testing.T) {
	policy := Policy{MaxAttempts: 3, InitialDelay: time.Second, Multiplier: 2}
	r, sleeper := newTestRetrier(policy, nil)

	attempts, err := r.Do(context.Background(), func(ctx context.Context) error {
		return errTransient
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.True(t, errors.Is(err, ErrExhausted))
	assert.False(t, errors.Is(err, ErrFatal))
	assert.True(t, errors.Is(err, errTransient))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.delays)

	var retryErr *Error
	require.True(t, errors.As(err, &retryErr))
	assert.Equal(t, 3, retryErr.Attempts)
}

func TestDoStopsOnFatal(t *testing.T) {
	errAuth := errors.New("unauthorized")
	r, sleeper := newTestRetrier(LegacyPolicy(), func(err error) bool {
		return !errors.Is(err, errAuth)
	})

	attempts, err := r.Do(context.Background(), func(ctx context.Context) error {
		return errors.Wrap(errAuth, "chat")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.True(t, errors.Is(err, ErrFatal))
	assert.True(t, errors.Is(err, errAuth))
	assert.Empty(t, sleeper.delays)
}

func TestDoStopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r, _ := newTestRetrier(LegacyPolicy(), nil)

	calls := 0
	_, err := r.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errTransient
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, errors.Is(err, ErrFatal))
}

func TestPolicyDelay(t *testing.T) {
	p := Policy{InitialDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2}

	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 5*time.Second, p.Delay(4))
	assert.Equal(t, 5*time.Second, p.Delay(60))

	fixed := LegacyPolicy()
	assert.Equal(t, 30*time.Second, fixed.Delay(1))
	assert.Equal(t, 30*time.Second, fixed.Delay(10))
}

func TestJitterStaysWithinSpread(t *testing.T) {
	r := New(Policy{InitialDelay: 10 * time.Second, Multiplier: 1, Jitter: 0.2}, nil)

	r.Random = func() float64 { return 0 }
	assert.Equal(t, 8*time.Second, r.jitter(10*time.Second))

	r.Random = func() float64 { return 0.5 }
	assert.Equal(t, 10*time.Second, r.jitter(10*time.Second))

	r.Random = func() float64 { return 0.999999 }
	assert.InDelta(t, float64(12*time.Second), float64(r.jitter(10*time.Second)), float64(time.Millisecond))
}

func TestJitterSaturatesUncappedDelay(t *testing.T) {
	r := New(Policy{InitialDelay: time.Hour, Multiplier: 10, Jitter: 0.2}, nil)
	r.Random = func() float64 { return 0.999999 }

	d := r.Policy.Delay(40)
	assert.Equal(t, time.Duration(math.MaxInt64), d)
	assert.Equal(t, time.Duration(math.MaxInt64), r.jitter(d))

	r.Random = func() float64 { return 0 }
	assert.Greater(t, r.jitter(d), time.Duration(0))
}

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())
	require.NoError(t, LegacyPolicy().Validate())

	assert.Error(t, Policy{MaxAttempts: -1}.Validate())
	assert.Error(t, Policy{InitialDelay: -time.Second}.Validate())
	assert.Error(t, Policy{Multiplier: -2}.Validate())
	assert.Error(t, Policy{Jitter: 1.5}.Validate())
}
