package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func TestDoSucceedsAfterRetries(t *testing.T) {
	calls := 0
	var retried []uint
	p := Fixed(5, time.Millisecond)
	p.OnRetry = func(n uint, err error) { retried = append(retried, n) }

	out, err := Do(context.Background(), p, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errFlaky
		}
		return 7, nil
	})
	require.NoError(t, err)
	require.Equal(t, 7, out)
	require.Equal(t, 3, calls)
	require.Equal(t, []uint{0, 1}, retried)
}

func TestDoReturnsLastError(t *testing.T) {
	calls := 0
	err := Do0(context.Background(), Fixed(3, time.Millisecond), func() error {
		calls++
		return errFlaky
	})
	require.ErrorIs(t, err, errFlaky)
	require.Equal(t, 3, calls)
}

func TestPermanentStopsImmediately(t *testing.T) {
	calls := 0
	boom := errors.New("reverted")
	err := Do0(context.Background(), Fixed(5, time.Millisecond), func() error {
		calls++
		return Permanent(boom)
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Do(ctx, Fixed(5, 10*time.Millisecond), func() (string, error) {
		return "", errFlaky
	})
	require.Error(t, err)
}

func TestDefaultPolicy(t *testing.T) {
	p := Default()
	require.EqualValues(t, 10, p.Attempts)
	require.False(t, p.Fixed)
	require.NotEmpty(t, p.options(context.Background()))
}
