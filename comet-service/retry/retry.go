// Package retry wraps avast/retry-go with the policies used for RPC dialing and
// governance submissions.
package retry

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

type Policy struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
	// Fixed disables the exponential backoff between attempts.
	Fixed   bool
	OnRetry func(n uint, err error)
}

func Default() Policy {
	return Policy{
		Attempts: 10,
		Delay:    time.Second,
		MaxDelay: 30 * time.Second,
	}
}

func Fixed(attempts uint, delay time.Duration) Policy {
	return Policy{Attempts: attempts, Delay: delay, MaxDelay: delay, Fixed: true}
}

func (p Policy) options(ctx context.Context) []retry.Option {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(p.Attempts),
		retry.Delay(p.Delay),
		retry.LastErrorOnly(true),
	}
	if p.MaxDelay > 0 {
		opts = append(opts, retry.MaxDelay(p.MaxDelay))
	}
	if p.Fixed {
		opts = append(opts, retry.DelayType(retry.FixedDelay))
	} else {
		opts = append(opts, retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)), retry.MaxJitter(p.Delay/2+1))
	}
	if p.OnRetry != nil {
		opts = append(opts, retry.OnRetry(p.OnRetry))
	}
	return opts
}

// Do runs op until it succeeds, the attempts are exhausted, the context is done, or
// op returns an error wrapped with Permanent.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	return retry.DoWithData(op, p.options(ctx)...)
}

func Do0(ctx context.Context, p Policy, op func() error) error {
	return retry.Do(op, p.options(ctx)...)
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return retry.Unrecoverable(err)
}

func IsPermanent(err error) bool {
	return !retry.IsRecoverable(err)
}
