package util

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v3"
	"github.com/evcc-io/cdrive/api"
)

var errPending = errors.New("pending")

// Policy is a bounded polling policy. Probe is invoked at most Attempts times,
// each invocation preceded by Interval.
type Policy struct {
	Attempts uint
	Interval time.Duration
}

// DefaultPolicy waits up to 90s for command execution
var DefaultPolicy = Policy{
	Attempts: 9,
	Interval: 10 * time.Second,
}

// Probe returns true once the terminal condition is met. Errors wrapped with
// retry.Unrecoverable abort polling immediately.
type Probe func(ctx context.Context) (bool, error)

// Poll invokes probe until it reports completion. Returns api.ErrTimeout when
// the budget is exhausted without completion.
func (p Policy) Poll(ctx context.Context, probe Probe) error {
	if p.Attempts == 0 {
		return api.ErrTimeout
	}

	select {
	case <-time.After(p.Interval):
	case <-ctx.Done():
		return ctx.Err()
	}

	err := retry.Do(func() error {
		done, err := probe(ctx)
		if err != nil {
			return err
		}
		if !done {
			return errPending
		}
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(p.Attempts),
		retry.Delay(p.Interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)

	if errors.Is(err, errPending) {
		return api.ErrTimeout
	}

	return err
}

// Abort wraps err to stop polling immediately
func Abort(err error) error {
	return retry.Unrecoverable(err)
}
