package signup

import (
	"context"

	"github.com/aussiebroadwan/sessionkit/pkg/authsdk"
)

// probe runs check until it answers or fails with a non-retryable error,
// at most maxAttempts times. A busy answer is an answer, never a retry.
func (f *Flow) probe(ctx context.Context, name string, check func(context.Context) (bool, error)) (bool, error) {
	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return false, err
		}

		busy, err := check(ctx)
		if err == nil {
			return busy, nil
		}
		if !authsdk.IsRetryable(err) {
			return false, err
		}

		lastErr = err
		f.log(ctx).Debug("busy probe failed", "probe", name, "attempt", attempt, "err", err)
	}
	return false, lastErr
}
