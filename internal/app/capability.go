package app

import (
	"context"
	"time"
)

// callCapability bounds one external capability call with the configured
// timeout and retries exactly once with identical input. The second
// failure is returned to the caller, which downgrades it to data (an
// UNKNOWN finding or a blocked result) instead of propagating an error
// into the state machine.
func callCapability[T any](ctx context.Context, timeout time.Duration, call func(context.Context) (T, error)) (T, error) {
	result, err := callOnce(ctx, timeout, call)
	if err == nil || ctx.Err() != nil {
		return result, err
	}
	return callOnce(ctx, timeout, call)
}

func callOnce[T any](ctx context.Context, timeout time.Duration, call func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return call(callCtx)
}
