package device

import (
	"errors"
	"fmt"
)

// ErrLaunch marks failures detected at enqueue time: invalid grid or block
// geometry, extents past the device ceilings, launching on a destroyed
// stream. Nothing is enqueued when a launch fails.
var ErrLaunch = errors.New("kernel launch failed")

// ErrExecution marks faults raised while a kernel body was running. They are
// recorded on the stream and surface on the next completion barrier, which
// in release mode may belong to a later, unrelated call.
var ErrExecution = errors.New("kernel execution fault")

func launchError(kernel, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrLaunch, kernel, reason)
}

// executionFault wraps a value recovered from a panicking kernel body.
func executionFault(kernel string, rec any) error {
	if err, ok := rec.(error); ok {
		return fmt.Errorf("%w: %s: %w", ErrExecution, kernel, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrExecution, kernel, rec)
}
