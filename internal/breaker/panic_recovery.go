package breaker

import (
	"fmt"

	"go.uber.org/zap"
)

// safeCallOnStateChange invokes a caller-supplied onStateChange callback
// with panic recovery, following the teacher's callback isolation
// convention in internal/breaker/panic_recovery.go: a callback panic must
// never propagate into the state machine's own transition path, since that
// path can run inside a request goroutine the caller does not expect to
// die for a logging/metrics hook's mistake.
func safeCallOnStateChange(fn func(name string, from, to State), name string, from, to State) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("onStateChange callback panicked",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
				zap.Any("panic", r),
			)
		}
	}()
	fn(name, from, to)
}

// safeCallFailureClassifier invokes a caller-supplied FailureClassifier
// with panic recovery. A panicking classifier is treated conservatively:
// the call is classified as a failure, since assuming success in the face
// of an unknown predicate error would let a misbehaving classifier mask
// real outages.
func safeCallFailureClassifier(fn func(error) bool, name string, err error) (isFailure bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("failureClassifier callback panicked, treating call as a failure",
				zap.String("breaker", name),
				zap.Any("panic", r),
			)
			isFailure = true
		}
	}()
	return fn(err)
}

// safeCallFallback invokes a caller-supplied Fallback with panic recovery.
// A panicking fallback degrades to the original OpenCircuitError rather
// than crashing the caller.
func safeCallFallback(fn func(error) (interface{}, error), name string, openErr error) (result interface{}, fallbackErr error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("fallback callback panicked",
				zap.String("breaker", name),
				zap.Any("panic", r),
			)
			result, fallbackErr = nil, openErr
		}
	}()
	return fn(openErr)
}

// recoveredPanicError wraps a value recovered from a panic inside a
// protected call so it can be classified and counted as a failure before
// being re-panicked, matching the teacher's Execute/ExecuteContext
// convention of counting a panicking call as a failure and then
// re-propagating it rather than swallowing it.
type recoveredPanicError struct {
	value interface{}
}

func (e *recoveredPanicError) Error() string {
	return fmt.Sprintf("distributedbreaker: recovered panic: %v", e.value)
}
