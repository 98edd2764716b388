// Package breaker implements the decision core of a distributed circuit
// breaker: a two-state (closed/open) admission gate whose trip decision is
// based on a rolling-window failure ratio blended from a local in-process
// buffer and a shared, Redis-backed bucket history that every replica in a
// fleet contributes to and samples from.
package breaker

import (
	"errors"
	"fmt"
	"time"
)

// State represents the circuit breaker state.
//
// Unlike a classic three-state breaker, there is no half-open probing state:
// recovery is driven by a cool-down timer (Open -> Closed once
// RecoveryTimeoutSeconds elapses) and, opportunistically, by the aggregated
// failure ratio falling back under CloseThreshold while still open.
type State int32

const (
	// StateClosed admits every call and evaluates the aggregated failure
	// ratio after each outcome.
	StateClosed State = iota

	// StateOpen denies admission (fail-fast), until the recovery timer
	// expires or the aggregated ratio recovers below CloseThreshold.
	StateOpen
)

// String returns the human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures a breaker strategy. A Registry applies Settings only
// when it first creates the strategy for a name (see Registry.GetOrCreate);
// Strategy.UpdateSettings changes a live strategy's Settings afterwards.
type Settings struct {
	// Name identifies the breaker. Mandatory, non-empty.
	Name string

	// WindowSeconds is the size of the rolling window considered when
	// evaluating the aggregated failure ratio. Default: 60.
	WindowSeconds int

	// MinRequests is the minimum number of events in the window before a
	// trip decision is eligible. Default: 30.
	MinRequests int

	// OpenThreshold is the failure fraction at or above which the breaker
	// trips, in (0, 1]. Default: 0.5.
	OpenThreshold float64

	// CloseThreshold is the failure fraction at or below which an open
	// breaker untrips, in (0, 1]. Must satisfy CloseThreshold <=
	// OpenThreshold. Default: 0.5.
	CloseThreshold float64

	// RecoveryTimeoutSeconds is the cool-down after which an open breaker
	// unconditionally returns to closed. Default: 30.
	RecoveryTimeoutSeconds int

	// ReadDelaySeconds bounds how stale the cached shared-store snapshot is
	// allowed to get before a refresh is attempted. Default: 1.
	ReadDelaySeconds int

	// Fallback, if set, is invoked when a call is rejected by the breaker.
	// Its result is returned to the caller instead of an open-circuit error.
	Fallback func(err error) (interface{}, error)

	// FailureClassifier decides whether an error returned by a protected
	// call counts as a failure. Defaults to "any non-nil error is a
	// failure". Go errors are already typed values, so unlike the
	// (errorKind, errorValue) predicate this library is modeled on, a
	// single func(error) bool is the idiomatic shape here: a type switch
	// or errors.As inside the classifier covers the "errorKind" half.
	FailureClassifier func(err error) bool
}

// Defaults used when a Settings field is left at its zero value.
const (
	DefaultWindowSeconds          = 60
	DefaultMinRequests            = 30
	DefaultOpenThreshold          = 0.5
	DefaultCloseThreshold         = 0.5
	DefaultRecoveryTimeoutSeconds = 30
	DefaultReadDelaySeconds       = 1
)

// DefaultFailureClassifier treats every non-nil error as a failure.
func DefaultFailureClassifier(err error) bool {
	return err != nil
}

// applyDefaults fills zero-valued fields with their defaults and validates
// the result. It panics on programmer error, matching the teacher's
// validate-at-construction-time convention (autobreaker.New panics on bad
// Settings rather than returning an error that could be ignored).
func (s Settings) applyDefaults() Settings {
	if s.Name == "" {
		panic(ErrEmptyName)
	}
	if s.WindowSeconds == 0 {
		s.WindowSeconds = DefaultWindowSeconds
	}
	if s.WindowSeconds < 0 {
		panic(errors.New("distributedbreaker: WindowSeconds must be > 0"))
	}
	if s.MinRequests == 0 {
		s.MinRequests = DefaultMinRequests
	}
	if s.MinRequests < 1 {
		panic(errors.New("distributedbreaker: MinRequests must be >= 1"))
	}
	if s.OpenThreshold == 0 {
		s.OpenThreshold = DefaultOpenThreshold
	}
	if s.OpenThreshold <= 0 || s.OpenThreshold > 1 {
		panic(errors.New("distributedbreaker: OpenThreshold must be in (0, 1]"))
	}
	if s.CloseThreshold == 0 {
		s.CloseThreshold = DefaultCloseThreshold
	}
	if s.CloseThreshold <= 0 || s.CloseThreshold > 1 {
		panic(errors.New("distributedbreaker: CloseThreshold must be in (0, 1]"))
	}
	if s.CloseThreshold > s.OpenThreshold {
		panic(ErrInvalidThresholds)
	}
	if s.RecoveryTimeoutSeconds == 0 {
		s.RecoveryTimeoutSeconds = DefaultRecoveryTimeoutSeconds
	}
	if s.RecoveryTimeoutSeconds < 1 {
		panic(errors.New("distributedbreaker: RecoveryTimeoutSeconds must be > 0"))
	}
	if s.ReadDelaySeconds < 0 {
		panic(errors.New("distributedbreaker: ReadDelaySeconds must be >= 0"))
	}
	if s.ReadDelaySeconds == 0 {
		s.ReadDelaySeconds = DefaultReadDelaySeconds
	}
	if s.FailureClassifier == nil {
		s.FailureClassifier = DefaultFailureClassifier
	}
	return s
}

func (s Settings) windowDuration() time.Duration {
	return time.Duration(s.WindowSeconds) * time.Second
}

func (s Settings) readDelayDuration() time.Duration {
	return time.Duration(s.ReadDelaySeconds) * time.Second
}

func (s Settings) recoveryTimeoutDuration() time.Duration {
	return time.Duration(s.RecoveryTimeoutSeconds) * time.Second
}

// Settings validation errors.
var (
	// ErrEmptyName is a fatal, programmer-error panic cause, not normally
	// returned: wrap-time configuration requires a non-empty name.
	ErrEmptyName = errors.New("distributedbreaker: breaker name is required")

	// ErrInvalidThresholds is a fatal, programmer-error panic cause for
	// CloseThreshold > OpenThreshold.
	ErrInvalidThresholds = errors.New("distributedbreaker: closeThreshold must be <= openThreshold")
)

// OpenCircuitError is returned when a call is rejected because the breaker
// is open and no Fallback is configured. It carries enough diagnostic
// context (name, failure count, time to recovery, last classified failure)
// for the caller to decide how to degrade gracefully.
type OpenCircuitError struct {
	Name                   string
	FailureCount           uint64
	SecondsUntilRecovery   int64
	LastFailure            error
}

func (e *OpenCircuitError) Error() string {
	return fmt.Sprintf("distributedbreaker: circuit %q is open (failures=%d, recovers in %ds)",
		e.Name, e.FailureCount, e.SecondsUntilRecovery)
}

// Unwrap exposes the last classified failure so callers can errors.As/Is
// through an OpenCircuitError to the underlying cause.
func (e *OpenCircuitError) Unwrap() error {
	return e.LastFailure
}
