package breaker

import (
	"context"
)

// Wrapper is the call wrapper (component C7): the thin layer that decides
// whether to admit a call, runs it, classifies its outcome, and records
// that outcome back into the Strategy -- the Go equivalent of the
// original's BreakerService.__call__ / __enter__ / __exit__ / call pair.
type Wrapper struct {
	strategy *Strategy
}

// NewWrapper wraps strategy for protected calls.
func NewWrapper(strategy *Strategy) *Wrapper {
	return &Wrapper{strategy: strategy}
}

// Execute runs fn if the breaker admits the call, classifying its error
// via the strategy's FailureClassifier and recording the outcome. If the
// breaker is open, fn is not run: Execute returns the result of Fallback
// if one is configured, or an *OpenCircuitError otherwise. A panic inside
// fn is recovered, counted as a failure, and re-panicked to the caller,
// matching the teacher's Execute/ExecuteContext convention that a
// protected call's panic is still the caller's to handle.
func (w *Wrapper) Execute(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (result interface{}, err error) {
	if !w.strategy.Enabled() {
		return fn(ctx)
	}
	if !w.strategy.Allow() {
		return w.reject(ctx)
	}

	defer func() {
		if r := recover(); r != nil {
			perr := &recoveredPanicError{value: r}
			w.strategy.RecordFailure(ctx, perr)
			panic(r)
		}
	}()

	result, err = fn(ctx)
	w.recordOutcome(ctx, err)
	return result, err
}

func (w *Wrapper) recordOutcome(ctx context.Context, err error) {
	if !w.strategy.Enabled() {
		return
	}
	settings := w.strategy.Settings()
	if safeCallFailureClassifier(settings.FailureClassifier, w.strategy.Name(), err) {
		w.strategy.RecordFailure(ctx, err)
		return
	}
	w.strategy.RecordSuccess(ctx)
}

func (w *Wrapper) reject(ctx context.Context) (interface{}, error) {
	openErr := &OpenCircuitError{
		Name:                 w.strategy.Name(),
		FailureCount:         w.strategy.Metrics(ctx).Failure,
		SecondsUntilRecovery: w.strategy.SecondsUntilRecovery(),
		LastFailure:          w.strategy.LastFailure(),
	}
	settings := w.strategy.Settings()
	if settings.Fallback == nil {
		return nil, openErr
	}
	return safeCallFallback(settings.Fallback, w.strategy.Name(), openErr)
}

// SeqResult is what a lazy-sequence-producing function returns to WrapSeq:
// Next yields the next element. ok is false once the sequence is
// exhausted; err is set only if the sequence ended because of an error,
// not on every element.
type SeqResult struct {
	Next func() (value interface{}, ok bool, err error)
}

// WrapSeq wraps fn, a function that produces a lazy sequence, so admission
// is checked once before the first element is demanded rather than once
// per element. Exactly one outcome is recorded for the whole sequence:
// success once it runs to completion (ok == false, err == nil), or the
// single error that ended it early -- matching the teacher's Execute
// outcome-recording shape, generalized from "one call, one outcome" to
// "one sequence, one outcome". Fallback is not consulted here: a rejected
// sequence has no single value to substitute, so callers get the
// *OpenCircuitError directly.
func (w *Wrapper) WrapSeq(ctx context.Context, fn func(ctx context.Context) (SeqResult, error)) (SeqResult, error) {
	if !w.strategy.Enabled() {
		return fn(ctx)
	}
	if !w.strategy.Allow() {
		return SeqResult{}, &OpenCircuitError{
			Name:                 w.strategy.Name(),
			FailureCount:         w.strategy.Metrics(ctx).Failure,
			SecondsUntilRecovery: w.strategy.SecondsUntilRecovery(),
			LastFailure:          w.strategy.LastFailure(),
		}
	}

	seq, err := fn(ctx)
	if err != nil {
		w.recordOutcome(ctx, err)
		return SeqResult{}, err
	}

	recorded := false
	record := func(outcome error) {
		if !recorded {
			recorded = true
			w.recordOutcome(ctx, outcome)
		}
	}

	return SeqResult{
		Next: func() (interface{}, bool, error) {
			value, ok, nextErr := seq.Next()
			if !ok || nextErr != nil {
				record(nextErr)
			}
			return value, ok, nextErr
		},
	}, nil
}

// Guard is a scoped admission handle returned by Use, the Go equivalent
// of the original's `with breaker.use(name):` context manager. Callers
// that cannot express their protected work as a single func(ctx) value
// (e.g. a multi-statement block, or a loop that should count each
// iteration as a separate outcome) call Use, run their code, and call
// Done(err) exactly once to record the outcome.
type Guard struct {
	wrapper *Wrapper
	ctx     context.Context
	done    bool
}

// Use returns a Guard if the breaker admits the call, or an
// *OpenCircuitError (or the configured Fallback's result/error) if it does
// not. Guard.Done must be called exactly once when the guarded work
// completes.
func (w *Wrapper) Use(ctx context.Context) (*Guard, interface{}, error) {
	if w.strategy.Enabled() && !w.strategy.Allow() {
		result, err := w.reject(ctx)
		return nil, result, err
	}
	return &Guard{wrapper: w, ctx: ctx}, nil, nil
}

// Done records the outcome of the guarded work. err should be the error
// (if any) the guarded work produced; a nil err records a success. Done
// panics if called more than once on the same Guard, since a double
// record would double-count one call's outcome.
func (g *Guard) Done(err error) {
	if g.done {
		panic("distributedbreaker: Guard.Done called more than once")
	}
	g.done = true
	g.wrapper.recordOutcome(g.ctx, err)
}
