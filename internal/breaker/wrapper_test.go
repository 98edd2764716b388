package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWrapper(settings Settings, clock Clock) (*Wrapper, *Strategy) {
	store := NewMemoryStore(time.Minute)
	strat := NewStrategy(settings, store, clock, nil)
	return NewWrapper(strat), strat
}

func TestWrapperExecuteAdmitsWhileClosed(t *testing.T) {
	w, _ := newTestWrapper(Settings{Name: "svc"}, NewFakeClock(time.Unix(0, 0)))
	ctx := context.Background()

	result, err := w.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestWrapperExecuteRejectsWhenOpen(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	w, strat := newTestWrapper(Settings{Name: "svc", MinRequests: 1}, clock)
	ctx := context.Background()

	_, err := w.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)
	require.Equal(t, StateOpen, strat.State())

	_, err = w.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		t.Fatal("fn should not run while breaker is open")
		return nil, nil
	})

	var openErr *OpenCircuitError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, "svc", openErr.Name)
}

func TestWrapperExecuteUsesFallbackWhenOpen(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	w, _ := newTestWrapper(Settings{
		Name:        "svc",
		MinRequests: 1,
		Fallback: func(err error) (interface{}, error) {
			return "degraded", nil
		},
	}, clock)
	ctx := context.Background()

	w.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("boom")
	})

	result, err := w.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		t.Fatal("fn should not run while breaker is open")
		return nil, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "degraded", result)
}

func TestWrapperExecuteRecoversPanicAsFailure(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	w, strat := newTestWrapper(Settings{Name: "svc", MinRequests: 1}, clock)
	ctx := context.Background()

	assert.Panics(t, func() {
		w.Execute(ctx, func(ctx context.Context) (interface{}, error) {
			panic("boom")
		})
	})

	assert.Equal(t, StateOpen, strat.State())
}

func TestWrapperUseGuardRecordsOutcome(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	w, strat := newTestWrapper(Settings{Name: "svc", MinRequests: 1}, clock)
	ctx := context.Background()

	guard, _, err := w.Use(ctx)
	require.NoError(t, err)
	require.NotNil(t, guard)
	guard.Done(errors.New("boom"))

	assert.Equal(t, StateOpen, strat.State())
}

func TestWrapperUseGuardDoneTwicePanics(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	w, _ := newTestWrapper(Settings{Name: "svc"}, clock)
	ctx := context.Background()

	guard, _, err := w.Use(ctx)
	require.NoError(t, err)
	guard.Done(nil)

	assert.Panics(t, func() {
		guard.Done(nil)
	})
}

func TestWrapperWrapSeqAdmitsOnceAndRecordsSuccessAtEnd(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	w, strat := newTestWrapper(Settings{Name: "svc", MinRequests: 1}, clock)
	ctx := context.Background()

	items := []interface{}{"a", "b", "c"}
	admissions := 0

	seq, err := w.WrapSeq(ctx, func(ctx context.Context) (SeqResult, error) {
		admissions++
		i := 0
		return SeqResult{
			Next: func() (interface{}, bool, error) {
				if i >= len(items) {
					return nil, false, nil
				}
				v := items[i]
				i++
				return v, true, nil
			},
		}, nil
	})
	require.NoError(t, err)

	var got []interface{}
	for {
		v, ok, nextErr := seq.Next()
		require.NoError(t, nextErr)
		if !ok {
			break
		}
		got = append(got, v)
	}

	assert.Equal(t, items, got)
	assert.Equal(t, 1, admissions, "admission must happen once, not per element")
	assert.Equal(t, StateClosed, strat.State())
}

func TestWrapperWrapSeqRecordsSingleFailureOnMidSequenceError(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	w, strat := newTestWrapper(Settings{Name: "svc", MinRequests: 1}, clock)
	ctx := context.Background()

	boom := errors.New("stream broke")
	seq, err := w.WrapSeq(ctx, func(ctx context.Context) (SeqResult, error) {
		i := 0
		return SeqResult{
			Next: func() (interface{}, bool, error) {
				if i == 0 {
					i++
					return "first", true, nil
				}
				return nil, false, boom
			},
		}, nil
	})
	require.NoError(t, err)

	v, ok, nextErr := seq.Next()
	require.NoError(t, nextErr)
	require.True(t, ok)
	assert.Equal(t, "first", v)

	_, ok, nextErr = seq.Next()
	assert.False(t, ok)
	assert.Equal(t, boom, nextErr)

	assert.Equal(t, StateOpen, strat.State(), "a mid-sequence error must count as a single failure")
}

func TestWrapperWrapSeqRejectsWhenOpen(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	w, strat := newTestWrapper(Settings{Name: "svc", MinRequests: 1}, clock)
	ctx := context.Background()

	w.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("boom")
	})
	require.Equal(t, StateOpen, strat.State())

	_, err := w.WrapSeq(ctx, func(ctx context.Context) (SeqResult, error) {
		t.Fatal("fn should not run while breaker is open")
		return SeqResult{}, nil
	})

	var openErr *OpenCircuitError
	require.ErrorAs(t, err, &openErr)
}

func TestWrapperDisabledBreakerBypassesRecording(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	w, strat := newTestWrapper(Settings{Name: "svc", MinRequests: 1}, clock)
	strat.SetEnabled(false)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		w.Execute(ctx, func(ctx context.Context) (interface{}, error) {
			return nil, errors.New("boom")
		})
	}

	assert.Equal(t, StateClosed, strat.State(), "disabled breaker should never trip")
}
