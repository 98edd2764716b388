package breaker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetOrCreateIsIdempotent(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	reg := NewRegistry(store, WithRegistryClock(NewFakeClock(time.Unix(0, 0))))

	a := reg.GetOrCreate(Settings{Name: "svc"})
	b := reg.GetOrCreate(Settings{Name: "svc"})

	assert.Same(t, a, b, "GetOrCreate should return the same Strategy for a repeated name")
}

func TestRegistryGetMissing(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	reg := NewRegistry(store)

	_, ok := reg.Get("does-not-exist")
	assert.False(t, ok)
}

func TestRegistryAllClosed(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	clock := NewFakeClock(time.Unix(0, 0))
	reg := NewRegistry(store, WithRegistryClock(clock))

	a := reg.GetOrCreate(Settings{Name: "a", MinRequests: 1})
	reg.GetOrCreate(Settings{Name: "b", MinRequests: 1})

	require.True(t, reg.AllClosed())

	for i := 0; i < 5; i++ {
		a.RecordFailure(context.Background(), assert.AnError)
	}
	assert.False(t, reg.AllClosed())
}

func TestRegistryOpenAndClosedBreakers(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	clock := NewFakeClock(time.Unix(0, 0))
	reg := NewRegistry(store, WithRegistryClock(clock))

	a := reg.GetOrCreate(Settings{Name: "a", MinRequests: 1})
	reg.GetOrCreate(Settings{Name: "b", MinRequests: 1})

	assert.Len(t, reg.OpenBreakers(), 0)
	assert.Len(t, reg.ClosedBreakers(), 2)

	a.RecordFailure(context.Background(), assert.AnError)
	require.Equal(t, StateOpen, a.State())

	open := reg.OpenBreakers()
	require.Len(t, open, 1)
	assert.Equal(t, "a", open[0].Name())

	closed := reg.ClosedBreakers()
	require.Len(t, closed, 1)
	assert.Equal(t, "b", closed[0].Name())
}

func TestRegistryReset(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	reg := NewRegistry(store)

	reg.GetOrCreate(Settings{Name: "svc"})
	reg.Reset()

	_, ok := reg.Get("svc")
	assert.False(t, ok)
}
