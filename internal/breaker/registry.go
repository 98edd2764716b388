package breaker

import (
	"sync"

	"go.uber.org/zap"
)

// Registry is the breaker registry (component C6): a name-keyed table of
// Strategy instances, replacing the original's module-level
// BreakerInstancesSingleton / BreakerStrategiesSingleton /
// CircuitStoreSingleton trio with one explicit, constructible type. An
// explicit Registry (rather than package-level state) lets tests build an
// isolated instance per test instead of sharing hidden global singletons,
// the redesign this library makes deliberately over the original.
type Registry struct {
	store SharedStore
	clock Clock
	log   *zap.Logger

	mu         sync.RWMutex
	strategies map[string]*Strategy
}

// RegistryOption customizes a Registry at construction time.
type RegistryOption func(*Registry)

// WithRegistryClock overrides the Clock used by every Strategy the
// Registry creates. Default: RealClock.
func WithRegistryClock(clock Clock) RegistryOption {
	return func(r *Registry) { r.clock = clock }
}

// WithRegistryLogger attaches a structured logger for registry-wide
// events (breaker creation, state transitions logged at the registry
// level in addition to any per-call onStateChange hook).
func WithRegistryLogger(log *zap.Logger) RegistryOption {
	return func(r *Registry) { r.log = log }
}

// NewRegistry constructs a Registry backed by store.
func NewRegistry(store SharedStore, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:      store,
		clock:      RealClock{},
		log:        zap.NewNop(),
		strategies: make(map[string]*Strategy),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the existing Strategy registered under
// settings.Name, or creates and registers one if none exists yet.
// Settings are fixed at creation time; see Strategy.UpdateSettings for
// runtime reconfiguration of an already-registered breaker.
func (r *Registry) GetOrCreate(settings Settings) *Strategy {
	settings = settings.applyDefaults()

	r.mu.RLock()
	s, ok := r.strategies[settings.Name]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.strategies[settings.Name]; ok {
		return s
	}

	name := settings.Name
	s = NewStrategy(settings, r.store, r.clock, func(name string, from, to State) {
		r.log.Info("circuit breaker state change",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})
	r.strategies[name] = s
	r.log.Info("circuit breaker created", zap.String("breaker", name))
	return s
}

// Get returns the Strategy registered under name, if any.
func (r *Registry) Get(name string) (*Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	return s, ok
}

// All returns every registered Strategy, for registry-wide views such as a
// dashboard or a Prometheus collector's Collect pass.
func (r *Registry) All() []*Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Strategy, 0, len(r.strategies))
	for _, s := range r.strategies {
		out = append(out, s)
	}
	return out
}

// AllClosed reports whether every registered breaker is currently closed,
// the Go equivalent of the original's BreakerStrategiesSingleton.all_closed
// property, useful for a liveness/readiness probe that wants to know
// whether any dependency is currently considered unhealthy.
func (r *Registry) AllClosed() bool {
	for _, s := range r.All() {
		if s.State() != StateClosed {
			return false
		}
	}
	return true
}

// OpenBreakers returns every registered Strategy currently open, the Go
// equivalent of the original's get_open, useful for surfacing which
// dependencies are currently considered unhealthy.
func (r *Registry) OpenBreakers() []*Strategy {
	var out []*Strategy
	for _, s := range r.All() {
		if s.State() == StateOpen {
			out = append(out, s)
		}
	}
	return out
}

// ClosedBreakers returns every registered Strategy currently closed, the Go
// equivalent of the original's get_closed.
func (r *Registry) ClosedBreakers() []*Strategy {
	var out []*Strategy
	for _, s := range r.All() {
		if s.State() == StateClosed {
			out = append(out, s)
		}
	}
	return out
}

// Reset removes every registered Strategy. Intended for test teardown.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies = make(map[string]*Strategy)
}
