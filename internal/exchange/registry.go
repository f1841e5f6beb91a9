package exchange

import (
	"sort"
	"sync"

	"github.com/yanun0323/errors"

	"tickerflow/pkg/exception"
)

// Factory builds an adapter from the shared dependencies.
type Factory func(Deps) Adapter

// Registry maps exchange ids to adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[int]Adapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[int]Adapter)}
}

// Register adds a under its id. Registering an id twice fails.
func (r *Registry) Register(a Adapter) error {
	if a == nil {
		return exception.ErrNilInstance
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.adapters[a.ID()]; ok {
		return errors.Wrapf(exception.ErrExchangeDuplicate, "id: %d", a.ID())
	}
	r.adapters[a.ID()] = a
	return nil
}

// Lookup returns the adapter registered for id.
func (r *Registry) Lookup(id int) (Adapter, error) {
	r.mu.RLock()
	a, ok := r.adapters[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(exception.ErrExchangeNotFound, "id: %d", id)
	}
	return a, nil
}

// IDs returns the registered ids in ascending order.
func (r *Registry) IDs() []int {
	r.mu.RLock()
	ids := make([]int, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Ints(ids)
	return ids
}

// factories is the explicit adapter registration list.
var factories = []Factory{
	func(d Deps) Adapter { return NewBinance(d) },
	func(d Deps) Adapter { return NewHuobi(d) },
	func(d Deps) Adapter { return NewKuCoin(d) },
}

// DefaultRegistry registers every built-in adapter.
func DefaultRegistry(deps Deps) (*Registry, error) {
	r := NewRegistry()
	for _, f := range factories {
		if err := r.Register(f(deps)); err != nil {
			return nil, err
		}
	}
	return r, nil
}
