package light

import (
	"fmt"
	"sort"
	"sync"
)

// EpochRegistry is an insert-only map from epoch number to validator set.
// A registered epoch can never be replaced. It is safe for concurrent use.
type EpochRegistry struct {
	mu     sync.RWMutex
	epochs map[uint64]*EpochState
}

// NewEpochRegistry creates an empty registry.
func NewEpochRegistry() *EpochRegistry {
	return &EpochRegistry{epochs: make(map[uint64]*EpochState)}
}

// Register validates es and stores a copy of it.
func (r *EpochRegistry) Register(es *EpochState) error {
	if es == nil {
		return fmt.Errorf("%w: nil epoch state", ErrInvalidValidatorSet)
	}
	if err := es.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.epochs[es.Epoch]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateEpoch, es.Epoch)
	}
	r.epochs[es.Epoch] = es.Copy()
	return nil
}

// Get returns the validator set of epoch. The returned value is shared and
// must not be modified.
func (r *EpochRegistry) Get(epoch uint64) (*EpochState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	es, ok := r.epochs[epoch]
	return es, ok
}

// Has reports whether epoch is registered.
func (r *EpochRegistry) Has(epoch uint64) bool {
	_, ok := r.Get(epoch)
	return ok
}

// Len returns the number of registered epochs.
func (r *EpochRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.epochs)
}

// Epochs returns the registered epoch numbers in ascending order.
func (r *EpochRegistry) Epochs() []uint64 {
	r.mu.RLock()
	out := make([]uint64, 0, len(r.epochs))
	for e := range r.epochs {
		out = append(out, e)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
