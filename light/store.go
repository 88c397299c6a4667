package light

import (
	"errors"
	"sort"
	"sync"
)

// ErrNoTrustedState is returned by Store.LoadState when nothing was saved.
var ErrNoTrustedState = errors.New("light: no trusted state stored")

// Store persists the trusted state and the registered epochs. Nothing else
// of the client is durable.
type Store interface {
	// SaveState atomically records state and, when non-nil, the validator
	// set of a newly entered epoch.
	SaveState(state *TrustedState, newEpoch *EpochState) error
	// LoadState returns the last saved state or ErrNoTrustedState.
	LoadState() (*TrustedState, error)
	// LoadEpochs returns every saved epoch in ascending order.
	LoadEpochs() ([]*EpochState, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu     sync.RWMutex
	state  *TrustedState
	epochs map[uint64]*EpochState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{epochs: make(map[uint64]*EpochState)}
}

// SaveState implements Store.
func (s *MemoryStore) SaveState(state *TrustedState, newEpoch *EpochState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cpy := *state
	s.state = &cpy
	if newEpoch != nil {
		s.epochs[newEpoch.Epoch] = newEpoch.Copy()
	}
	return nil
}

// LoadState implements Store.
func (s *MemoryStore) LoadState() (*TrustedState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, ErrNoTrustedState
	}
	cpy := *s.state
	return &cpy, nil
}

// LoadEpochs implements Store.
func (s *MemoryStore) LoadEpochs() ([]*EpochState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*EpochState, 0, len(s.epochs))
	for _, es := range s.epochs {
		out = append(out, es.Copy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Epoch < out[j].Epoch })
	return out, nil
}
