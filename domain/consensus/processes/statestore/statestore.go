// Package statestore holds a typed mapping of node state fields with
// atomic multi-field update. Grounded on the corpus's
// single-struct-behind-a-mutex shape (e.g. kaspad's BlockDAG guarding its
// fields with dagLock), simplified to a single Update/Snapshot primitive.
package statestore

import (
	"sync"

	"github.com/ArchainTeam/archain/domain/consensus/model"
	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
)

type stateStore struct {
	mu sync.RWMutex
	state *externalapi.NodeStateFields
}

// New returns a StateStore seeded with initial.
func New(initial *externalapi.NodeStateFields) model.StateStore {
	return &stateStore{state: initial}
}

// Snapshot returns a deep copy of the current state.
func (s *stateStore) Snapshot() *externalapi.NodeStateFields {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Lookup is an alias for Snapshot; see the interface doc for why Go
// collapses lookup(keys) into a full consistent snapshot.
func (s *stateStore) Lookup() *externalapi.NodeStateFields {
	return s.Snapshot()
}

// Update applies mutate to an exclusive working copy and installs it
// atomically: readers calling Snapshot concurrently see either the state
// entirely before or entirely after mutate ran, never a partial view.
func (s *stateStore) Update(mutate func(*externalapi.NodeStateFields)) *externalapi.NodeStateFields {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.Clone()
	mutate(working)
	s.state = working
	return working.Clone()
}
