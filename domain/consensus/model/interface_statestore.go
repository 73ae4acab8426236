package model

import "github.com/ArchainTeam/archain/domain/consensus/model/externalapi"

// StateStore is a typed record with a single atomic-update primitive.
// Every mutation the node worker performs goes through Update, and every
// reader — inside or outside the worker goroutine — sees either all of
// an update's field changes or none.
type StateStore interface {
	// Snapshot returns a deep copy of the current state. Safe to call from
	// any goroutine.
	Snapshot() *externalapi.NodeStateFields

	// Update applies mutate to an exclusive copy of the state and installs
	// the result atomically, returning the new snapshot. mutate must not
	// retain its argument past the call.
	Update(mutate func(*externalapi.NodeStateFields)) *externalapi.NodeStateFields

	// Lookup returns a full, consistent snapshot: callers that only need a
	// couple of fields still get the whole thing, since Go has no cheap
	// way to return "a tuple of named fields" without reflection; the
	// point — consistency, not partial copies — is preserved either way.
	Lookup() *externalapi.NodeStateFields
}
