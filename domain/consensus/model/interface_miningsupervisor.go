package model

import (
	"context"

	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
)

// PowSearcher is the out-of-scope PoW search loop: the core only supplies
// inputs and consumes a WorkComplete event. Search blocks until ctx is
// cancelled or a nonce satisfying diff is found.
type PowSearcher interface {
	Search(ctx context.Context, indepHash, recallHash externalapi.DomainHash, diff uint64) (nonce []byte, timestamp int64, found bool)
}

// MiningSupervisor starts, stops, and reseeds the PoW worker, wiring its
// result back to the node worker as a WorkComplete event.
type MiningSupervisor interface {
	// Start begins a PoW search over the given inputs, cancelling any
	// search already in flight. prevHead anchors Previous/Height for the
	// candidate the nonce will complete; recallBlock supplies the hash
	// the PoW predicate binds to. diff is used as given; the caller has
	// already resolved any override against the state's current diff.
	Start(prevHead, recallBlock *externalapi.DomainBlock, txs []*externalapi.DomainTransaction, diff uint64, rewardAddr *externalapi.DomainHash, tags [][2][]byte)

	// Reset cancels any PoW search in flight without starting a new one.
	Reset()
}
