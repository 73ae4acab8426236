package model

import (
	"context"

	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
	"github.com/ArchainTeam/archain/domain/gossip"
)

// ForkRecovererState is one of the four states a recovery attempt passes through.
type ForkRecovererState int

// ForkRecovererState values.
const (
	ForkRecovererIdle ForkRecovererState = iota
	ForkRecovererRecovering
	ForkRecovererCompleted
	ForkRecovererFailed
)

// PeerClient is the concrete fetch contract a ForkRecoverer uses to pull
// a peer's hash chain, blocks, and the tx bodies those blocks reference:
// a peer-supplied hash chain is fetched and validated block-by-block
// forward from the common ancestor, replaying every tx along the way to rebuild an
// authoritative wallet list for the adopted tip.
type PeerClient interface {
	Hashes(ctx context.Context, peer gossip.Peer, fromHeight uint64) ([]externalapi.DomainHash, error)
	Block(ctx context.Context, peer gossip.Peer, hash externalapi.DomainHash) (*externalapi.DomainBlock, error)
	Tx(ctx context.Context, peer gossip.Peer, id externalapi.DomainHash) (*externalapi.DomainTransaction, error)
}

// ForkRecoverer drives catch-up when a longer chain is observed, at most
// one Recovering instance at a time.
type ForkRecoverer interface {
	// State reports the current recovery state.
	State() ForkRecovererState

	// Recover attempts to register Idle -> Recovering and, if it wins the
	// exclusive registration, drives the fetch-and-validate loop against
	// peer toward targetHeight in the background, eventually posting a
	// ForkRecovered event to the node worker. Returns false without doing
	// anything if a recovery is already in progress.
	Recover(peer gossip.Peer, targetHeight uint64, targetHash externalapi.DomainHash) bool
}
