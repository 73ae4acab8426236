package gossip

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
	"github.com/ArchainTeam/archain/domain/store"
)

// ErrUnknownPeer indicates a fetch was attempted against a peer never
// registered with this LocalPeerClient.
var ErrUnknownPeer = errors.New("unknown peer")

// peerStore is what a registered peer exposes to a fetching node: its
// Store plus its current chain height, read fresh on every call so a
// peer that's still catching up itself is represented accurately.
type peerStore struct {
	store  store.Store
	height func() uint64
}

// LocalPeerClient is the in-process stand-in for a real block-sync RPC
// client: fork recovery fetches hashes, blocks, and txs directly out of
// a registered peer's Store, the pull-based counterpart to LocalGossip's
// push-based fan-out. Grounded on the same netadaptermock-style
// fake-but-real transport LocalGossip uses, sufficient to drive
// ForkRecoverer end to end without a socket.
type LocalPeerClient struct {
	mu    sync.RWMutex
	peers map[externalapi.DomainHash]peerStore
}

// NewLocalPeerClient returns an empty registry.
func NewLocalPeerClient() *LocalPeerClient {
	return &LocalPeerClient{peers: make(map[externalapi.DomainHash]peerStore)}
}

// Register makes peerID's store and current-height accessor fetchable by
// other nodes' ForkRecoverer.
func (c *LocalPeerClient) Register(peerID externalapi.DomainHash, peerStoreImpl store.Store, height func() uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peers[peerID] = peerStore{store: peerStoreImpl, height: height}
}

func (c *LocalPeerClient) lookup(peer Peer) (peerStore, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.peers[peer.ID]
	if !ok {
		return peerStore{}, ErrUnknownPeer
	}
	return p, nil
}

// Hashes returns peer's block hashes from fromHeight up to its current
// tip, genesis-first.
func (c *LocalPeerClient) Hashes(ctx context.Context, peer Peer, fromHeight uint64) ([]externalapi.DomainHash, error) {
	p, err := c.lookup(peer)
	if err != nil {
		return nil, err
	}
	height := p.height()
	if fromHeight > height {
		return nil, errors.New("fromHeight beyond peer's tip")
	}
	hashes := make([]externalapi.DomainHash, 0, height-fromHeight+1)
	for h := fromHeight; h <= height; h++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		block, err := p.store.ReadBlockByHeight(h)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, block.IndepHash)
	}
	return hashes, nil
}

// Block returns the full block peer has stored under hash.
func (c *LocalPeerClient) Block(ctx context.Context, peer Peer, hash externalapi.DomainHash) (*externalapi.DomainBlock, error) {
	p, err := c.lookup(peer)
	if err != nil {
		return nil, err
	}
	return p.store.ReadBlock(hash)
}

// Tx returns the tx body peer has stored under id.
func (c *LocalPeerClient) Tx(ctx context.Context, peer Peer, id externalapi.DomainHash) (*externalapi.DomainTransaction, error) {
	p, err := c.lookup(peer)
	if err != nil {
		return nil, err
	}
	return p.store.ReadTx(id)
}
