// Package consensus exposes a single method-call facade over the node
// worker's event queue, the way a caller outside domain/consensus should
// drive a node: no Event/EventKind plumbing, no channel, just named
// operations that block for their result. Grounded on the corpus's
// Consensus interface (domain/consensus/consensus.go), which wraps
// blockProcessor/consensusStateManager calls the same way this wraps
// nodeworker.Worker.Call.
package consensus

import (
	"github.com/ArchainTeam/archain/domain/consensus/model"
	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
	"github.com/ArchainTeam/archain/domain/consensus/processes/nodeworker"
	"github.com/ArchainTeam/archain/domain/gossip"
	"github.com/ArchainTeam/archain/domain/store"
)

// Node is the method-call facade over one node's worker.
type Node interface {
	// ID returns the node's own identity, the key its peers register it
	// under in LocalGossip/LocalPeerClient.
	ID() externalapi.DomainHash

	// Run starts the underlying event loop; call it in its own goroutine.
	// Stop must be called exactly once to end it cleanly.
	Run()
	Stop() model.EventResult

	// Bootstrap seeds Store and state directly with a genesis block,
	// bypassing the normal NotJoined -> Joined fork-recovery path: the
	// one-time action that starts a network, as opposed to a node
	// catching up to one already running. It must be called before Run,
	// and never on a node joining an existing network (use fork recovery,
	// driven by ProcessNewBlock, instead).
	Bootstrap(genesis *externalapi.DomainBlock, genesisWallets externalapi.WalletList) error

	AddTx(tx *externalapi.DomainTransaction) model.EventResult
	ProcessNewBlock(block, recall *externalapi.DomainBlock, peer gossip.Peer, hashList []externalapi.DomainHash) model.EventResult
	Mine() model.EventResult
	MineAtDiff(diff uint64) model.EventResult

	// AutoMine turns on continuous mining: once set it cannot be turned
	// back off except by stopping the node, mirroring handleAutoMine's
	// one-way switch.
	AutoMine() model.EventResult
	ReplaceBlockList(blocks []*externalapi.DomainBlock) model.EventResult
	SetRewardAddr(addr *externalapi.DomainHash) model.EventResult
	SetLossProbability(p float64) model.EventResult
	SetDelay(ms int64) model.EventResult
	SetXferSpeed(bps int64) model.EventResult
	SetMiningDelay(ms int64) model.EventResult
	AddPeers(peers []gossip.Peer) model.EventResult

	// Snapshot returns a consistent, deep-copied view of the node's state,
	// safe to read from any goroutine.
	Snapshot() *externalapi.NodeStateFields

	// Store exposes the node's block/tx/wallet persistence, the handle a
	// LocalPeerClient registration needs to let other nodes fetch from
	// this one during their own fork recovery.
	Store() store.Store
}

type node struct {
	id     externalapi.DomainHash
	worker *nodeworker.Worker
	store  store.Store
	inbox  <-chan gossip.Envelope
}

func (n *node) ID() externalapi.DomainHash { return n.id }

// Run starts both the node worker's event loop and the goroutine that
// turns delivered gossip envelopes into worker events. Returns once the
// worker loop exits (on EventStop); the gossip drain goroutine keeps
// running after that, since LocalGossip never closes a registered inbox.
func (n *node) Run() {
	go n.drainGossip()
	n.worker.Run()
}

// drainGossip translates delivered envelopes into the worker events
// they represent: a relayed tx is admitted the same as a locally
// submitted one, and a relayed block carries its own recall block
// already resolved, so ProcessNewBlock never needs a hash list for
// gossip-sourced traffic.
func (n *node) drainGossip() {
	for envelope := range n.inbox {
		peer := gossip.Peer{ID: envelope.From}
		switch envelope.Msg.Kind {
		case gossip.MessageNewTx:
			n.worker.Post(&model.Event{Kind: model.EventAddTx, Tx: envelope.Msg.Tx})
		case gossip.MessageNewBlock:
			n.worker.Post(&model.Event{
				Kind:        model.EventProcessNewBlock,
				Block:       envelope.Msg.Block,
				RecallBlock: envelope.Msg.RecallBlock,
				Peer:        peer,
			})
		}
	}
}

func (n *node) Stop() model.EventResult {
	return n.worker.Call(&model.Event{Kind: model.EventStop})
}

func (n *node) Bootstrap(genesis *externalapi.DomainBlock, genesisWallets externalapi.WalletList) error {
	if err := n.store.WriteBlock(genesis); err != nil {
		return err
	}
	if err := n.store.WriteWalletList(genesis.WalletRoot, genesisWallets); err != nil {
		return err
	}
	index := []externalapi.BlockIndexEntry{{BlockHash: genesis.IndepHash, WeaveSize: genesis.WeaveSize, TxRoot: genesis.TxRoot}}
	if err := n.store.WriteBlockIndex(index); err != nil {
		return err
	}
	n.worker.Bootstrap(genesis, genesisWallets, index)
	return nil
}

func (n *node) AddTx(tx *externalapi.DomainTransaction) model.EventResult {
	return n.worker.Call(&model.Event{Kind: model.EventAddTx, Tx: tx})
}

func (n *node) ProcessNewBlock(block, recall *externalapi.DomainBlock, peer gossip.Peer, hashList []externalapi.DomainHash) model.EventResult {
	return n.worker.Call(&model.Event{Kind: model.EventProcessNewBlock, Block: block, RecallBlock: recall, Peer: peer, HashList: hashList})
}

func (n *node) Mine() model.EventResult {
	return n.worker.Call(&model.Event{Kind: model.EventMine})
}

func (n *node) MineAtDiff(diff uint64) model.EventResult {
	return n.worker.Call(&model.Event{Kind: model.EventMineAtDiff, DiffOverride: &diff})
}

func (n *node) AutoMine() model.EventResult {
	return n.worker.Call(&model.Event{Kind: model.EventAutoMine})
}

func (n *node) ReplaceBlockList(blocks []*externalapi.DomainBlock) model.EventResult {
	return n.worker.Call(&model.Event{Kind: model.EventReplaceBlockList, ReplaceBlocks: blocks})
}

func (n *node) SetRewardAddr(addr *externalapi.DomainHash) model.EventResult {
	return n.worker.Call(&model.Event{Kind: model.EventSetRewardAddr, RewardAddr: addr})
}

func (n *node) SetLossProbability(p float64) model.EventResult {
	return n.worker.Call(&model.Event{Kind: model.EventSetLossProbability, LossProbability: &p})
}

func (n *node) SetDelay(ms int64) model.EventResult {
	return n.worker.Call(&model.Event{Kind: model.EventSetDelay, DelayMs: &ms})
}

func (n *node) SetXferSpeed(bps int64) model.EventResult {
	return n.worker.Call(&model.Event{Kind: model.EventSetXferSpeed, XferSpeedBps: &bps})
}

func (n *node) SetMiningDelay(ms int64) model.EventResult {
	return n.worker.Call(&model.Event{Kind: model.EventSetMiningDelay, MiningDelayMs: &ms})
}

func (n *node) AddPeers(peers []gossip.Peer) model.EventResult {
	return n.worker.Call(&model.Event{Kind: model.EventAddPeers, Peers: peers})
}

func (n *node) Snapshot() *externalapi.NodeStateFields { return n.worker.Snapshot() }

func (n *node) Store() store.Store { return n.store }
