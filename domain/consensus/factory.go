package consensus

import (
	"time"

	"github.com/ArchainTeam/archain/domain/consensus/model"
	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
	"github.com/ArchainTeam/archain/domain/consensus/processes/blockvalidator"
	"github.com/ArchainTeam/archain/domain/consensus/processes/forkrecoverer"
	"github.com/ArchainTeam/archain/domain/consensus/processes/miningsupervisor"
	"github.com/ArchainTeam/archain/domain/consensus/processes/nodeworker"
	"github.com/ArchainTeam/archain/domain/consensus/processes/powsearcher"
	"github.com/ArchainTeam/archain/domain/consensus/processes/rewardcalculator"
	"github.com/ArchainTeam/archain/domain/consensus/processes/statestore"
	"github.com/ArchainTeam/archain/domain/consensus/processes/txpoolmanager"
	"github.com/ArchainTeam/archain/domain/consensus/processes/walletledger"
	"github.com/ArchainTeam/archain/domain/gossip"
	"github.com/ArchainTeam/archain/domain/store"
)

// Factory instantiates new Nodes, sharing a process-wide gossip fan-out
// and peer-fetch registry across every node it creates.
type Factory interface {
	NewNode(id externalapi.DomainHash, params Params) Node
}

// Params is the subset of per-node configuration the factory needs;
// infrastructure/config reads the rest (config file, data dir, log level,
// peer list) that a Node itself has no use for.
type Params struct {
	RewardAddr      *externalapi.DomainHash
	MiningDelayMs   int64
	LossProbability float64
	DelayMs         int64
	XferSpeedBps    int64
	StoreQuotaBytes  uint64
	PoWRateLimit     time.Duration
	FreeMemory       txpoolmanager.FreeMemoryFunc
	MemoryCheckRatio int64
	CallTimeout      time.Duration
}

type factory struct {
	gossip     *gossip.LocalGossip
	peerClient *gossip.LocalPeerClient
}

// NewFactory returns a Factory whose nodes share localGossip and
// localPeerClient, the in-process stand-ins for a real P2P transport and
// a real block-sync RPC client respectively.
func NewFactory(localGossip *gossip.LocalGossip, localPeerClient *gossip.LocalPeerClient) Factory {
	return &factory{gossip: localGossip, peerClient: localPeerClient}
}

// NewNode wires every process a node needs and returns it not yet
// running: the caller must call Run (in its own goroutine) and, for the
// network's first node, Bootstrap before that.
func (f *factory) NewNode(id externalapi.DomainHash, params Params) Node {
	freeMemory := params.FreeMemory
	if freeMemory == nil {
		freeMemory = defaultFreeMemory
	}

	blockStore := store.NewMemoryStore(params.StoreQuotaBytes)

	state := externalapi.NewEmptyNodeState(id)
	state.RewardAddr = params.RewardAddr
	state.MiningDelay = params.MiningDelayMs

	walletLedgerImpl := walletledger.New()
	rewardCalculatorImpl := rewardcalculator.New()
	blockValidatorImpl := blockvalidator.New(walletLedgerImpl, rewardCalculatorImpl)
	txPoolManagerImpl := txpoolmanager.New(walletLedgerImpl, freeMemory, params.MemoryCheckRatio)
	stateStoreImpl := statestore.New(state)

	worker := nodeworker.New(
		stateStoreImpl,
		blockStore,
		txPoolManagerImpl,
		walletLedgerImpl,
		blockValidatorImpl,
		rewardCalculatorImpl,
		f.gossip,
		id,
		params.CallTimeout,
	)

	searcher := powsearcher.New(params.PoWRateLimit)
	worker.SetMiningSupervisor(miningsupervisor.New(searcher, worker))
	worker.SetPeerClient(f.peerClient)

	worker.SetForkRecoverer(forkrecoverer.New(
		walletLedgerImpl,
		rewardCalculatorImpl,
		blockValidatorImpl,
		blockStore,
		f.peerClient,
		worker,
	))

	inbox := f.gossip.Register(id, gossipInboxSize)
	f.peerClient.Register(id, blockStore, func() uint64 { return worker.Snapshot().Height })

	// Posted (not Called) since Run hasn't started the event loop yet:
	// these queue harmlessly in the buffered channel and apply as soon as
	// it does.
	if params.LossProbability > 0 {
		p := params.LossProbability
		worker.Post(&model.Event{Kind: model.EventSetLossProbability, LossProbability: &p})
	}
	if params.DelayMs > 0 {
		ms := params.DelayMs
		worker.Post(&model.Event{Kind: model.EventSetDelay, DelayMs: &ms})
	}
	if params.XferSpeedBps > 0 {
		bps := params.XferSpeedBps
		worker.Post(&model.Event{Kind: model.EventSetXferSpeed, XferSpeedBps: &bps})
	}

	return &node{id: id, worker: worker, store: blockStore, inbox: inbox}
}

func defaultFreeMemory() uint64 {
	return 1 << 30
}

// gossipInboxSize is the buffer LocalGossip allocates for a node's
// inbox: large enough to absorb a burst of relayed blocks/txs without a
// slow drainGossip stalling every other peer's Send.
const gossipInboxSize = 256
