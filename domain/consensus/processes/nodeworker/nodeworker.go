// Package nodeworker implements the single-writer event loop that owns
// every mutable node field: all state-changing work is serialized through
// one inbound queue, the same cooperative-scheduling shape as a Node.js
// event loop, grounded on the corpus's per-peer select-loop handler
// (infrastructure/network/netadapter's routes, and server/p2p's Manager
// dispatch) collapsed to a single instance since there is exactly one
// writer rather than one per connection.
package nodeworker

import (
	"context"
	"math/rand"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ArchainTeam/archain/domain/consensus/model"
	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
	"github.com/ArchainTeam/archain/domain/gossip"
	"github.com/ArchainTeam/archain/domain/store"
	"github.com/ArchainTeam/archain/infrastructure/logger"
)

var log, _ = logger.Get(logger.SubsystemTags.NWRK)

// eventQueueSize is the inbound mailbox's buffer; producers block once it
// fills, the same backpressure kaspad's netadapter route channels apply.
const eventQueueSize = 1024

// forkWipeProbability is the chance a WorkComplete validation failure
// also wipes the active tx pools rather than just resetting the miner,
// the escape hatch for a pool wedged on a tx no longer valid against the
// chain everyone else is building on.
const forkWipeProbability = 0.2

// defaultCallTimeout is the deadline Call gives a request before reporting
// context.DeadlineExceeded rather than blocking forever on a handler that
// never replies.
const defaultCallTimeout = 5 * time.Second

// Worker is the node's single-writer event loop. Every exported method is
// a post (fire-and-forget) or a call (blocks for a reply); internally all
// of them funnel through the same channel handled by the Run goroutine.
type Worker struct {
	stateStore       model.StateStore
	store            store.Store
	txPoolManager    model.TxPoolManager
	walletLedger     model.WalletLedger
	blockValidator   model.BlockValidator
	rewardCalculator model.RewardCalculator
	miningSupervisor model.MiningSupervisor
	forkRecoverer    model.ForkRecoverer
	peerClient       model.PeerClient
	gossip           *gossip.LocalGossip

	cursor      gossip.Cursor
	callTimeout time.Duration

	events chan *model.Event
	rand   *rand.Rand
}

// New returns a Worker wired to its dependencies, except the mining
// supervisor and fork recoverer: both take a reference back to the
// worker they post events to, so they can only be constructed once the
// worker itself exists. Set them with SetMiningSupervisor and
// SetForkRecoverer before starting Run. callTimeout bounds how long Call
// waits for a reply before returning context.DeadlineExceeded; 0 selects
// defaultCallTimeout.
func New(
	stateStore model.StateStore,
	blockStore store.Store,
	txPoolManager model.TxPoolManager,
	walletLedger model.WalletLedger,
	blockValidator model.BlockValidator,
	rewardCalculator model.RewardCalculator,
	localGossip *gossip.LocalGossip,
	nodeID externalapi.DomainHash,
	callTimeout time.Duration,
) *Worker {
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	return &Worker{
		stateStore:       stateStore,
		store:            blockStore,
		txPoolManager:    txPoolManager,
		walletLedger:     walletLedger,
		blockValidator:   blockValidator,
		rewardCalculator: rewardCalculator,
		gossip:           localGossip,
		cursor:           gossip.Cursor{NodeID: nodeID},
		callTimeout:      callTimeout,
		events:           make(chan *model.Event, eventQueueSize),
		rand:             rand.New(rand.NewSource(int64(nodeIDSeed(nodeID)))),
	}
}

// SetMiningSupervisor wires the mining supervisor in after construction.
func (w *Worker) SetMiningSupervisor(miningSupervisor model.MiningSupervisor) {
	w.miningSupervisor = miningSupervisor
}

// SetForkRecoverer wires the fork recoverer in after construction.
func (w *Worker) SetForkRecoverer(forkRecoverer model.ForkRecoverer) {
	w.forkRecoverer = forkRecoverer
}

// SetPeerClient wires the peer client used to fetch a recall block that a
// EventProcessNewBlock's announcing peer has but this node's Store
// doesn't yet.
func (w *Worker) SetPeerClient(peerClient model.PeerClient) {
	w.peerClient = peerClient
}

func nodeIDSeed(id externalapi.DomainHash) uint64 {
	var seed uint64
	for _, b := range id {
		seed = seed*31 + uint64(b)
	}
	if seed == 0 {
		return 1
	}
	return seed
}

// Snapshot returns a consistent, deep-copied view of the node's state,
// safe to call from any goroutine.
func (w *Worker) Snapshot() *externalapi.NodeStateFields {
	return w.stateStore.Snapshot()
}

// Bootstrap seeds state directly from a genesis block, bypassing the
// event queue: the one-time action that starts a network, called before
// Run so there's no concurrent reader to race.
func (w *Worker) Bootstrap(genesis *externalapi.DomainBlock, genesisWallets externalapi.WalletList, index []externalapi.BlockIndexEntry) {
	w.stateStore.Update(func(state *externalapi.NodeStateFields) {
		state.BlockIndex = index
		state.Height = genesis.Height
		state.WalletList = genesisWallets
		state.FloatingWalletList = genesisWallets.Clone()
		state.RewardPool = genesis.RewardPool.Clone()
		state.WeaveSize = genesis.WeaveSize
		state.Diff = genesis.Diff
		state.LastRetarget = genesis.LastRetarget
	})
}

// Post enqueues event without waiting for it to be handled. Blocks only if
// the queue is full.
func (w *Worker) Post(event *model.Event) {
	w.events <- event
}

// Call enqueues event and blocks for its EventResult, for up to
// callTimeout. Callers outside the worker goroutine use this for anything
// whose outcome they need to observe; the worker itself never calls Call
// on its own queue, which would deadlock.
func (w *Worker) Call(event *model.Event) model.EventResult {
	ctx, cancel := context.WithTimeout(context.Background(), w.callTimeout)
	defer cancel()
	return w.CallContext(ctx, event)
}

// CallContext is Call with a caller-supplied deadline/cancellation,
// surfacing ctx.Err() as the EventResult's error if it elapses before the
// worker replies. The event is still handled to completion by the worker
// even after the caller stops waiting on it.
func (w *Worker) CallContext(ctx context.Context, event *model.Event) model.EventResult {
	event.CallID = uuid.New()
	event.ReplyCh = make(chan model.EventResult, 1)
	w.events <- event
	select {
	case result := <-event.ReplyCh:
		return result
	case <-ctx.Done():
		return model.EventResult{Err: ctx.Err()}
	}
}

// Run drains the event queue until an EventStop is handled, dispatching
// each event to its handler and catching any panic at the loop boundary
// so one bad event never takes the whole worker down.
func (w *Worker) Run() {
	for event := range w.events {
		if w.dispatch(event) {
			return
		}
	}
}

// dispatch handles a single event, recovering from a panic raised by its
// handler. Returns true once EventStop has been handled.
func (w *Worker) dispatch(event *model.Event) (stop bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Criticalf("NodeWorkerEXCEPTION | EXIT | ERROR kind=%d call=%s panic=%v event=%s",
				event.Kind, event.CallID, r, spew.Sdump(event))
			event.Reply("", errors.Errorf("node worker panic: %v", r))
		}
	}()

	switch event.Kind {
	case model.EventAddTx:
		w.handleAddTx(event)
	case model.EventEncounterNewTx:
		w.handleEncounterNewTx(event)
	case model.EventProcessNewBlock:
		w.handleProcessNewBlock(event)
	case model.EventWorkComplete:
		w.handleWorkComplete(event)
	case model.EventForkRecovered:
		w.handleForkRecovered(event)
	case model.EventMine:
		w.handleMine(event, nil)
	case model.EventMineAtDiff:
		w.handleMine(event, event.DiffOverride)
	case model.EventAutoMine:
		w.handleAutoMine(event)
	case model.EventReplaceBlockList:
		w.handleReplaceBlockList(event)
	case model.EventIgnore:
		w.handleIgnore(event)
	case model.EventSetRewardAddr:
		w.handleSetRewardAddr(event)
	case model.EventSetLossProbability:
		w.handleSetLossProbability(event)
	case model.EventSetDelay:
		w.handleSetDelay(event)
	case model.EventSetXferSpeed:
		w.handleSetXferSpeed(event)
	case model.EventSetMiningDelay:
		w.handleSetMiningDelay(event)
	case model.EventAddPeers:
		w.handleAddPeers(event)
	case model.EventStop:
		event.Reply("stopped", nil)
		return true
	default:
		log.Warnf("unhandled event kind %d", event.Kind)
		event.Reply("", errors.Errorf("unhandled event kind %d", event.Kind))
	}
	return false
}

// schedule posts event to the worker's own queue after delay, the
// mechanism behind AddTx's promotion timer. It is safe to call from any
// goroutine, including the worker's own.
func (w *Worker) schedule(delay time.Duration, event *model.Event) {
	if delay <= 0 {
		w.Post(event)
		return
	}
	time.AfterFunc(delay, func() { w.Post(event) })
}
