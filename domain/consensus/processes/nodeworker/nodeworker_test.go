package nodeworker

import (
	"context"
	"testing"
	"time"

	"github.com/ArchainTeam/archain/domain/consensus/model"
	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
	"github.com/ArchainTeam/archain/domain/consensus/processes/blockvalidator"
	"github.com/ArchainTeam/archain/domain/consensus/processes/rewardcalculator"
	"github.com/ArchainTeam/archain/domain/consensus/processes/statestore"
	"github.com/ArchainTeam/archain/domain/consensus/processes/txpoolmanager"
	"github.com/ArchainTeam/archain/domain/consensus/processes/walletledger"
	"github.com/ArchainTeam/archain/domain/gossip"
	"github.com/ArchainTeam/archain/domain/store"
)

type stubMiningSupervisor struct {
	starts int
	resets int
}

func (s *stubMiningSupervisor) Start(prevHead, recallBlock *externalapi.DomainBlock, txs []*externalapi.DomainTransaction, diff uint64, rewardAddr *externalapi.DomainHash, tags [][2][]byte) {
	s.starts++
}
func (s *stubMiningSupervisor) Reset() { s.resets++ }

type stubForkRecoverer struct {
	recovered int
}

func (s *stubForkRecoverer) State() model.ForkRecovererState { return model.ForkRecovererIdle }
func (s *stubForkRecoverer) Recover(peer gossip.Peer, targetHeight uint64, targetHash externalapi.DomainHash) bool {
	s.recovered++
	return true
}

func newTestWorker(t *testing.T) (*Worker, *stubMiningSupervisor, func()) {
	t.Helper()
	nodeID := externalapi.DomainHash{1}
	genesis := &externalapi.DomainBlock{Height: 0, Diff: 1}
	wallets := externalapi.WalletList{}

	blockStore := store.NewMemoryStore(0)
	if err := blockStore.WriteBlock(genesis); err != nil {
		t.Fatalf("WriteBlock(genesis): %v", err)
	}
	if err := blockStore.WriteWalletList(genesis.WalletRoot, wallets); err != nil {
		t.Fatalf("WriteWalletList: %v", err)
	}

	w := New(
		statestore.New(externalapi.NewEmptyNodeState(nodeID)),
		blockStore,
		txpoolmanager.New(walletledger.New(), func() uint64 { return 1 << 30 }, 0),
		walletledger.New(),
		blockvalidator.New(walletledger.New(), rewardcalculator.New()),
		rewardcalculator.New(),
		gossip.NewLocalGossip(),
		nodeID,
		2*time.Second,
	)
	supervisor := &stubMiningSupervisor{}
	w.SetMiningSupervisor(supervisor)
	w.SetForkRecoverer(&stubForkRecoverer{})

	w.Bootstrap(genesis, wallets, []externalapi.BlockIndexEntry{{BlockHash: genesis.IndepHash}})

	go w.Run()
	stopped := false
	t.Cleanup(func() {
		if !stopped {
			w.Call(&model.Event{Kind: model.EventStop})
		}
	})
	return w, supervisor, func() { stopped = true }
}

func TestCallTimesOutWhenHandlerNeverReplies(t *testing.T) {
	// Run is deliberately never started: nothing ever drains w.events, so
	// CallContext can only return via ctx's own deadline.
	nodeID := externalapi.DomainHash{1}
	w := New(
		statestore.New(externalapi.NewEmptyNodeState(nodeID)),
		store.NewMemoryStore(0),
		txpoolmanager.New(walletledger.New(), func() uint64 { return 1 << 30 }, 0),
		walletledger.New(),
		blockvalidator.New(walletledger.New(), rewardcalculator.New()),
		rewardcalculator.New(),
		gossip.NewLocalGossip(),
		nodeID,
		time.Second,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result := w.CallContext(ctx, &model.Event{Kind: model.EventSetRewardAddr})
	if result.Err != context.DeadlineExceeded {
		t.Fatalf("Err = %v, want context.DeadlineExceeded", result.Err)
	}
}

func TestSetRewardAddrUpdatesState(t *testing.T) {
	w, _, _ := newTestWorker(t)
	addr := externalapi.DomainHash{7}
	result := w.Call(&model.Event{Kind: model.EventSetRewardAddr, RewardAddr: &addr})
	if result.Err != nil {
		t.Fatalf("Call: %v", result.Err)
	}
	if got := w.Snapshot().RewardAddr; got == nil || *got != addr {
		t.Fatalf("RewardAddr = %v, want %v", got, addr)
	}
}

func TestAddTxThenEncounterPromotesIntoActivePool(t *testing.T) {
	w, _, _ := newTestWorker(t)
	tx := &externalapi.DomainTransaction{ID: externalapi.DomainHash{5}, OwnerAddr: externalapi.DomainHash{6}}

	result := w.Call(&model.Event{Kind: model.EventAddTx, Tx: tx})
	if result.Err != nil || result.Tag != "waiting" {
		t.Fatalf("AddTx result = %+v", result)
	}
	if len(w.Snapshot().WaitingTxs) != 1 {
		t.Fatalf("WaitingTxs after AddTx = %d, want 1", len(w.Snapshot().WaitingTxs))
	}

	result = w.Call(&model.Event{Kind: model.EventEncounterNewTx, Tx: tx})
	if result.Err != nil || result.Tag != "promoted" {
		t.Fatalf("EncounterNewTx result = %+v", result)
	}
	snap := w.Snapshot()
	if len(snap.Txs) != 1 || len(snap.WaitingTxs) != 0 {
		t.Fatalf("after promotion: Txs=%d WaitingTxs=%d, want 1/0", len(snap.Txs), len(snap.WaitingTxs))
	}
}

func TestAddPeersUpdatesCursor(t *testing.T) {
	w, _, _ := newTestWorker(t)
	peer := gossip.Peer{ID: externalapi.DomainHash{3}, Addr: "peer-a"}
	result := w.Call(&model.Event{Kind: model.EventAddPeers, Peers: []gossip.Peer{peer}})
	if result.Err != nil {
		t.Fatalf("Call: %v", result.Err)
	}
	if len(w.cursor.Peers) != 1 || w.cursor.Peers[0].ID != peer.ID {
		t.Fatalf("cursor.Peers = %v, want [peer]", w.cursor.Peers)
	}
}

func TestSetLossProbabilityUpdatesCursor(t *testing.T) {
	w, _, _ := newTestWorker(t)
	p := 0.4
	result := w.Call(&model.Event{Kind: model.EventSetLossProbability, LossProbability: &p})
	if result.Err != nil {
		t.Fatalf("Call: %v", result.Err)
	}
	if w.cursor.LossProbability != 0.4 {
		t.Fatalf("cursor.LossProbability = %v, want 0.4", w.cursor.LossProbability)
	}
}

func TestAutoMineStartsAndStopTerminatesTheLoop(t *testing.T) {
	w, supervisor, markStopped := newTestWorker(t)
	result := w.Call(&model.Event{Kind: model.EventAutoMine})
	if result.Err != nil || result.Tag != "automining" {
		t.Fatalf("AutoMine result = %+v", result)
	}
	if !w.Snapshot().Automine {
		t.Fatalf("Automine flag not set")
	}
	if supervisor.starts == 0 {
		t.Fatalf("AutoMine should have started at least one search")
	}

	result = w.Call(&model.Event{Kind: model.EventStop})
	markStopped()
	if result.Err != nil || result.Tag != "stopped" {
		t.Fatalf("Stop result = %+v", result)
	}
}
