package nodeworker

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/ArchainTeam/archain/domain/consensus/model"
	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
	"github.com/ArchainTeam/archain/domain/consensus/processes/blockvalidator"
	"github.com/ArchainTeam/archain/domain/consensus/ruleerrors"
	"github.com/ArchainTeam/archain/domain/crypto"
	"github.com/ArchainTeam/archain/domain/gossip"
)

// recallFetchTimeout bounds the out-of-band fetch handleProcessNewBlock
// kicks off when a candidate's recall block isn't already in Store: it
// runs off the worker goroutine so a slow or unresponsive peer never
// blocks dispatch of the next event.
const recallFetchTimeout = 30 * time.Second

func nowMs() int64 { return time.Now().UnixMilli() }

// fetchRecallFromPeer asks peer for the recall block this node's Store
// doesn't have, off the worker goroutine, and reposts the candidate block
// for another pass through handleProcessNewBlock once it arrives. If peer
// doesn't have it either, the candidate is dropped, same as any other
// recall-unavailable outcome.
func (w *Worker) fetchRecallFromPeer(peer gossip.Peer, recallHash externalapi.DomainHash, block *externalapi.DomainBlock, hashList []externalapi.DomainHash) {
	if w.peerClient == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recallFetchTimeout)
		defer cancel()

		recall, err := w.peerClient.Block(ctx, peer, recallHash)
		if err != nil {
			log.Warnf("recall block %s for candidate %s is unavailable from %s: %s", recallHash, block.IndepHash, peer.Addr, err)
			return
		}
		w.Post(&model.Event{Kind: model.EventProcessNewBlock, Block: block, RecallBlock: recall, Peer: peer, HashList: hashList})
	}()
}

// handleAddTx admits tx into waiting_txs (or routes it to potential_txs on
// conflict) and, once admitted, schedules its own promotion after the
// simulated propagation delay.
func (w *Worker) handleAddTx(event *model.Event) {
	tx := event.Tx
	var delay int64
	var admitted bool
	w.stateStore.Update(func(state *externalapi.NodeStateFields) {
		delay, admitted = w.txPoolManager.AddTx(state, tx)
	})
	if !admitted {
		event.Reply("duplicate", nil)
		return
	}
	w.schedule(time.Duration(delay)*time.Millisecond, &model.Event{Kind: model.EventEncounterNewTx, Tx: tx})
	event.Reply("waiting", nil)
}

// handleEncounterNewTx promotes tx out of waiting_txs once its propagation
// delay has elapsed, then relays it onward: a tx already vetted by the
// memory check is safe to flood to peers.
func (w *Worker) handleEncounterNewTx(event *model.Event) {
	tx := event.Tx
	var promoted bool
	w.stateStore.Update(func(state *externalapi.NodeStateFields) {
		promoted = w.txPoolManager.Promote(state, tx)
	})
	if !promoted {
		log.Debugf("tx %s dropped at promotion: %s", tx.ID, w.txPoolManager.LastConflictReason(tx.ID))
		event.Reply("dropped", nil)
		return
	}
	w.gossipNewTx(tx)
	event.Reply("promoted", nil)
}

// handleProcessNewBlock runs the receive-a-block algorithm: stale blocks
// just move the gossip cursor, a height gap triggers fork recovery, and
// an exact next-height block is fetched-out, validated, and integrated.
func (w *Worker) handleProcessNewBlock(event *model.Event) {
	block, recall, peer, hashList := event.Block, event.RecallBlock, event.Peer, event.HashList
	state := w.stateStore.Snapshot()

	if externalapi.IsNotJoined(state.BlockIndex) {
		w.forkRecoverer.Recover(peer, block.Height, block.IndepHash)
		event.Reply("joining", nil)
		return
	}

	if block.Height <= state.Height {
		log.Debugf("ignoring block %s at height %d (current height %d)", block.IndepHash, block.Height, state.Height)
		event.Reply("stale", nil)
		return
	}

	if block.Height > state.Height+1 {
		log.Infof("block %s at height %d is ahead of height %d, starting fork recovery", block.IndepHash, block.Height, state.Height)
		w.forkRecoverer.Recover(peer, block.Height, block.IndepHash)
		event.Reply("fork-recovery-started", nil)
		return
	}

	if recall == nil {
		recallHash, err := findRecallHash(block, hashList)
		if err != nil {
			event.Reply("", err)
			return
		}
		recall, err = w.store.ReadBlock(recallHash)
		if err != nil {
			log.Warnf("recall block %s for candidate %s is unavailable locally, asking %s: %s", recallHash, block.IndepHash, peer.Addr, err)
			w.fetchRecallFromPeer(peer, recallHash, block, hashList)
			event.Reply("recall-unavailable", nil)
			return
		}
	}

	txs, err := w.resolveTxs(state, block.TxIDs)
	if err != nil {
		log.Warnf("block %s references unknown tx: %s", block.IndepHash, err)
		w.forkRecoverer.Recover(peer, block.Height, block.IndepHash)
		event.Reply("missing-tx", err)
		return
	}

	finder, _ := w.rewardCalculator.Calculate(state.RewardPool, txs, recall.WeaveSize, block.WeaveSize, block.Height)
	walletsAfterTxs, _, _ := w.walletLedger.ApplyTxs(state.WalletList, txs)
	newWallets := w.walletLedger.ApplyMiningReward(walletsAfterTxs, block.RewardAddr, finder)

	prevHead, err := w.headBlock(state)
	if err != nil {
		event.Reply("", err)
		return
	}

	err = w.blockValidator.ValidateBlock(block, txs, prevHead, recall, state.WalletList, state.Diff, state.LastRetarget, nowMs())
	if err != nil {
		log.Warnf("block %s failed validation: %s", block.IndepHash, err)
		w.forkRecoverer.Recover(peer, block.Height, block.IndepHash)
		event.Reply("invalid", err)
		return
	}

	if w.forkRecoverer.State() == model.ForkRecovererRecovering {
		w.forkRecoverer.Recover(peer, block.Height, block.IndepHash)
		event.Reply("fork-recovery-in-progress", nil)
		return
	}

	w.integrate(block, txs, newWallets)
	w.gossipNewBlock(block, recall)
	event.Reply("integrated", nil)
}

// handleWorkComplete assembles the candidate block the miner found a
// nonce for, validates it against the current head, and on success
// integrates it. A validation failure means the miner raced a block that
// arrived from a peer in the meantime; with a fixed probability the
// active tx pools are also wiped, to clear whichever tx the new chain
// invalidated rather than let it wedge every future mining attempt.
func (w *Worker) handleWorkComplete(event *model.Event) {
	state := w.stateStore.Snapshot()
	if externalapi.IsNotJoined(state.BlockIndex) {
		event.Reply("not-joined", nil)
		return
	}

	prevHead, err := w.headBlock(state)
	if err != nil {
		event.Reply("", err)
		return
	}

	recallHeight := externalapi.RecallHeight(prevHead.IndepHash, state.Height+1)
	recall, err := w.store.ReadBlockByHeight(recallHeight)
	if err != nil {
		log.Warnf("WorkComplete: recall block at height %d unavailable: %s", recallHeight, err)
		w.resetMiner()
		event.Reply("recall-unavailable", nil)
		return
	}

	candidate, newWallets := w.buildCandidate(state, prevHead, recall, event.WorkTxs, event.WorkDiff, event.WorkNonce, event.WorkTimestamp)

	err = w.blockValidator.ValidateBlock(candidate, event.WorkTxs, prevHead, recall, state.WalletList, state.Diff, state.LastRetarget, nowMs())
	if err != nil {
		log.Warnf("mined block %s failed validation: %s", candidate.IndepHash, err)
		if w.rand.Float64() < forkWipeProbability {
			log.Infof("wiping tx pools after failed mined block")
			w.stateStore.Update(func(s *externalapi.NodeStateFields) {
				s.Txs = nil
				s.WaitingTxs = nil
				s.PotentialTxs = nil
				s.FloatingWalletList = s.WalletList.Clone()
			})
		}
		w.resetMiner()
		event.Reply("invalid", err)
		return
	}

	w.integrate(candidate, event.WorkTxs, newWallets)
	w.gossipNewBlock(candidate, recall)
	event.Reply("integrated", nil)
}

// buildCandidate assembles the block a found nonce completes: every field
// except Nonce and IndepHash is derived from current state, then
// IndepHash is taken over exactly those fields, matching what the miner
// committed to before starting its search.
func (w *Worker) buildCandidate(
	state *externalapi.NodeStateFields,
	prevHead, recall *externalapi.DomainBlock,
	txs []*externalapi.DomainTransaction,
	diff uint64,
	nonce []byte,
	timestamp int64,
) (*externalapi.DomainBlock, externalapi.WalletList) {
	var txDataTotal uint64
	txIDs := make([]externalapi.DomainHash, len(txs))
	for i, tx := range txs {
		txIDs[i] = tx.ID
		txDataTotal += tx.DataSize
	}

	finder, newPool := w.rewardCalculator.Calculate(state.RewardPool, txs, recall.WeaveSize, prevHead.WeaveSize+txDataTotal, state.Height+1)
	walletsAfterTxs, _, _ := w.walletLedger.ApplyTxs(state.WalletList, txs)
	newWallets := w.walletLedger.ApplyMiningReward(walletsAfterTxs, state.RewardAddr, finder)

	height := state.Height + 1
	lastRetarget := state.LastRetarget
	if height%blockvalidator.RetargetBlocks == 0 {
		lastRetarget = timestamp
	}

	candidate := &externalapi.DomainBlock{
		Previous:     prevHead.IndepHash,
		Height:       height,
		Timestamp:    timestamp,
		LastRetarget: lastRetarget,
		Diff:         diff,
		Nonce:        nonce,
		TxRoot:       crypto.BuildMerkleRoot(txIDs),
		TxIDs:        txIDs,
		WalletRoot:   crypto.WalletsRoot(newWallets),
		RewardAddr:   state.RewardAddr,
		RewardPool:   newPool,
		WeaveSize:    prevHead.WeaveSize + txDataTotal,
		Tags:         state.Tags,
	}
	candidate.IndepHash = crypto.BlockIndepHash(candidate)
	return candidate, newWallets
}

// handleForkRecovered adopts a recovered chain: its tip block becomes the
// new head, and txs/potential_txs are rebuilt against the new wallet
// state so nothing incompatible with the new chain survives.
func (w *Worker) handleForkRecovered(event *model.Event) {
	newHashes := event.NewHashes
	if len(newHashes) == 0 {
		event.Reply("empty", nil)
		return
	}

	tip, err := w.store.ReadBlock(newHashes[0])
	if err != nil {
		event.Reply("", err)
		return
	}
	wallets, err := w.store.ReadWalletList(tip.WalletRoot)
	if err != nil {
		event.Reply("", err)
		return
	}

	blockIndex := make([]externalapi.BlockIndexEntry, len(newHashes))
	for i, hash := range newHashes {
		block, err := w.store.ReadBlock(hash)
		if err != nil {
			event.Reply("", err)
			return
		}
		blockIndex[i] = externalapi.BlockIndexEntry{BlockHash: hash, WeaveSize: block.WeaveSize, TxRoot: block.TxRoot}
	}

	w.stateStore.Update(func(state *externalapi.NodeStateFields) {
		state.BlockIndex = blockIndex
		state.WalletList = wallets
		state.Height = tip.Height
		state.RewardPool = tip.RewardPool
		state.Diff = tip.Diff
		state.LastRetarget = tip.LastRetarget
		state.WeaveSize = tip.WeaveSize

		combined := append(append([]*externalapi.DomainTransaction{}, state.Txs...), state.PotentialTxs...)
		state.Txs, state.FloatingWalletList = w.walletLedger.FilterOutOfOrder(wallets, combined)
		state.PotentialTxs = nil
	})

	_ = w.store.WriteBlockIndex(blockIndex)
	w.resetMiner()
	event.Reply("adopted", nil)
}

// handleMine asks the mining supervisor to start a PoW search over the
// current (or overridden) difficulty, current active txs, and the recall
// block the current height implies.
func (w *Worker) handleMine(event *model.Event, diffOverride *uint64) {
	state := w.stateStore.Snapshot()
	if externalapi.IsNotJoined(state.BlockIndex) {
		event.Reply("not-joined", nil)
		return
	}

	prevHead, err := w.headBlock(state)
	if err != nil {
		event.Reply("", err)
		return
	}

	recallHeight := externalapi.RecallHeight(prevHead.IndepHash, state.Height+1)
	recall, err := w.store.ReadBlockByHeight(recallHeight)
	if err != nil {
		log.Warnf("Mine: recall block at height %d unavailable: %s", recallHeight, err)
		event.Reply("recall-unavailable", nil)
		return
	}

	diff := w.blockValidator.ExpectedDifficulty(prevHead, state.LastRetarget, nowMs())
	if diffOverride != nil {
		diff = *diffOverride
	}
	w.miningSupervisor.Start(prevHead, recall, state.Txs, diff, state.RewardAddr, state.Tags)
	event.Reply("mining", nil)
}

// handleAutoMine flips automine on and kicks off the first search; once
// set, every subsequent integration's miner reset starts another round.
func (w *Worker) handleAutoMine(event *model.Event) {
	w.stateStore.Update(func(state *externalapi.NodeStateFields) {
		state.Automine = true
	})
	w.handleMine(&model.Event{}, nil)
	event.Reply("automining", nil)
}

// handleReplaceBlockList forcibly overrides the head: an administrative
// escape hatch (seeding a node from a known-good chain snapshot) rather
// than part of ordinary consensus.
func (w *Worker) handleReplaceBlockList(event *model.Event) {
	blocks := event.ReplaceBlocks
	if len(blocks) == 0 {
		event.Reply("empty", nil)
		return
	}
	tip := blocks[0]
	wallets, err := w.store.ReadWalletList(tip.WalletRoot)
	if err != nil {
		event.Reply("", err)
		return
	}

	blockIndex := make([]externalapi.BlockIndexEntry, len(blocks))
	for i, block := range blocks {
		blockIndex[i] = externalapi.BlockIndexEntry{BlockHash: block.IndepHash, WeaveSize: block.WeaveSize, TxRoot: block.TxRoot}
		_ = w.store.WriteBlock(block)
	}

	w.stateStore.Update(func(state *externalapi.NodeStateFields) {
		state.BlockIndex = blockIndex
		state.Height = tip.Height
		state.WalletList = wallets
		state.FloatingWalletList = wallets.Clone()
		state.RewardPool = tip.RewardPool
		state.Diff = tip.Diff
		state.LastRetarget = tip.LastRetarget
		state.WeaveSize = tip.WeaveSize
	})
	_ = w.store.WriteBlockIndex(blockIndex)
	w.resetMiner()
	event.Reply("replaced", nil)
}

// handleIgnore just records that a message was seen, advancing nothing in
// core state beyond the gossip cursor's own bookkeeping.
func (w *Worker) handleIgnore(event *model.Event) {
	if event.GossipCursor != nil {
		w.cursor = *event.GossipCursor
	}
	event.Reply("ignored", nil)
}

func (w *Worker) handleSetRewardAddr(event *model.Event) {
	w.stateStore.Update(func(state *externalapi.NodeStateFields) {
		state.RewardAddr = event.RewardAddr
	})
	event.Reply("set_reward_addr", nil)
}

func (w *Worker) handleSetLossProbability(event *model.Event) {
	if event.LossProbability != nil {
		w.cursor = w.gossip.SetLossProbability(w.cursor, *event.LossProbability)
	}
	event.Reply("set_loss_probability", nil)
}

func (w *Worker) handleSetDelay(event *model.Event) {
	if event.DelayMs != nil {
		w.cursor = w.gossip.SetDelay(w.cursor, *event.DelayMs)
	}
	event.Reply("set_delay", nil)
}

func (w *Worker) handleSetXferSpeed(event *model.Event) {
	if event.XferSpeedBps != nil {
		w.cursor = w.gossip.SetXferSpeed(w.cursor, *event.XferSpeedBps)
	}
	event.Reply("set_xfer_speed", nil)
}

func (w *Worker) handleSetMiningDelay(event *model.Event) {
	if event.MiningDelayMs != nil {
		w.stateStore.Update(func(state *externalapi.NodeStateFields) {
			state.MiningDelay = *event.MiningDelayMs
		})
	}
	event.Reply("set_mining_delay", nil)
}

func (w *Worker) handleAddPeers(event *model.Event) {
	w.cursor = w.gossip.AddPeers(w.cursor, event.Peers)
	event.Reply("add_peers", nil)
}

// integrate applies the post-conditions of advancing the head to block:
// persist it and its txs, install the new confirmed state, re-filter the
// txs the block didn't consume against the new wallet list, and reseed
// the miner.
func (w *Worker) integrate(block *externalapi.DomainBlock, txs []*externalapi.DomainTransaction, newWallets externalapi.WalletList) {
	included := make(map[externalapi.DomainHash]bool, len(txs))
	for _, tx := range txs {
		included[tx.ID] = true
	}

	w.stateStore.Update(func(state *externalapi.NodeStateFields) {
		state.BlockIndex = append([]externalapi.BlockIndexEntry{{
			BlockHash: block.IndepHash,
			WeaveSize: block.WeaveSize,
			TxRoot:    block.TxRoot,
		}}, state.BlockIndex...)
		state.Height = block.Height
		state.WalletList = newWallets

		remaining := make([]*externalapi.DomainTransaction, 0, len(state.Txs))
		for _, tx := range state.Txs {
			if !included[tx.ID] {
				remaining = append(remaining, tx)
			}
		}
		state.Txs, state.FloatingWalletList = w.walletLedger.FilterOutOfOrder(newWallets, remaining)
		state.PotentialTxs = nil
		state.RewardPool = block.RewardPool
		state.WeaveSize = block.WeaveSize
		state.Diff = block.Diff
		state.LastRetarget = block.LastRetarget
	})

	if err := w.store.WriteBlock(block); err != nil {
		log.Errorf("failed to persist integrated block %s: %s", block.IndepHash, err)
	}
	for _, tx := range txs {
		if err := w.store.WriteTx(tx); err != nil {
			log.Errorf("failed to persist tx %s: %s", tx.ID, err)
		}
	}
	if err := w.store.WriteWalletList(block.WalletRoot, newWallets); err != nil {
		log.Errorf("failed to persist wallet list for block %s: %s", block.IndepHash, err)
	}

	state := w.stateStore.Snapshot()
	if err := w.store.WriteBlockIndex(state.BlockIndex); err != nil {
		log.Errorf("failed to persist block index: %s", err)
	}

	w.resetMiner()
}

func (w *Worker) resetMiner() {
	w.miningSupervisor.Reset()
	state := w.stateStore.Snapshot()
	if !state.Automine {
		return
	}
	w.handleMine(&model.Event{}, nil)
}

func (w *Worker) gossipNewTx(tx *externalapi.DomainTransaction) {
	cursor, _ := w.gossip.Send(w.cursor, gossip.Message{Kind: gossip.MessageNewTx, Tx: tx})
	w.cursor = cursor
}

func (w *Worker) gossipNewBlock(block, recall *externalapi.DomainBlock) {
	cursor, _ := w.gossip.Send(w.cursor, gossip.Message{
		Kind:        gossip.MessageNewBlock,
		Height:      block.Height,
		Block:       block,
		RecallBlock: recall,
	})
	w.cursor = cursor
}

// headBlock reads the current tip from Store by the hash recorded at the
// front of block_index.
func (w *Worker) headBlock(state *externalapi.NodeStateFields) (*externalapi.DomainBlock, error) {
	if externalapi.IsNotJoined(state.BlockIndex) || len(state.BlockIndex) == 0 {
		return nil, errors.New("node has no head block")
	}
	return w.store.ReadBlock(state.BlockIndex[0].BlockHash)
}

// resolveTxs looks each of ids up in the tx pools first, falling back to
// Store; a tx found in neither makes the block invalid.
func (w *Worker) resolveTxs(state *externalapi.NodeStateFields, ids []externalapi.DomainHash) ([]*externalapi.DomainTransaction, error) {
	known := make(map[externalapi.DomainHash]*externalapi.DomainTransaction, len(state.Txs)+len(state.WaitingTxs)+len(state.PotentialTxs))
	for _, tx := range w.txPoolManager.Aggregate(state) {
		known[tx.ID] = tx
	}
	txs := make([]*externalapi.DomainTransaction, len(ids))
	for i, id := range ids {
		if tx, ok := known[id]; ok {
			txs[i] = tx
			continue
		}
		tx, err := w.store.ReadTx(id)
		if err != nil {
			return nil, ruleerrors.ErrMissingTx.Wrap(id.String())
		}
		txs[i] = tx
	}
	return txs, nil
}

// findRecallHash derives a block's recall hash from a caller-supplied
// hash list ordered genesis-first, the height-indexing convention
// externalapi.RecallHeight assumes.
func findRecallHash(block *externalapi.DomainBlock, hashList []externalapi.DomainHash) (externalapi.DomainHash, error) {
	if len(hashList) == 0 {
		return externalapi.DomainHash{}, errors.New("empty hash list")
	}
	idx := externalapi.RecallHeight(block.IndepHash, uint64(len(hashList)))
	if idx >= uint64(len(hashList)) {
		return externalapi.DomainHash{}, errors.New("recall height out of range")
	}
	return hashList[idx], nil
}
