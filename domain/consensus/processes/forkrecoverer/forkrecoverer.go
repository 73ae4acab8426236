// Package forkrecoverer drives catch-up against a single peer when a
// longer chain is observed: fetch the peer's hash chain, walk back to the
// common ancestor, then fetch and validate forward one block at a time,
// replaying every tx along the way to rebuild an authoritative wallet
// list for the adopted tip. Grounded on the corpus's IBD
// (initial-block-download) headers-then-blocks flow
// (blockdag/blockdag.go's chain-selection plus a netsync-style
// fetch-and-verify loop), collapsed to one peer and one recovery attempt
// at a time since the node worker already serializes everything else.
package forkrecoverer

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ArchainTeam/archain/domain/consensus/model"
	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
	"github.com/ArchainTeam/archain/domain/gossip"
	"github.com/ArchainTeam/archain/domain/store"
	"github.com/ArchainTeam/archain/infrastructure/logger"
)

var log, _ = logger.Get(logger.SubsystemTags.FORK)

// recoveryTimeout bounds a single Recover attempt: a peer that stalls
// mid-fetch fails the attempt rather than wedging the state forever.
const recoveryTimeout = 2 * time.Minute

// poster is the one method forkRecoverer needs from the node worker,
// kept narrow to avoid an import cycle with the nodeworker package.
type poster interface {
	Post(event *model.Event)
}

type forkRecoverer struct {
	mu    sync.Mutex
	state model.ForkRecovererState

	walletLedger     model.WalletLedger
	rewardCalculator model.RewardCalculator
	blockValidator   model.BlockValidator
	store            store.Store
	peerClient       model.PeerClient
	worker           poster
}

// New returns a ForkRecoverer, idle until Recover is first called.
func New(
	walletLedger model.WalletLedger,
	rewardCalculator model.RewardCalculator,
	blockValidator model.BlockValidator,
	store store.Store,
	peerClient model.PeerClient,
	worker poster,
) model.ForkRecoverer {
	return &forkRecoverer{
		walletLedger:     walletLedger,
		rewardCalculator: rewardCalculator,
		blockValidator:   blockValidator,
		store:            store,
		peerClient:       peerClient,
		worker:           worker,
	}
}

// State reports the current recovery state.
func (r *forkRecoverer) State() model.ForkRecovererState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Recover registers Idle -> Recovering and, on success, drives the
// fetch-and-validate loop in the background. A recovery already in
// flight makes this a no-op: the caller should retry once it completes.
func (r *forkRecoverer) Recover(peer gossip.Peer, targetHeight uint64, targetHash externalapi.DomainHash) bool {
	r.mu.Lock()
	if r.state == model.ForkRecovererRecovering {
		r.mu.Unlock()
		return false
	}
	r.state = model.ForkRecovererRecovering
	r.mu.Unlock()

	go r.run(peer, targetHeight, targetHash)
	return true
}

func (r *forkRecoverer) run(peer gossip.Peer, targetHeight uint64, targetHash externalapi.DomainHash) {
	ctx, cancel := context.WithTimeout(context.Background(), recoveryTimeout)
	defer cancel()

	newHashes, err := r.recover(ctx, peer, targetHeight, targetHash)
	if err != nil {
		log.Warnf("fork recovery against %s toward height %d failed: %s", peer.Addr, targetHeight, err)
		r.mu.Lock()
		r.state = model.ForkRecovererFailed
		r.mu.Unlock()
		return
	}

	r.mu.Lock()
	r.state = model.ForkRecovererCompleted
	r.mu.Unlock()

	r.worker.Post(&model.Event{Kind: model.EventForkRecovered, NewHashes: newHashes})
}

// recover fetches peer's genesis-first hash chain, finds the common
// ancestor with what's already in Store, then fetches, validates, and
// persists every block (and the txs it carries) from the ancestor
// forward. It returns the new chain ordered tip-to-genesis, the
// convention block_index and EventForkRecovered.NewHashes both use.
func (r *forkRecoverer) recover(ctx context.Context, peer gossip.Peer, targetHeight uint64, targetHash externalapi.DomainHash) ([]externalapi.DomainHash, error) {
	hashes, err := r.peerClient.Hashes(ctx, peer, 0)
	if err != nil {
		return nil, err
	}
	if uint64(len(hashes)) != targetHeight+1 || hashes[len(hashes)-1] != targetHash {
		return nil, errors.New("peer's chain doesn't match the announced target")
	}

	ancestorHeight := r.commonAncestor(hashes)

	var prevBlock *externalapi.DomainBlock
	var wallets externalapi.WalletList
	diff, lastRetarget := uint64(1), int64(0)
	if ancestorHeight >= 0 {
		prevBlock, err = r.store.ReadBlock(hashes[ancestorHeight])
		if err != nil {
			return nil, err
		}
		wallets, err = r.store.ReadWalletList(prevBlock.WalletRoot)
		if err != nil {
			return nil, err
		}
		diff, lastRetarget = prevBlock.Diff, prevBlock.LastRetarget
	} else {
		wallets = externalapi.WalletList{}
	}

	for h := ancestorHeight + 1; h <= int(targetHeight); h++ {
		block, err := r.peerClient.Block(ctx, peer, hashes[h])
		if err != nil {
			return nil, err
		}

		txs, err := r.fetchTxs(ctx, peer, block.TxIDs)
		if err != nil {
			return nil, err
		}

		var recallWeaveSize uint64
		if prevBlock == nil {
			if block.Height != 0 {
				return nil, errors.New("first fetched block is not genesis")
			}
		} else {
			recall, err := r.fetchRecall(ctx, peer, hashes, block)
			if err != nil {
				return nil, err
			}
			recallWeaveSize = recall.WeaveSize
			if err := r.blockValidator.ValidateBlock(block, txs, prevBlock, recall, wallets, diff, lastRetarget, nowMs()); err != nil {
				return nil, err
			}
		}

		finder, newPool := r.rewardCalculator.Calculate(prevBlockRewardPool(prevBlock), txs, recallWeaveSize, block.WeaveSize, block.Height)
		walletsAfterTxs, _, ok := r.walletLedger.ApplyTxs(wallets, txs)
		if !ok {
			return nil, errors.New("tx application failed during recovery replay")
		}
		wallets = r.walletLedger.ApplyMiningReward(walletsAfterTxs, block.RewardAddr, finder)
		block.RewardPool = newPool

		for _, tx := range txs {
			if err := r.store.WriteTx(tx); err != nil {
				return nil, err
			}
		}
		if err := r.store.WriteBlock(block); err != nil {
			return nil, err
		}
		if err := r.store.WriteWalletList(block.WalletRoot, wallets); err != nil {
			return nil, err
		}

		diff, lastRetarget = block.Diff, block.LastRetarget
		prevBlock = block
	}

	tipToGenesis := make([]externalapi.DomainHash, len(hashes))
	for i, hash := range hashes {
		tipToGenesis[len(hashes)-1-i] = hash
	}
	return tipToGenesis, nil
}

// commonAncestor returns the highest height at which hashes agrees with
// what's already persisted locally, or -1 if even genesis doesn't match
// (a from-scratch join).
func (r *forkRecoverer) commonAncestor(hashes []externalapi.DomainHash) int {
	ancestorHeight := -1
	for i, hash := range hashes {
		local, err := r.store.ReadBlock(hash)
		if err != nil {
			break
		}
		if local.Height != uint64(i) {
			break
		}
		ancestorHeight = i
	}
	return ancestorHeight
}

func (r *forkRecoverer) fetchTxs(ctx context.Context, peer gossip.Peer, ids []externalapi.DomainHash) ([]*externalapi.DomainTransaction, error) {
	txs := make([]*externalapi.DomainTransaction, len(ids))
	for i, id := range ids {
		tx, err := r.store.ReadTx(id)
		if err == nil {
			txs[i] = tx
			continue
		}
		tx, err = r.peerClient.Tx(ctx, peer, id)
		if err != nil {
			return nil, err
		}
		txs[i] = tx
	}
	return txs, nil
}

// fetchRecall resolves block's recall reference against the genesis-first
// hash list being recovered: the index is always below block's own
// height, so the referenced block has already been fetched, validated,
// and written to Store by the time the caller needs it.
func (r *forkRecoverer) fetchRecall(ctx context.Context, peer gossip.Peer, hashes []externalapi.DomainHash, block *externalapi.DomainBlock) (*externalapi.DomainBlock, error) {
	idx := externalapi.RecallHeight(block.IndepHash, block.Height)
	recall, err := r.store.ReadBlock(hashes[idx])
	if err == nil {
		return recall, nil
	}
	return r.peerClient.Block(ctx, peer, hashes[idx])
}

func prevBlockRewardPool(prevBlock *externalapi.DomainBlock) externalapi.Winston {
	if prevBlock == nil {
		return externalapi.ZeroWinston()
	}
	return prevBlock.RewardPool
}

func nowMs() int64 { return time.Now().UnixMilli() }
