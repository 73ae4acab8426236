// Package miningsupervisor starts, cancels, and reseeds the proof-of-work
// search, handing its result back to the node worker as a WorkComplete
// event. Grounded on the corpus's miner goroutine lifecycle (kaspad's
// cmd/kaspaminer loop: spawn a search, cancel on reseed, never let a
// stale search's result reach the consumer), adapted so the search
// itself is injected (PowSearcher) rather than hardcoded, since the
// reference implementation runs the search in-process while a real
// deployment might shell out to dedicated hardware.
package miningsupervisor

import (
	"context"
	"sync"

	"github.com/ArchainTeam/archain/domain/consensus/model"
	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
	"github.com/ArchainTeam/archain/domain/crypto"
	"github.com/ArchainTeam/archain/infrastructure/logger"
)

var log, _ = logger.Get(logger.SubsystemTags.MINR)

// poster is the node worker's inbound half, satisfied by *nodeworker.Worker
// without this package importing it (nodeworker already imports
// model.MiningSupervisor, so the reverse import would cycle).
type poster interface {
	Post(event *model.Event)
}

type miningSupervisor struct {
	searcher model.PowSearcher
	worker   poster

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New returns a MiningSupervisor that posts WorkComplete events to worker
// when searcher finds a satisfying nonce.
func New(searcher model.PowSearcher, worker poster) model.MiningSupervisor {
	return &miningSupervisor{searcher: searcher, worker: worker}
}

// Start cancels any search in flight and begins a new one over the given
// inputs. The candidate's pre-nonce header is hashed once up front; the
// search itself only ever has to vary the nonce.
func (s *miningSupervisor) Start(prevHead, recallBlock *externalapi.DomainBlock, txs []*externalapi.DomainTransaction, diff uint64, rewardAddr *externalapi.DomainHash, tags [][2][]byte) {
	s.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	leaves := make([]externalapi.DomainHash, len(txs))
	for i, tx := range txs {
		leaves[i] = tx.ID
	}
	txRoot := crypto.BuildMerkleRoot(leaves)

	go s.search(ctx, prevHead, recallBlock, txs, leaves, txRoot, diff, rewardAddr, tags)
}

func (s *miningSupervisor) search(
	ctx context.Context,
	prevHead, recallBlock *externalapi.DomainBlock,
	txs []*externalapi.DomainTransaction,
	txIDs []externalapi.DomainHash,
	txRoot externalapi.DomainHash,
	diff uint64,
	rewardAddr *externalapi.DomainHash,
	tags [][2][]byte,
) {
	// The header the worker will independently reconstruct from state at
	// WorkComplete time must hash identically; this preimage carries only
	// the fields BlockIndepHash actually uses, all known before the
	// search starts.
	preimage := &externalapi.DomainBlock{
		Previous:   prevHead.IndepHash,
		Height:     prevHead.Height + 1,
		Diff:       diff,
		TxRoot:     txRoot,
		TxIDs:      txIDs,
		RewardAddr: rewardAddr,
		Tags:       tags,
	}
	indepHash := crypto.BlockIndepHash(preimage)

	nonce, timestamp, found := s.searcher.Search(ctx, indepHash, recallBlock.IndepHash, diff)
	if !found {
		log.Debugf("mining search at diff %d cancelled before a nonce was found", diff)
		return
	}

	log.Infof("found nonce at diff %d", diff)
	s.worker.Post(&model.Event{
		Kind:          model.EventWorkComplete,
		WorkTxs:       txs,
		WorkDiff:      diff,
		WorkNonce:     nonce,
		WorkTimestamp: timestamp,
	})
}

// Reset cancels any search in flight without starting a new one.
func (s *miningSupervisor) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
