// Package txpoolmanager classifies incoming txs into waiting/active/
// potential and detects conflicts. Grounded on the corpus's mempool
// admission/orphan-pool split (kaspad's domain/miningmanager/mempool
// transactions_pool.go + orphan_pool.go), adapted from UTXO-input
// conflicts to an account-model same-owner/same-last_tx conflict rule.
package txpoolmanager

import (
	"sync"

	"github.com/ArchainTeam/archain/domain/consensus/model"
	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
)

// FreeMemoryFunc reports free system memory, in bytes. Injected so the
// memory-pressure admission check is testable without depending on the
// real OS memory state.
type FreeMemoryFunc func() uint64

// ConflictReasonLastTxNotValid is the diagnostics tag recorded for a tx
// routed to potential_txs because it conflicts with one already admitted.
const ConflictReasonLastTxNotValid = "last_tx_not_valid"

// DefaultMemoryCheckRatio is the "4x data_size" anti-DoS admission
// multiplier New falls back to when the caller passes 0.
const DefaultMemoryCheckRatio = 4

type txPoolManager struct {
	walletLedger     model.WalletLedger
	freeMemory       FreeMemoryFunc
	memoryCheckRatio int64

	mu          sync.Mutex
	diagnostics map[externalapi.DomainHash]string
}

// New returns a TxPoolManager. freeMemory reports current free system
// memory for the admission check in Promote. memoryCheckRatio is the
// multiplier that check applies to a tx's data size; 0 selects
// DefaultMemoryCheckRatio.
func New(walletLedger model.WalletLedger, freeMemory FreeMemoryFunc, memoryCheckRatio int64) model.TxPoolManager {
	if memoryCheckRatio == 0 {
		memoryCheckRatio = DefaultMemoryCheckRatio
	}
	return &txPoolManager{
		walletLedger:     walletLedger,
		freeMemory:       freeMemory,
		memoryCheckRatio: memoryCheckRatio,
		diagnostics:      make(map[externalapi.DomainHash]string),
	}
}

// Conflicting reports a.last_tx == b.last_tx && a.owner == b.owner.
func (m *txPoolManager) Conflicting(a, b *externalapi.DomainTransaction) bool {
	return a.LastTx == b.LastTx && a.OwnerAddr == b.OwnerAddr
}

// AddTx checks tx against txs ∪ waiting_txs ∪ potential_txs for a
// conflict. No conflict: append to waiting_txs and report the
// propagation delay the caller must schedule a Promote event after.
// Conflict: record the diagnostics tag and append to potential_txs.
// Duplicate ids are reported as not admitted and otherwise ignored.
func (m *txPoolManager) AddTx(state *externalapi.NodeStateFields, tx *externalapi.DomainTransaction) (int64, bool) {
	for _, existing := range m.Aggregate(state) {
		if existing.ID == tx.ID {
			return 0, false
		}
	}

	for _, existing := range m.Aggregate(state) {
		if m.Conflicting(existing, tx) {
			m.mu.Lock()
			m.diagnostics[tx.ID] = ConflictReasonLastTxNotValid
			m.mu.Unlock()
			state.PotentialTxs = append(state.PotentialTxs, tx)
			return 0, true
		}
	}

	state.WaitingTxs = append(state.WaitingTxs, tx)
	return propagationDelayMs(tx.DataSize), true
}

// Promote moves tx from waiting_txs to txs iff free memory exceeds
// memoryCheckRatio * tx.data_size; otherwise drops tx from waiting_txs
// only. On promotion, recomputes floating_wallet_list by applying tx onto
// the current floating list.
func (m *txPoolManager) Promote(state *externalapi.NodeStateFields, tx *externalapi.DomainTransaction) bool {
	idx := -1
	for i, waiting := range state.WaitingTxs {
		if waiting.ID == tx.ID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}
	state.WaitingTxs = append(state.WaitingTxs[:idx], state.WaitingTxs[idx+1:]...)

	if m.freeMemory() <= uint64(m.memoryCheckRatio)*tx.DataSize {
		return false
	}

	state.Txs = append(state.Txs, tx)
	if next, ok := m.walletLedger.ApplyTx(state.FloatingWalletList, tx); ok {
		state.FloatingWalletList = next
	}
	return true
}

// Aggregate returns txs ++ waiting_txs ++ potential_txs.
func (m *txPoolManager) Aggregate(state *externalapi.NodeStateFields) []*externalapi.DomainTransaction {
	out := make([]*externalapi.DomainTransaction, 0, len(state.Txs)+len(state.WaitingTxs)+len(state.PotentialTxs))
	out = append(out, state.Txs...)
	out = append(out, state.WaitingTxs...)
	out = append(out, state.PotentialTxs...)
	return out
}

// LastConflictReason returns the diagnostics tag most recently recorded
// for txID, or "" if none was recorded.
func (m *txPoolManager) LastConflictReason(txID externalapi.DomainHash) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.diagnostics[txID]
}

// FixedDelayMs, when non-nil, overrides propagationDelayMs with a
// constant — a test-only knob so scenario tests don't have to wait
// 30 real seconds.
var FixedDelayMs *int64

// propagationDelayMs is the simulated gossip propagation delay for a tx
// of the given data size: 30000 + (b * 300) / 1000 milliseconds.
func propagationDelayMs(dataSize uint64) int64 {
	if FixedDelayMs != nil {
		return *FixedDelayMs
	}
	return 30_000 + int64(dataSize*300)/1000
}
