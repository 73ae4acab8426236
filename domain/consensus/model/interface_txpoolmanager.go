package model

import "github.com/ArchainTeam/archain/domain/consensus/model/externalapi"

// TxPoolManager classifies incoming txs into waiting/active/potential
// and detects conflicts.
type TxPoolManager interface {
	// AddTx attempts to admit tx into the waiting pool, or routes it to
	// potential_txs on conflict. Returns the propagation delay to wait
	// before Promote should fire, and whether tx was admitted at all
	// (false only for an exact-duplicate id).
	AddTx(state *externalapi.NodeStateFields, tx *externalapi.DomainTransaction) (delay int64, admitted bool)

	// Promote moves tx from waiting_txs into txs, subject to the memory
	// check (free > memoryCheckRatio * tx.data_size, the ratio 4 by
	// default), and recomputes
	// floating_wallet_list. Returns false if tx was dropped instead of
	// promoted (insufficient free memory, or tx no longer in waiting_txs).
	Promote(state *externalapi.NodeStateFields, tx *externalapi.DomainTransaction) bool

	// Aggregate returns txs ++ waiting_txs ++ potential_txs, the full set
	// of txs the node currently knows about.
	Aggregate(state *externalapi.NodeStateFields) []*externalapi.DomainTransaction

	// Conflicting reports whether a and b conflict:
	// a.last_tx == b.last_tx && a.owner == b.owner.
	Conflicting(a, b *externalapi.DomainTransaction) bool

	// LastConflictReason returns the diagnostics tag recorded for txID by
	// the most recent AddTx call that routed it to potential_txs, or ""
	// if none.
	LastConflictReason(txID externalapi.DomainHash) string
}
