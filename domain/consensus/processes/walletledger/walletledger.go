// Package walletledger applies txs and mining rewards to a wallet map.
// Ordering-sensitive, grounded on the corpus's balance-application style
// (e.g. kaspad's UTXO apply/undo passes in blockdag/accept.go), adapted
// from a UTXO model to an account-balance model.
package walletledger

import (
	"github.com/ArchainTeam/archain/domain/consensus/model"
	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
)

type walletLedger struct{}

// New returns a WalletLedger.
func New() model.WalletLedger {
	return &walletLedger{}
}

// ApplyTx applies tx to wallets: if tx.quantity > 0, debit
// owner by quantity+reward and credit target by quantity; otherwise
// (archival) debit owner by reward only. owner's last_tx is always
// updated on success. A debit that would underflow leaves wallets
// unchanged and reports failure.
func (l *walletLedger) ApplyTx(wallets externalapi.WalletList, tx *externalapi.DomainTransaction) (externalapi.WalletList, bool) {
	ownerAddr := tx.OwnerAddr

	debit := tx.Reward
	if !tx.IsArchival() {
		debit = tx.Quantity.Add(tx.Reward)
	}

	ownerEntry := wallets[ownerAddr]
	if ownerEntry.Balance.Cmp(debit) < 0 {
		return wallets, false
	}

	next := wallets.Clone()
	ownerEntry.Balance = ownerEntry.Balance.Sub(debit)
	ownerEntry.LastTx = tx.ID
	next[ownerAddr] = ownerEntry

	if !tx.IsArchival() {
		targetEntry := next[tx.Target]
		targetEntry.Balance = targetEntry.Balance.Add(tx.Quantity)
		next[tx.Target] = targetEntry
	}

	return next, true
}

// ApplyTxs folds ApplyTx over txs in order, stopping at the first failure.
func (l *walletLedger) ApplyTxs(wallets externalapi.WalletList, txs []*externalapi.DomainTransaction) (externalapi.WalletList, int, bool) {
	current := wallets
	for i, tx := range txs {
		next, ok := l.ApplyTx(current, tx)
		if !ok {
			return current, i, false
		}
		current = next
	}
	return current, len(txs), true
}

// FilterOutOfOrder returns the longest prefix-closed sub-sequence of txs
// that apply cleanly in order, greedily skipping any tx that would fail
// against the running wallet state.
func (l *walletLedger) FilterOutOfOrder(wallets externalapi.WalletList, txs []*externalapi.DomainTransaction) ([]*externalapi.DomainTransaction, externalapi.WalletList) {
	kept := make([]*externalapi.DomainTransaction, 0, len(txs))
	current := wallets
	for _, tx := range txs {
		next, ok := l.ApplyTx(current, tx)
		if !ok {
			continue
		}
		current = next
		kept = append(kept, tx)
	}
	return kept, current
}

// ApplyMiningReward credits amount to addr, a no-op if addr is nil
// (Unclaimed).
func (l *walletLedger) ApplyMiningReward(wallets externalapi.WalletList, addr *externalapi.DomainHash, amount externalapi.Winston) externalapi.WalletList {
	if addr == nil {
		return wallets
	}
	next := wallets.Clone()
	entry := next[*addr]
	entry.Balance = entry.Balance.Add(amount)
	next[*addr] = entry
	return next
}
