package model

import "github.com/ArchainTeam/archain/domain/consensus/model/externalapi"

// WalletLedger applies txs and mining rewards to a wallet map.
type WalletLedger interface {
	// ApplyTx applies a single tx to wallets, returning the resulting
	// wallet list and whether the application succeeded. On failure
	// (debit underflow) the input wallets are returned unchanged.
	ApplyTx(wallets externalapi.WalletList, tx *externalapi.DomainTransaction) (externalapi.WalletList, bool)

	// ApplyTxs folds ApplyTx over txs in order, stopping at the first
	// failure. Returns the resulting wallets, the number of txs actually
	// applied, and whether every tx applied cleanly.
	ApplyTxs(wallets externalapi.WalletList, txs []*externalapi.DomainTransaction) (externalapi.WalletList, int, bool)

	// FilterOutOfOrder returns the longest prefix-closed sub-sequence of
	// txs that apply cleanly in order against wallets, plus the resulting
	// wallet list.
	FilterOutOfOrder(wallets externalapi.WalletList, txs []*externalapi.DomainTransaction) ([]*externalapi.DomainTransaction, externalapi.WalletList)

	// ApplyMiningReward credits amount to addr, a no-op if addr is nil
	// (Unclaimed).
	ApplyMiningReward(wallets externalapi.WalletList, addr *externalapi.DomainHash, amount externalapi.Winston) externalapi.WalletList
}
