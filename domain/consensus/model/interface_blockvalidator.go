package model

import "github.com/ArchainTeam/archain/domain/consensus/model/externalapi"

// BlockValidator verifies a candidate block against the prior head, its
// txs, the recall block, and wallet state.
// ValidateBlock returns nil on success or a ruleerrors.RuleError (wrapped)
// identifying which of the ten checks failed; it never mutates state.
type BlockValidator interface {
	ValidateBlock(
		candidate *externalapi.DomainBlock,
		txs []*externalapi.DomainTransaction,
		prevHead *externalapi.DomainBlock,
		recallBlock *externalapi.DomainBlock,
		walletList externalapi.WalletList,
		diff uint64,
		lastRetarget int64,
		now int64,
	) error

	// ExpectedDifficulty returns the difficulty a block at prevHead's
	// height+1 must carry, per the retarget schedule.
	ExpectedDifficulty(prevHead *externalapi.DomainBlock, lastRetarget int64, candidateTimestamp int64) uint64
}
