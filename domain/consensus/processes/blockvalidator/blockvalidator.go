// Package blockvalidator verifies a candidate block against the prior
// head, its txs, the recall block, and wallet state, short-circuiting on
// the first failed check. Grounded on the corpus's ordered-checklist
// validation style (blockdag/validate.go and domain/consensus/ruleerrors'
// named RuleError catalogue).
package blockvalidator

import (
	"github.com/ArchainTeam/archain/domain/consensus/model"
	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
	"github.com/ArchainTeam/archain/domain/consensus/ruleerrors"
	"github.com/ArchainTeam/archain/domain/crypto"
)

type blockValidator struct {
	walletLedger     model.WalletLedger
	rewardCalculator model.RewardCalculator
}

// New returns a BlockValidator.
func New(walletLedger model.WalletLedger, rewardCalculator model.RewardCalculator) model.BlockValidator {
	return &blockValidator{walletLedger: walletLedger, rewardCalculator: rewardCalculator}
}

// ExpectedDifficulty reports the difficulty a block at this height must
// carry, applying the retarget schedule when due.
func (v *blockValidator) ExpectedDifficulty(prevHead *externalapi.DomainBlock, lastRetarget int64, candidateTimestamp int64) uint64 {
	if prevHead == nil {
		return 1
	}
	return expectedDifficulty(prevHead.Diff, prevHead.Height+1, lastRetarget, candidateTimestamp)
}

// ValidateBlock runs height, previous-hash, timestamp, difficulty,
// last-retarget, PoW, Merkle root, tx-application, wallet-root, and
// weave-size checks in order, returning the first failure as a
// ruleerrors.RuleError, or nil if candidate is valid.
func (v *blockValidator) ValidateBlock(
	candidate *externalapi.DomainBlock,
	txs []*externalapi.DomainTransaction,
	prevHead *externalapi.DomainBlock,
	recallBlock *externalapi.DomainBlock,
	walletList externalapi.WalletList,
	diff uint64,
	lastRetarget int64,
	now int64,
) error {
	// 1. candidate.height = prev_head.height + 1
	if candidate.Height != prevHead.Height+1 {
		return ruleerrors.ErrWrongHeight
	}

	// 2. candidate.previous = prev_head.indep_hash
	if candidate.Previous != prevHead.IndepHash {
		return ruleerrors.ErrWrongPrevious
	}

	// 3. Timestamp monotonicity and clock-skew window.
	if candidate.Timestamp <= prevHead.Timestamp {
		return ruleerrors.ErrTimeTooOld
	}
	if candidate.Timestamp > now+ClockSkewToleranceMs {
		return ruleerrors.ErrTimeTooMuchInTheFuture
	}

	// 4. Difficulty equals the expected retarget.
	expected := expectedDifficulty(diff, candidate.Height, lastRetarget, candidate.Timestamp)
	if candidate.Diff != expected {
		return ruleerrors.ErrUnexpectedDifficulty
	}

	// 5. last_retarget carries forward unchanged except on a retarget
	// boundary, where it becomes the candidate's own timestamp: the
	// baseline every future retarget measures elapsed time against.
	expectedLastRetarget := lastRetarget
	if candidate.Height%RetargetBlocks == 0 {
		expectedLastRetarget = candidate.Timestamp
	}
	if candidate.LastRetarget != expectedLastRetarget {
		return ruleerrors.ErrBadLastRetarget
	}

	// 6. Proof-of-work predicate.
	if !crypto.CheckPoW(candidate.IndepHash, recallBlock.IndepHash, candidate.Nonce, candidate.Diff) {
		return ruleerrors.ErrInvalidPoW
	}

	// 7. Merkle root of txs matches candidate.tx_root.
	leaves := make([]externalapi.DomainHash, len(txs))
	for i, tx := range txs {
		leaves[i] = tx.ID
	}
	if crypto.BuildMerkleRoot(leaves) != candidate.TxRoot {
		return ruleerrors.ErrBadMerkleRoot
	}

	// 8. Applying txs to wallet_list in order yields no invalid step.
	walletsAfterTxs, applied, ok := v.walletLedger.ApplyTxs(walletList, txs)
	if !ok || applied != len(txs) {
		return ruleerrors.ErrInvalidTxApplication
	}

	// 9. Applying the mining reward to the post-tx wallet state yields
	// candidate.wallet_root.
	finder, _ := v.rewardCalculator.Calculate(prevHead.RewardPool, txs, recallBlock.WeaveSize, candidate.WeaveSize, candidate.Height)
	walletsAfterReward := v.walletLedger.ApplyMiningReward(walletsAfterTxs, candidate.RewardAddr, finder)
	if crypto.WalletsRoot(walletsAfterReward) != candidate.WalletRoot {
		return ruleerrors.ErrBadWalletRoot
	}

	// 10. candidate.weave_size = prev.weave_size + sum(tx.data_size).
	var txDataTotal uint64
	for _, tx := range txs {
		txDataTotal += tx.DataSize
	}
	if candidate.WeaveSize != prevHead.WeaveSize+txDataTotal {
		return ruleerrors.ErrBadWeaveSize
	}

	return nil
}
