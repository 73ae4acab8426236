// Package rewardcalculator computes the finder's share of the reward
// pool and the pool's new balance, derived from the recall block's size
// relative to the weave size. Grounded on the corpus's fee/subsidy split
// style (kaspad's coinbasemanager splits a fixed subsidy; this splits a
// variable pool by a height-dependent proportion instead), done entirely
// in integer/big.Int arithmetic so the split is reproducible bit-for-bit.
package rewardcalculator

import (
	"math/big"

	"github.com/ArchainTeam/archain/domain/consensus/model"
	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
)

// Height bands for the proportion schedule.
const (
	earlyChainHeightLimit = 1_000
	taperedHeightLimit = 1_000_000
	baselineNum = 1
	baselineDen = 10
)

type rewardCalculator struct{}

// New returns a RewardCalculator.
func New() model.RewardCalculator {
	return &rewardCalculator{}
}

// Calculate computes:
//
//	tx_fees := sum(tx.reward)
//	base := old_pool + tx_fees
//	finder := floor(base * proportion)
//	new_pool := base - finder
func (c *rewardCalculator) Calculate(oldPool externalapi.Winston, txs []*externalapi.DomainTransaction, recallBlockSize, weaveSize, height uint64) (finder, newPool externalapi.Winston) {
	fees := externalapi.ZeroWinston()
	for _, tx := range txs {
		fees = fees.Add(tx.Reward)
	}
	base := oldPool.Add(fees)

	num, den := proportion(recallBlockSize, weaveSize, height)
	finder = base.MulRat(num, den)
	newPool = base.Sub(finder)
	return finder, newPool
}

// proportion returns the height-dependent num/den pair the three height
// bands below resolve to, combined with big.Int throughout so a weaveSize
// near the top of the uint64 range can never overflow the combination step.
func proportion(recallBlockSize, weaveSize, height uint64) (num, den *big.Int) {
	if weaveSize == 0 {
		return big.NewInt(0), big.NewInt(1)
	}
	rawNum := new(big.Int).SetUint64(recallBlockSize)
	rawDen := new(big.Int).SetUint64(weaveSize)

	switch {
	case height < earlyChainHeightLimit:
		return rawNum, rawDen
	case height < taperedHeightLimit:
		// (raw + baseline) / 2, over a common denominator of rawDen*baselineDen*2.
		num = new(big.Int).Mul(rawNum, big.NewInt(baselineDen))
		num.Add(num, new(big.Int).Mul(big.NewInt(baselineNum), rawDen))
		den = new(big.Int).Mul(rawDen, big.NewInt(baselineDen*2))
		return num, den
	default:
		return big.NewInt(baselineNum), big.NewInt(baselineDen)
	}
}
