package model

import "github.com/ArchainTeam/archain/domain/consensus/model/externalapi"

// RewardCalculator computes the finder's share and the new reward pool
// from the recall block's size and the weave size.
type RewardCalculator interface {
	// Calculate returns (finder, newPool): base := oldPool +
	// sum(tx.reward); finder := floor(base * proportion); newPool := base -
	// finder. proportion is derived from recallBlockSize, weaveSize, and
	// height via a height-dependent schedule.
	Calculate(oldPool externalapi.Winston, txs []*externalapi.DomainTransaction, recallBlockSize, weaveSize, height uint64) (finder, newPool externalapi.Winston)
}
