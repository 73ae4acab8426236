package main

import (
	"crypto/rand"
	"time"

	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
	"github.com/ArchainTeam/archain/domain/crypto"
	"github.com/ArchainTeam/archain/infrastructure/config"
)

// startingDiff is the difficulty a brand-new network begins at; later
// blocks retarget away from it as chain throughput warrants.
const startingDiff = 1

// nodeIdentity picks a 32-byte id for this process: RewardAddr if
// configured (a node already has an address, may as well key its gossip
// registration the same way), otherwise a random one, since what matters
// to LocalGossip/LocalPeerClient is that it's unique, not what it is.
func nodeIdentity(cfg *config.Config) (externalapi.DomainHash, error) {
	if cfg.RewardAddrHash != nil {
		return *cfg.RewardAddrHash, nil
	}
	var id externalapi.DomainHash
	if _, err := rand.Read(id[:]); err != nil {
		return externalapi.DomainHash{}, err
	}
	return id, nil
}

// newGenesisBlock builds the block a from-scratch network starts from:
// no parent, no txs, an empty wallet list, starting difficulty. Its
// IndepHash is computed by BlockIndepHash over its pre-nonce fields, the
// same way the miner and buildCandidate hash every later block.
func newGenesisBlock() (*externalapi.DomainBlock, externalapi.WalletList) {
	wallets := externalapi.WalletList{}

	block := &externalapi.DomainBlock{
		Previous:     externalapi.DomainHash{},
		Height:       0,
		Timestamp:    time.Now().UnixMilli(),
		LastRetarget: 0,
		Diff:         startingDiff,
		TxRoot:       crypto.BuildMerkleRoot(nil),
		RewardPool:   externalapi.ZeroWinston(),
		WeaveSize:    0,
	}
	block.IndepHash = crypto.BlockIndepHash(block)
	block.WalletRoot = crypto.WalletsRoot(wallets)

	return block, wallets
}
