package crypto

import (
	"encoding/binary"

	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
)

// BlockIndepHash computes a block's independent hash from exactly the
// fields knowable before a nonce search starts: Previous, Height, Diff,
// TxRoot, TxIDs, RewardAddr, and Tags. Timestamp, LastRetarget,
// WalletRoot, RewardPool, and WeaveSize are all derived from (or in
// Timestamp's case, produced alongside) the nonce itself, so none of them
// can be part of what the miner commits to before searching; the miner
// computes this hash once up front and the node worker recomputes the
// identical value when validating the resulting WorkComplete, so the two
// must agree bit-for-bit on field order.
func BlockIndepHash(block *externalapi.DomainBlock) externalapi.DomainHash {
	buf := make([]byte, 0, 128+len(block.Tags)*32)
	buf = append(buf, block.Previous[:]...)
	buf = appendUint64(buf, block.Height)
	buf = appendUint64(buf, block.Diff)
	buf = append(buf, block.TxRoot[:]...)
	for _, id := range block.TxIDs {
		buf = append(buf, id[:]...)
	}
	if block.RewardAddr != nil {
		buf = append(buf, block.RewardAddr[:]...)
	}
	for _, tag := range block.Tags {
		buf = append(buf, tag[0]...)
		buf = append(buf, tag[1]...)
	}
	return Hash256(buf)
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}
