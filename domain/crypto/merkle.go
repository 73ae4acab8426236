package crypto

import (
	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
)

// BuildMerkleRoot builds a binary Merkle tree over leaves (already-hashed
// chunks, e.g. tx ids) and returns its root. An empty leaf set hashes to
// the zero hash; a single leaf is its own root, following the usual
// convention for odd tree levels of duplicating the last node rather than
// leaving it unpaired.
func BuildMerkleRoot(leaves []externalapi.DomainHash) externalapi.DomainHash {
	if len(leaves) == 0 {
		return externalapi.DomainHash{}
	}
	level := make([]externalapi.DomainHash, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]externalapi.DomainHash, len(level)/2)
		for i := 0; i < len(next); i++ {
			pair := make([]byte, 2*externalapi.DomainHashSize)
			copy(pair[:externalapi.DomainHashSize], level[2*i][:])
			copy(pair[externalapi.DomainHashSize:], level[2*i+1][:])
			next[i] = Hash256(pair)
		}
		level = next
	}
	return level[0]
}
