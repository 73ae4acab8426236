package crypto

import "github.com/ArchainTeam/archain/domain/consensus/model/externalapi"

// WalletsRoot commits a wallet list to a single hash: each wallet hashes
// to addr‖balance‖last_tx, and the leaves are combined the same way
// BuildMerkleRoot combines tx ids. Addresses are sorted first so the root
// is independent of Go's randomized map iteration order.
func WalletsRoot(wallets externalapi.WalletList) externalapi.DomainHash {
	addrs := make([]externalapi.DomainHash, 0, len(wallets))
	for addr := range wallets {
		addrs = append(addrs, addr)
	}
	sortHashes(addrs)

	leaves := make([]externalapi.DomainHash, len(addrs))
	for i, addr := range addrs {
		entry := wallets[addr]
		buf := make([]byte, 0, externalapi.DomainHashSize*2+len(entry.Balance.String()))
		buf = append(buf, addr[:]...)
		buf = append(buf, []byte(entry.Balance.String())...)
		buf = append(buf, entry.LastTx[:]...)
		leaves[i] = Hash256(buf)
	}
	return BuildMerkleRoot(leaves)
}

func sortHashes(hs []externalapi.DomainHash) {
	for i := 1; i < len(hs); i++ {
		for j := i; j > 0 && lessHash(hs[j], hs[j-1]); j-- {
			hs[j], hs[j-1] = hs[j-1], hs[j]
		}
	}
}

func lessHash(a, b externalapi.DomainHash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
