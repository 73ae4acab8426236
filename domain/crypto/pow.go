package crypto

import (
	"encoding/binary"
	"math/big"

	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
)

// maxTarget is the target at diff == 0: the full 256-bit space, i.e. any
// hash satisfies it. Each unit of diff halves the target, doubling the
// expected work, the same shape as Bitcoin-style compact difficulty but
// expressed directly as a bit-shift since this chain has no need for the
// compact (mantissa/exponent) on-wire encoding.
var maxTarget = new(big.Int).Lsh(big.NewInt(1), 256)

// Target returns the 256-bit target hashes must be numerically below to
// satisfy the given difficulty.
func Target(diff uint64) *big.Int {
	return new(big.Int).Rsh(maxTarget, uint(diff))
}

// PowHash computes the hash the proof-of-work predicate checks, binding
// the candidate's independent hash, its nonce, and the recall block's
// hash together.
func PowHash(indepHash, recallHash externalapi.DomainHash, nonce []byte) externalapi.DomainHash {
	buf := make([]byte, 0, 2*externalapi.DomainHashSize+len(nonce))
	buf = append(buf, indepHash[:]...)
	buf = append(buf, nonce...)
	buf = append(buf, recallHash[:]...)
	return Hash256(buf)
}

// CheckPoW reports whether (indepHash, nonce, recallHash) satisfies diff,
// i.e. PowHash's numeric value is below Target(diff).
func CheckPoW(indepHash, recallHash externalapi.DomainHash, nonce []byte, diff uint64) bool {
	h := PowHash(indepHash, recallHash, nonce)
	hv := new(big.Int).SetBytes(h[:])
	return hv.Cmp(Target(diff)) < 0
}

// NonceFromUint64 encodes a counter as an 8-byte big-endian nonce, the
// representation the reference PowSearcher increments while searching.
func NonceFromUint64(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}
