// Package crypto implements SHA-256 hashing, RSA-PSS signing/
// verification, address derivation, and Merkle tree construction as
// black-box primitives. None of the example repos in the retrieval pack
// ship an RSA-PSS signer (their signature schemes are all
// elliptic-curve, e.g. btcec/secp256k1, a different primitive), so this
// package uses the standard library's crypto/rsa and crypto/sha256
// directly rather than force-fit an EC-signing dependency onto an RSA
// contract.
package crypto

import (
	"crypto/sha256"

	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
)

// Hash256 computes the SHA-256 digest of data.
func Hash256(data []byte) externalapi.DomainHash {
	return sha256.Sum256(data)
}

// ToAddress derives a wallet address from an RSA public key's modulus
// bytes.
func ToAddress(pubKeyBytes []byte) externalapi.DomainHash {
	return Hash256(pubKeyBytes)
}
