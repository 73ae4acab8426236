package externalapi

import (
	"encoding/hex"

	"github.com/pkg/errors"
)

// DomainHashSize is the size, in bytes, of the hashes used throughout the
// weave: block hashes, tx ids, and wallet addresses are all this size.
const DomainHashSize = 32

// DomainHash is the domain representation of a 32-byte hash.
type DomainHash [DomainHashSize]byte

// NewDomainHashFromByteSlice returns a new DomainHash made of the given bytes.
func NewDomainHashFromByteSlice(b []byte) (*DomainHash, error) {
	if len(b) != DomainHashSize {
		return nil, errors.Errorf("invalid hash size: want %d, got %d", DomainHashSize, len(b))
	}
	var h DomainHash
	copy(h[:], b)
	return &h, nil
}

// String returns the hash as a hexadecimal string.
func (h DomainHash) String() string {
	return hex.EncodeToString(h[:])
}

// Equal returns whether h equals other.
func (h *DomainHash) Equal(other *DomainHash) bool {
	if h == nil || other == nil {
		return h == other
	}
	return *h == *other
}

// Clone returns a copy of h.
func (h *DomainHash) Clone() *DomainHash {
	if h == nil {
		return nil
	}
	clone := *h
	return &clone
}

// HashesEqual returns whether two hash slices are equal, element-wise.
func HashesEqual(a, b []*DomainHash) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
