package externalapi

// Maximum field sizes accepted on the wire.
const (
	MaxOwnerSize = 512
	MaxSignatureSize = 512
	MaxTagsSize = 2048
	MaxTxSize = 50 * 1024 * 1024
)

// DomainTransaction is the logical tx schema: an owner debits
// quantity+reward to a target (or, for an archival/data-only tx, debits
// just the reward), carrying opaque data whose size and merkle root are
// recorded for weave-size accounting and the data_root check.
type DomainTransaction struct {
	ID DomainHash
	LastTx DomainHash
	Owner []byte // RSA public key modulus bytes; OwnerAddr = to_address(Owner)
	OwnerAddr DomainHash
	Target DomainHash
	Quantity Winston
	Reward Winston
	Tags [][2][]byte
	Data []byte
	Signature []byte
	Format int32
	DataRoot DomainHash
	DataSize uint64
}

// IsArchival reports whether the tx carries no quantity transfer, i.e. it
// only pays the network to store Data.
func (tx *DomainTransaction) IsArchival() bool {
	return tx.Quantity.IsZero()
}

// Clone returns a deep copy of tx.
func (tx *DomainTransaction) Clone() *DomainTransaction {
	if tx == nil {
		return nil
	}
	clone := *tx
	clone.Owner = cloneBytes(tx.Owner)
	clone.Data = cloneBytes(tx.Data)
	clone.Signature = cloneBytes(tx.Signature)
	clone.Quantity = tx.Quantity.Clone()
	clone.Reward = tx.Reward.Clone()
	if tx.Tags != nil {
		clone.Tags = make([][2][]byte, len(tx.Tags))
		for i, tag := range tx.Tags {
			clone.Tags[i] = [2][]byte{cloneBytes(tag[0]), cloneBytes(tag[1])}
		}
	}
	return &clone
}

// Equal returns whether tx equals other under the logical schema.
func (tx *DomainTransaction) Equal(other *DomainTransaction) bool {
	if tx == nil || other == nil {
		return tx == other
	}
	return tx.ID == other.ID &&
		tx.LastTx == other.LastTx &&
		string(tx.Owner) == string(other.Owner) &&
		tx.OwnerAddr == other.OwnerAddr &&
		tx.Target == other.Target &&
		tx.Quantity.Cmp(other.Quantity) == 0 &&
		tx.Reward.Cmp(other.Reward) == 0 &&
		string(tx.Data) == string(other.Data) &&
		string(tx.Signature) == string(other.Signature) &&
		tx.Format == other.Format &&
		tx.DataRoot == other.DataRoot &&
		tx.DataSize == other.DataSize
}

// SignatureInput returns the unencoded concatenation that RSA-PSS
// signs/verifies: owner ‖ target ‖ id ‖ data ‖ quantity ‖
// reward ‖ last_tx.
func (tx *DomainTransaction) SignatureInput() []byte {
	buf := make([]byte, 0, len(tx.Owner)+DomainHashSize+DomainHashSize+len(tx.Data)+64)
	buf = append(buf, tx.Owner...)
	buf = append(buf, tx.Target[:]...)
	buf = append(buf, tx.ID[:]...)
	buf = append(buf, tx.Data...)
	buf = append(buf, []byte(tx.Quantity.String())...)
	buf = append(buf, []byte(tx.Reward.String())...)
	buf = append(buf, tx.LastTx[:]...)
	return buf
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	clone := make([]byte, len(b))
	copy(clone, b)
	return clone
}
