package externalapi

// BlockIndexEntry is one (block_hash, weave_size, tx_root) triple in the
// node's block_index, ordered tip-to-genesis.
type BlockIndexEntry struct {
	BlockHash DomainHash
	WeaveSize uint64
	TxRoot DomainHash
}

// NotJoined is the sentinel block_index value meaning the node has not yet
// completed its first fork recovery.
var NotJoined []BlockIndexEntry

// IsNotJoined reports whether a block index is the NotJoined sentinel
// (nil, as opposed to an empty-but-non-nil slice, which cannot occur once
// joined since genesis is always present).
func IsNotJoined(blockIndex []BlockIndexEntry) bool {
	return blockIndex == nil
}

// NodeStateFields is the full field set owned exclusively by the node
// worker.
type NodeStateFields struct {
	ID DomainHash

	BlockIndex []BlockIndexEntry
	Height uint64

	WalletList WalletList
	FloatingWalletList WalletList

	Txs []*DomainTransaction
	WaitingTxs []*DomainTransaction
	PotentialTxs []*DomainTransaction

	RewardPool Winston
	RewardAddr *DomainHash // nil == Unclaimed

	WeaveSize uint64

	Diff uint64
	LastRetarget int64

	Tags [][2][]byte
	MiningDelay int64

	Automine bool
}

// Clone returns a deep copy of the state so readers can be handed a
// consistent snapshot without risk of the writer mutating it underneath
// them.
func (s *NodeStateFields) Clone() *NodeStateFields {
	if s == nil {
		return nil
	}
	clone := *s
	clone.BlockIndex = append([]BlockIndexEntry(nil), s.BlockIndex...)
	clone.WalletList = s.WalletList.Clone()
	clone.FloatingWalletList = s.FloatingWalletList.Clone()
	clone.Txs = cloneTxSlice(s.Txs)
	clone.WaitingTxs = cloneTxSlice(s.WaitingTxs)
	clone.PotentialTxs = cloneTxSlice(s.PotentialTxs)
	clone.RewardPool = s.RewardPool.Clone()
	clone.RewardAddr = s.RewardAddr.Clone()
	return &clone
}

func cloneTxSlice(txs []*DomainTransaction) []*DomainTransaction {
	clone := make([]*DomainTransaction, len(txs))
	for i, tx := range txs {
		clone[i] = tx.Clone()
	}
	return clone
}

// NewEmptyNodeState returns the zero-value state a node starts with before
// its first join: NotJoined block index, empty pools and wallets.
func NewEmptyNodeState(id DomainHash) *NodeStateFields {
	return &NodeStateFields{
		ID: id,
		BlockIndex: NotJoined,
		WalletList: WalletList{},
		FloatingWalletList: WalletList{},
		RewardPool: ZeroWinston(),
	}
}
