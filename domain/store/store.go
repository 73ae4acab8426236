// Package store defines the opaque persistence boundary: the node worker
// treats block/tx/wallet durability as someone else's problem, reachable
// only through this interface. MemoryStore is the in-tree reference
// implementation, grounded on the Store/Stage interface shape used
// throughout kaspad's domain/consensus/model datastructure interfaces,
// simplified to synchronous read/write pairs.
package store

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
)

// Sentinel errors for the outcomes a Store implementation must report.
var (
	ErrNotEnoughSpace = errors.New("not enough space")
	ErrUnavailable = errors.New("unavailable")
	ErrFirewallReject = errors.New("firewall reject")
)

// Store is the persistence boundary: block/tx/wallet read and write,
// plus block-index read/write.
type Store interface {
	WriteBlock(block *externalapi.DomainBlock) error
	ReadBlock(hash externalapi.DomainHash) (*externalapi.DomainBlock, error)
	ReadBlockByHeight(height uint64) (*externalapi.DomainBlock, error)

	WriteTx(tx *externalapi.DomainTransaction) error
	ReadTx(id externalapi.DomainHash) (*externalapi.DomainTransaction, error)

	WriteBlockIndex(index []externalapi.BlockIndexEntry) error
	ReadBlockIndex() ([]externalapi.BlockIndexEntry, error)

	WriteWalletList(root externalapi.DomainHash, wallets externalapi.WalletList) error
	ReadWalletList(root externalapi.DomainHash) (externalapi.WalletList, error)
}

// MemoryStore is a map-backed Store guarded by a single mutex: concurrently
// readable, writes serialized.
type MemoryStore struct {
	mu sync.RWMutex

	blocksByHash map[externalapi.DomainHash]*externalapi.DomainBlock
	blocksByHeight map[uint64]*externalapi.DomainBlock
	txs map[externalapi.DomainHash]*externalapi.DomainTransaction
	blockIndex []externalapi.BlockIndexEntry
	wallets map[externalapi.DomainHash]externalapi.WalletList

	bytesWritten uint64
	quotaBytes uint64 // 0 == unlimited
}

// NewMemoryStore returns an empty MemoryStore. quotaBytes == 0 means no
// quota is enforced; a positive quota makes WriteBlock return
// ErrNotEnoughSpace once the cumulative tx data written would exceed it,
// exercising that branch of the Store contract without real disk I/O.
func NewMemoryStore(quotaBytes uint64) *MemoryStore {
	return &MemoryStore{
		blocksByHash: make(map[externalapi.DomainHash]*externalapi.DomainBlock),
		blocksByHeight: make(map[uint64]*externalapi.DomainBlock),
		txs: make(map[externalapi.DomainHash]*externalapi.DomainTransaction),
		wallets: make(map[externalapi.DomainHash]externalapi.WalletList),
		quotaBytes: quotaBytes,
	}
}

// WriteBlock stores block, indexed by hash and height.
func (s *MemoryStore) WriteBlock(block *externalapi.DomainBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := block.WeaveSize
	if s.quotaBytes != 0 && s.bytesWritten+size > s.quotaBytes {
		return ErrNotEnoughSpace
	}
	s.bytesWritten += size

	clone := block.Clone()
	s.blocksByHash[clone.IndepHash] = clone
	s.blocksByHeight[clone.Height] = clone
	return nil
}

// ReadBlock returns the block stored under hash, or ErrUnavailable.
func (s *MemoryStore) ReadBlock(hash externalapi.DomainHash) (*externalapi.DomainBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	block, ok := s.blocksByHash[hash]
	if !ok {
		return nil, ErrUnavailable
	}
	return block.Clone(), nil
}

// ReadBlockByHeight returns the block at height, or ErrUnavailable.
func (s *MemoryStore) ReadBlockByHeight(height uint64) (*externalapi.DomainBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	block, ok := s.blocksByHeight[height]
	if !ok {
		return nil, ErrUnavailable
	}
	return block.Clone(), nil
}

// WriteTx stores tx, keyed by id.
func (s *MemoryStore) WriteTx(tx *externalapi.DomainTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txs[tx.ID] = tx.Clone()
	return nil
}

// ReadTx returns the tx stored under id, or ErrUnavailable.
func (s *MemoryStore) ReadTx(id externalapi.DomainHash) (*externalapi.DomainTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.txs[id]
	if !ok {
		return nil, ErrUnavailable
	}
	return tx.Clone(), nil
}

// WriteBlockIndex persists the full block index.
func (s *MemoryStore) WriteBlockIndex(index []externalapi.BlockIndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blockIndex = append([]externalapi.BlockIndexEntry(nil), index...)
	return nil
}

// ReadBlockIndex returns the persisted block index.
func (s *MemoryStore) ReadBlockIndex() ([]externalapi.BlockIndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]externalapi.BlockIndexEntry(nil), s.blockIndex...), nil
}

// WriteWalletList persists a wallet tree under root, at the granularity
// of a whole list per root (chunking within a root is an on-disk-format
// concern out of scope here).
func (s *MemoryStore) WriteWalletList(root externalapi.DomainHash, wallets externalapi.WalletList) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wallets[root] = wallets.Clone()
	return nil
}

// ReadWalletList returns the wallet tree stored under root.
func (s *MemoryStore) ReadWalletList(root externalapi.DomainHash) (externalapi.WalletList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wallets, ok := s.wallets[root]
	if !ok {
		return nil, ErrUnavailable
	}
	return wallets.Clone(), nil
}
