package gossip

import (
	"context"
	"testing"

	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
	"github.com/ArchainTeam/archain/domain/store"
)

func seedStore(t *testing.T, heights int) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore(0)
	for h := 0; h < heights; h++ {
		block := &externalapi.DomainBlock{Height: uint64(h), IndepHash: externalapi.DomainHash{byte(h + 1)}}
		if err := s.WriteBlock(block); err != nil {
			t.Fatalf("WriteBlock: %v", err)
		}
	}
	return s
}

func TestHashesReturnsGenesisFirstRange(t *testing.T) {
	c := NewLocalPeerClient()
	s := seedStore(t, 3)
	peerID := externalapi.DomainHash{1}
	c.Register(peerID, s, func() uint64 { return 2 })

	hashes, err := c.Hashes(context.Background(), Peer{ID: peerID}, 0)
	if err != nil {
		t.Fatalf("Hashes: %v", err)
	}
	if len(hashes) != 3 {
		t.Fatalf("len(hashes) = %d, want 3", len(hashes))
	}
	if hashes[0] != (externalapi.DomainHash{1}) || hashes[2] != (externalapi.DomainHash{3}) {
		t.Fatalf("hashes out of order: %v", hashes)
	}
}

func TestHashesRejectsUnknownPeer(t *testing.T) {
	c := NewLocalPeerClient()
	_, err := c.Hashes(context.Background(), Peer{ID: externalapi.DomainHash{1}}, 0)
	if err != ErrUnknownPeer {
		t.Fatalf("err = %v, want ErrUnknownPeer", err)
	}
}

func TestHashesRejectsFromHeightBeyondTip(t *testing.T) {
	c := NewLocalPeerClient()
	s := seedStore(t, 1)
	peerID := externalapi.DomainHash{1}
	c.Register(peerID, s, func() uint64 { return 0 })

	if _, err := c.Hashes(context.Background(), Peer{ID: peerID}, 5); err == nil {
		t.Fatalf("expected an error for fromHeight beyond the peer's tip")
	}
}

func TestBlockAndTxFetchRoundTrip(t *testing.T) {
	c := NewLocalPeerClient()
	s := store.NewMemoryStore(0)
	block := &externalapi.DomainBlock{Height: 0, IndepHash: externalapi.DomainHash{7}}
	if err := s.WriteBlock(block); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	tx := &externalapi.DomainTransaction{ID: externalapi.DomainHash{8}}
	if err := s.WriteTx(tx); err != nil {
		t.Fatalf("WriteTx: %v", err)
	}

	peerID := externalapi.DomainHash{1}
	c.Register(peerID, s, func() uint64 { return 0 })

	gotBlock, err := c.Block(context.Background(), Peer{ID: peerID}, block.IndepHash)
	if err != nil || gotBlock.IndepHash != block.IndepHash {
		t.Fatalf("Block() = %v, %v", gotBlock, err)
	}

	gotTx, err := c.Tx(context.Background(), Peer{ID: peerID}, tx.ID)
	if err != nil || gotTx.ID != tx.ID {
		t.Fatalf("Tx() = %v, %v", gotTx, err)
	}
}
