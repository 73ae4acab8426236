package gossip

import (
	"testing"
	"time"

	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
)

func TestSendDeliversToRegisteredPeer(t *testing.T) {
	g := NewLocalGossip()
	peerID := externalapi.DomainHash{1}
	inbox := g.Register(peerID, 4)

	cursor := Cursor{NodeID: externalapi.DomainHash{9}, Peers: []Peer{{ID: peerID}}}
	_, delivered := g.Send(cursor, Message{Kind: MessageNewTx, Tx: &externalapi.DomainTransaction{}})

	if len(delivered) != 1 || delivered[0].ID != peerID {
		t.Fatalf("delivered = %v, want [peerID]", delivered)
	}
	select {
	case env := <-inbox:
		if env.From != cursor.NodeID {
			t.Fatalf("envelope.From = %x, want %x", env.From, cursor.NodeID)
		}
	case <-time.After(time.Second):
		t.Fatalf("message never arrived at the registered inbox")
	}
}

func TestSendSkipsUnregisteredPeer(t *testing.T) {
	g := NewLocalGossip()
	cursor := Cursor{Peers: []Peer{{ID: externalapi.DomainHash{1}}}}
	_, delivered := g.Send(cursor, Message{Kind: MessageNewTx})
	if len(delivered) != 0 {
		t.Fatalf("delivered = %v, want none (peer never registered)", delivered)
	}
}

func TestSendRespectsLossProbability(t *testing.T) {
	g := NewLocalGossip()
	peerID := externalapi.DomainHash{1}
	g.Register(peerID, 1)
	g.rand = func() float64 { return 0.01 } // below any loss probability > 0.01, so every send is dropped

	cursor := Cursor{Peers: []Peer{{ID: peerID}}, LossProbability: 0.5}
	_, delivered := g.Send(cursor, Message{Kind: MessageNewTx})
	if len(delivered) != 0 {
		t.Fatalf("delivered = %v, want none (loss roll should have dropped it)", delivered)
	}
}

func TestSetLossProbabilityClamps(t *testing.T) {
	g := NewLocalGossip()
	if got := g.SetLossProbability(Cursor{}, -1).LossProbability; got != 0 {
		t.Fatalf("clamped low = %v, want 0", got)
	}
	if got := g.SetLossProbability(Cursor{}, 2).LossProbability; got != 1 {
		t.Fatalf("clamped high = %v, want 1", got)
	}
}

func TestAddPeersDeduplicatesByID(t *testing.T) {
	g := NewLocalGossip()
	id := externalapi.DomainHash{1}
	cursor := Cursor{Peers: []Peer{{ID: id, Addr: "first"}}}
	cursor = g.AddPeers(cursor, []Peer{{ID: id, Addr: "second"}, {ID: externalapi.DomainHash{2}}})
	if len(cursor.Peers) != 2 {
		t.Fatalf("Peers = %v, want 2 (duplicate id should not be re-added)", cursor.Peers)
	}
}

func TestPeersReturnsACopyNotAnAlias(t *testing.T) {
	g := NewLocalGossip()
	cursor := Cursor{Peers: []Peer{{ID: externalapi.DomainHash{1}}}}
	got := g.Peers(cursor, nil)
	got[0].ID = externalapi.DomainHash{9}
	if cursor.Peers[0].ID != (externalapi.DomainHash{1}) {
		t.Fatalf("mutating the returned slice leaked back into the cursor")
	}
}
