// Package gossip implements the opaque gossip boundary: peer discovery
// and message fan-out the node worker drives through a cursor it owns
// and mutates. LocalGossip is an in-process reference transport, grounded
// on the corpus's netadaptermock pattern (a fake-but-real transport
// usable in tests without a socket), extended with loss/delay/
// transfer-speed knobs that are real, observable configuration rather
// than no-ops.
package gossip

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
)

// Peer identifies one gossip participant.
type Peer struct {
	ID externalapi.DomainHash
	Addr string
}

// MessageKind tags the two gossip message shapes.
type MessageKind int

// MessageKind values.
const (
	MessageNewBlock MessageKind = iota
	MessageNewTx
)

// Message is the tagged union of gossip payloads: NewBlock(height, block,
// recall_block) or NewTx(tx).
type Message struct {
	Kind MessageKind
	Height uint64
	Block *externalapi.DomainBlock
	RecallBlock *externalapi.DomainBlock
	Tx *externalapi.DomainTransaction
}

// Cursor is the gossip-layer handle the node worker owns: known peers plus
// the simulated network characteristics applied to everything it sends.
// The node worker holds it as its own field and is the only one to mutate it.
type Cursor struct {
	NodeID externalapi.DomainHash
	Peers []Peer
	LossProbability float64
	DelayMs int64
	XferSpeedBps int64
}

// Envelope is a delivered message, handed to a peer's inbox. ID is a
// fresh delivery id stamped at send time, so a receiver logging or
// de-duplicating deliveries has something to key on besides message
// content.
type Envelope struct {
	ID uuid.UUID
	From externalapi.DomainHash
	Msg Message
}

// LocalGossip is a process-wide registry of peer inboxes: an in-process
// stand-in for a real P2P transport, sufficient to drive the node worker's
// AddTx/ProcessNewBlock event path end to end in tests and in a single
// process running multiple simulated nodes.
type LocalGossip struct {
	mu sync.RWMutex
	inboxes map[externalapi.DomainHash]chan Envelope
	rand func() float64
}

// NewLocalGossip returns an empty registry.
func NewLocalGossip() *LocalGossip {
	return &LocalGossip{
		inboxes: make(map[externalapi.DomainHash]chan Envelope),
		rand: defaultRand,
	}
}

// Register gives nodeID an inbox of the given buffer size and returns it
// for the caller to read from.
func (g *LocalGossip) Register(nodeID externalapi.DomainHash, bufferSize int) <-chan Envelope {
	g.mu.Lock()
	defer g.mu.Unlock()

	ch := make(chan Envelope, bufferSize)
	g.inboxes[nodeID] = ch
	return ch
}

// Peers returns the peers currently known to cursor.
func (g *LocalGossip) Peers(cursor Cursor, _ *externalapi.DomainBlock) []Peer {
	return append([]Peer(nil), cursor.Peers...)
}

// Send delivers msg to every peer known to cursor, subject to cursor's
// loss probability, and returns the (unchanged) cursor plus the set of
// peers it was actually delivered to.
func (g *LocalGossip) Send(cursor Cursor, msg Message) (Cursor, []Peer) {
	delivered := make([]Peer, 0, len(cursor.Peers))
	size := messageSize(msg)
	delay := time.Duration(cursor.DelayMs) * time.Millisecond
	if cursor.XferSpeedBps > 0 {
		delay += time.Duration(size*8*1000/cursor.XferSpeedBps) * time.Millisecond
	}

	for _, peer := range cursor.Peers {
		if cursor.LossProbability > 0 && g.rand() < cursor.LossProbability {
			continue
		}
		g.mu.RLock()
		inbox, ok := g.inboxes[peer.ID]
		g.mu.RUnlock()
		if !ok {
			continue
		}
		delivered = append(delivered, peer)
		envelope := Envelope{ID: uuid.New(), From: cursor.NodeID, Msg: msg}
		if delay <= 0 {
			trySend(inbox, envelope)
			continue
		}
		time.AfterFunc(delay, func() { trySend(inbox, envelope) })
	}
	return cursor, delivered
}

// AddPeers returns a cursor with peers added, de-duplicated by ID.
func (g *LocalGossip) AddPeers(cursor Cursor, peers []Peer) Cursor {
	known := make(map[externalapi.DomainHash]bool, len(cursor.Peers))
	for _, p := range cursor.Peers {
		known[p.ID] = true
	}
	for _, p := range peers {
		if !known[p.ID] {
			cursor.Peers = append(cursor.Peers, p)
			known[p.ID] = true
		}
	}
	return cursor
}

// SetLossProbability returns a cursor with the given loss probability,
// clamped to [0,1].
func (g *LocalGossip) SetLossProbability(cursor Cursor, p float64) Cursor {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	cursor.LossProbability = p
	return cursor
}

// SetDelay returns a cursor with the given per-send base delay.
func (g *LocalGossip) SetDelay(cursor Cursor, ms int64) Cursor {
	cursor.DelayMs = ms
	return cursor
}

// SetXferSpeed returns a cursor with the given simulated transfer speed,
// in bits per second.
func (g *LocalGossip) SetXferSpeed(cursor Cursor, bps int64) Cursor {
	cursor.XferSpeedBps = bps
	return cursor
}

func trySend(ch chan Envelope, e Envelope) {
	select {
	case ch <- e:
	default:
	}
}

func messageSize(msg Message) int64 {
	switch msg.Kind {
	case MessageNewBlock:
		if msg.Block == nil {
			return 0
		}
		return int64(len(msg.Block.TxIDs))*externalapi.DomainHashSize + externalapi.DomainHashSize
	case MessageNewTx:
		if msg.Tx == nil {
			return 0
		}
		return int64(len(msg.Tx.Data)) + int64(len(msg.Tx.Signature)) + int64(len(msg.Tx.Owner))
	default:
		return 0
	}
}

func defaultRand() float64 {
	return pseudoRandSource.Float64()
}
