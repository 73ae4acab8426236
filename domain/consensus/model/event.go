package model

import (
	"github.com/google/uuid"

	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
	"github.com/ArchainTeam/archain/domain/gossip"
)

// EventKind is the closed, exhaustively-switched tag for every event the
// node worker accepts, implemented as a tagged variant dispatched over a
// single inbound channel rather than dynamic message passing.
type EventKind int

// EventKind values, one per kind of message the node worker accepts.
const (
	EventAddTx EventKind = iota
	EventEncounterNewTx
	EventProcessNewBlock
	EventWorkComplete
	EventForkRecovered
	EventMine
	EventMineAtDiff
	EventAutoMine
	EventReplaceBlockList
	EventIgnore
	EventSetRewardAddr
	EventSetLossProbability
	EventSetDelay
	EventSetXferSpeed
	EventSetMiningDelay
	EventAddPeers
	EventStop
)

// EventResult is the synchronous reply to a call-style event: either
// {ok, tag} or {error, reason}. Tag carries the ok case (e.g.
// "set_reward_addr", "ignored", "integrated"); Err carries the error case.
type EventResult struct {
	Tag string
	Err error
}

// Event is the single tagged-variant mailbox message every producer posts
// to the node worker's inbound queue. Only the fields relevant to Kind are
// populated; ReplyCh, if non-nil, is how the worker answers a synchronous
// call — fire-and-forget casts leave it nil.
type Event struct {
	Kind EventKind

	// CallID correlates a synchronous Call with its eventual log lines and
	// reply; fire-and-forget Posts leave it the zero UUID.
	CallID uuid.UUID

	Tx *externalapi.DomainTransaction
	Block *externalapi.DomainBlock
	RecallBlock *externalapi.DomainBlock
	Peer gossip.Peer
	HashList []externalapi.DomainHash

	WorkTxs []*externalapi.DomainTransaction
	WorkDiff uint64
	WorkNonce []byte
	WorkTimestamp int64

	NewHashes []externalapi.DomainHash

	DiffOverride *uint64

	ReplaceBlocks []*externalapi.DomainBlock

	RewardAddr *externalapi.DomainHash
	LossProbability *float64
	DelayMs *int64
	XferSpeedBps *int64
	MiningDelayMs *int64
	Peers []gossip.Peer

	GossipCursor *gossip.Cursor

	ReplyCh chan EventResult
}

// Reply sends a result on e.ReplyCh if the caller asked for one (non-nil
// channel), and is always safe to call even for fire-and-forget events.
func (e *Event) Reply(tag string, err error) {
	if e.ReplyCh == nil {
		return
	}
	select {
	case e.ReplyCh <- EventResult{Tag: tag, Err: err}:
	default:
	}
}
