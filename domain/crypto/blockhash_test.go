package crypto

import (
	"testing"

	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
)

func TestBlockIndepHashStableUnderPostNonceFields(t *testing.T) {
	base := &externalapi.DomainBlock{
		Previous: Hash256([]byte("parent")),
		Height:   5,
		Diff:     3,
		TxRoot:   Hash256([]byte("txs")),
	}
	h1 := BlockIndepHash(base)

	mutated := base.Clone()
	mutated.Timestamp = 123456
	mutated.LastRetarget = 999
	mutated.WeaveSize = 42
	mutated.RewardPool = externalapi.NewWinstonFromUint64(7)
	mutated.Nonce = []byte{9, 9, 9}

	h2 := BlockIndepHash(mutated)
	if h1 != h2 {
		t.Fatalf("BlockIndepHash changed with a field it should not depend on: %x != %x", h1, h2)
	}
}

func TestBlockIndepHashChangesWithCommittedFields(t *testing.T) {
	base := &externalapi.DomainBlock{Previous: Hash256([]byte("parent")), Height: 1, Diff: 1}
	h1 := BlockIndepHash(base)

	changedHeight := base.Clone()
	changedHeight.Height = 2
	if BlockIndepHash(changedHeight) == h1 {
		t.Fatalf("BlockIndepHash did not change with Height")
	}

	changedDiff := base.Clone()
	changedDiff.Diff = 2
	if BlockIndepHash(changedDiff) == h1 {
		t.Fatalf("BlockIndepHash did not change with Diff")
	}
}
