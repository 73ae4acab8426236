package crypto

import (
	"math/big"
	"testing"

	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
)

func TestTargetHalvesPerDiffUnit(t *testing.T) {
	t0 := Target(0)
	t1 := Target(1)
	half := new(big.Int).Rsh(t0, 1)
	if half.Cmp(t1) != 0 {
		t.Fatalf("Target(1) = %s, want half of Target(0) = %s", t1, t0)
	}
}

func TestCheckPoWAgreesWithManualComparison(t *testing.T) {
	indep := externalapi.DomainHash{1}
	recall := externalapi.DomainHash{2}
	nonce := NonceFromUint64(0)

	h := PowHash(indep, recall, nonce)
	hv := new(big.Int).SetBytes(h[:])

	for _, diff := range []uint64{0, 1, 8, 64} {
		want := hv.Cmp(Target(diff)) < 0
		got := CheckPoW(indep, recall, nonce, diff)
		if got != want {
			t.Errorf("diff=%d: CheckPoW=%v, want %v", diff, got, want)
		}
	}
}

func TestCheckPoWDiffZeroAlwaysPasses(t *testing.T) {
	indep := externalapi.DomainHash{0xff}
	recall := externalapi.DomainHash{0xee}
	for i := uint64(0); i < 16; i++ {
		if !CheckPoW(indep, recall, NonceFromUint64(i), 0) {
			t.Fatalf("nonce %d failed CheckPoW at diff 0, should always pass", i)
		}
	}
}

func TestNonceFromUint64RoundTripsDistinctValues(t *testing.T) {
	a := NonceFromUint64(1)
	b := NonceFromUint64(2)
	if string(a) == string(b) {
		t.Fatalf("distinct counters produced identical nonces")
	}
	if len(a) != 8 {
		t.Fatalf("nonce length = %d, want 8", len(a))
	}
}
