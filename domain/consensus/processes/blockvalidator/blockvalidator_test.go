package blockvalidator

import (
	"errors"
	"testing"

	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
	"github.com/ArchainTeam/archain/domain/consensus/processes/rewardcalculator"
	"github.com/ArchainTeam/archain/domain/consensus/processes/walletledger"
	"github.com/ArchainTeam/archain/domain/consensus/ruleerrors"
	"github.com/ArchainTeam/archain/domain/crypto"
)

func newValidator() *blockValidator {
	return &blockValidator{walletLedger: walletledger.New(), rewardCalculator: rewardcalculator.New()}
}

// validGenesisSuccessor builds a prevHead at height 0 and a candidate at
// height 1 that passes every check, for tests to mutate one field at a
// time off of.
func validGenesisSuccessor() (prevHead, candidate, recall *externalapi.DomainBlock, wallets externalapi.WalletList) {
	prevHead = &externalapi.DomainBlock{
		Height: 0, Diff: 1, Timestamp: 1000, LastRetarget: 1000,
		TxRoot: crypto.BuildMerkleRoot(nil), WeaveSize: 0,
	}
	prevHead.IndepHash = crypto.BlockIndepHash(prevHead)
	recall = prevHead

	wallets = externalapi.WalletList{}

	candidate = &externalapi.DomainBlock{
		Previous: prevHead.IndepHash, Height: 1, Diff: 1,
		Timestamp: 2000, LastRetarget: 1000,
		TxRoot: crypto.BuildMerkleRoot(nil), WeaveSize: 0,
	}
	candidate.WalletRoot = crypto.WalletsRoot(wallets)

	candidate.IndepHash = crypto.BlockIndepHash(candidate)
	for nonce := uint64(0); nonce < 1_000_000; nonce++ {
		candidate.Nonce = crypto.NonceFromUint64(nonce)
		if crypto.CheckPoW(candidate.IndepHash, recall.IndepHash, candidate.Nonce, candidate.Diff) {
			break
		}
	}
	return prevHead, candidate, recall, wallets
}

func TestValidateBlockAcceptsWellFormedSuccessor(t *testing.T) {
	v := newValidator()
	prevHead, candidate, recall, wallets := validGenesisSuccessor()

	err := v.ValidateBlock(candidate, nil, prevHead, recall, wallets, prevHead.Diff, prevHead.LastRetarget, candidate.Timestamp+1)
	if err != nil {
		t.Fatalf("ValidateBlock rejected a well-formed successor: %v", err)
	}
}

func TestValidateBlockRejectsWrongHeight(t *testing.T) {
	v := newValidator()
	prevHead, candidate, recall, wallets := validGenesisSuccessor()
	candidate.Height = 5

	err := v.ValidateBlock(candidate, nil, prevHead, recall, wallets, prevHead.Diff, prevHead.LastRetarget, candidate.Timestamp+1)
	if !errors.Is(err, ruleerrors.ErrWrongHeight) {
		t.Fatalf("err = %v, want ErrWrongHeight", err)
	}
}

func TestValidateBlockRejectsWrongPrevious(t *testing.T) {
	v := newValidator()
	prevHead, candidate, recall, wallets := validGenesisSuccessor()
	candidate.Previous = externalapi.DomainHash{0xff}

	err := v.ValidateBlock(candidate, nil, prevHead, recall, wallets, prevHead.Diff, prevHead.LastRetarget, candidate.Timestamp+1)
	if !errors.Is(err, ruleerrors.ErrWrongPrevious) {
		t.Fatalf("err = %v, want ErrWrongPrevious", err)
	}
}

func TestValidateBlockRejectsStaleTimestamp(t *testing.T) {
	v := newValidator()
	prevHead, candidate, recall, wallets := validGenesisSuccessor()
	candidate.Timestamp = prevHead.Timestamp

	err := v.ValidateBlock(candidate, nil, prevHead, recall, wallets, prevHead.Diff, prevHead.LastRetarget, candidate.Timestamp+1)
	if !errors.Is(err, ruleerrors.ErrTimeTooOld) {
		t.Fatalf("err = %v, want ErrTimeTooOld", err)
	}
}

func TestValidateBlockRejectsFutureTimestamp(t *testing.T) {
	v := newValidator()
	prevHead, candidate, recall, wallets := validGenesisSuccessor()
	now := candidate.Timestamp - ClockSkewToleranceMs - 1
	err := v.ValidateBlock(candidate, nil, prevHead, recall, wallets, prevHead.Diff, prevHead.LastRetarget, now)
	if !errors.Is(err, ruleerrors.ErrTimeTooMuchInTheFuture) {
		t.Fatalf("err = %v, want ErrTimeTooMuchInTheFuture", err)
	}
}

func TestValidateBlockRejectsBadMerkleRoot(t *testing.T) {
	v := newValidator()
	prevHead, candidate, recall, wallets := validGenesisSuccessor()
	// candidate.tx_root (and thus its PoW-committed independent hash) was
	// computed over zero txs; presenting a non-empty tx set without
	// updating tx_root must fail the merkle check, not the PoW check.
	mismatchedTxs := []*externalapi.DomainTransaction{{ID: externalapi.DomainHash{0x1}}}

	err := v.ValidateBlock(candidate, mismatchedTxs, prevHead, recall, wallets, prevHead.Diff, prevHead.LastRetarget, candidate.Timestamp+1)
	if !errors.Is(err, ruleerrors.ErrBadMerkleRoot) {
		t.Fatalf("err = %v, want ErrBadMerkleRoot", err)
	}
}

func TestValidateBlockRejectsBadWeaveSize(t *testing.T) {
	v := newValidator()
	prevHead, candidate, recall, wallets := validGenesisSuccessor()
	candidate.WeaveSize = 12345
	candidate.IndepHash = crypto.BlockIndepHash(candidate)

	err := v.ValidateBlock(candidate, nil, prevHead, recall, wallets, prevHead.Diff, prevHead.LastRetarget, candidate.Timestamp+1)
	if !errors.Is(err, ruleerrors.ErrBadWeaveSize) {
		t.Fatalf("err = %v, want ErrBadWeaveSize", err)
	}
}

// TestValidateBlockAcceptsSuccessorWithNonZeroRewardPool guards against
// reward_calculator.Calculate being fed a zero old_pool instead of
// prevHead.RewardPool: with a real fee and a real carried-forward pool,
// only the correct old_pool reproduces the wallet root the candidate
// committed to.
func TestValidateBlockAcceptsSuccessorWithNonZeroRewardPool(t *testing.T) {
	v := newValidator()

	prevHead := &externalapi.DomainBlock{
		Height: 0, Diff: 1, Timestamp: 1000, LastRetarget: 1000,
		TxRoot: crypto.BuildMerkleRoot(nil), WeaveSize: 0,
		RewardPool: externalapi.NewWinstonFromUint64(1000),
	}
	prevHead.IndepHash = crypto.BlockIndepHash(prevHead)

	recall := &externalapi.DomainBlock{WeaveSize: 50, IndepHash: externalapi.DomainHash{0xAB}}

	ownerAddr := externalapi.DomainHash{0x01}
	minerAddr := externalapi.DomainHash{0x02}
	wallets := externalapi.WalletList{
		ownerAddr: {Balance: externalapi.NewWinstonFromUint64(100)},
	}

	tx := &externalapi.DomainTransaction{
		ID: externalapi.DomainHash{0x03}, OwnerAddr: ownerAddr,
		Reward: externalapi.NewWinstonFromUint64(10), DataSize: 100,
	}
	txs := []*externalapi.DomainTransaction{tx}

	candidate := &externalapi.DomainBlock{
		Previous: prevHead.IndepHash, Height: 1, Diff: 1,
		Timestamp: 2000, LastRetarget: 1000,
		TxRoot: crypto.BuildMerkleRoot([]externalapi.DomainHash{tx.ID}),
		WeaveSize: prevHead.WeaveSize + tx.DataSize,
		RewardAddr: &minerAddr,
	}

	walletsAfterTxs, _, ok := walletledger.New().ApplyTxs(wallets, txs)
	if !ok {
		t.Fatalf("setup: ApplyTxs failed")
	}
	// base = old_pool(1000) + fees(10) = 1010; proportion = recall(50)/weave(100);
	// finder = floor(1010*50/100) = 505.
	finder := externalapi.NewWinstonFromUint64(505)
	walletsAfterReward := walletledger.New().ApplyMiningReward(walletsAfterTxs, &minerAddr, finder)
	candidate.WalletRoot = crypto.WalletsRoot(walletsAfterReward)

	candidate.IndepHash = crypto.BlockIndepHash(candidate)
	for nonce := uint64(0); nonce < 1_000_000; nonce++ {
		candidate.Nonce = crypto.NonceFromUint64(nonce)
		if crypto.CheckPoW(candidate.IndepHash, recall.IndepHash, candidate.Nonce, candidate.Diff) {
			break
		}
	}

	err := v.ValidateBlock(candidate, txs, prevHead, recall, wallets, prevHead.Diff, prevHead.LastRetarget, candidate.Timestamp+1)
	if err != nil {
		t.Fatalf("ValidateBlock rejected a successor built against the real carried-forward reward pool: %v", err)
	}
}

func TestExpectedDifficultyUnchangedOffRetargetBoundary(t *testing.T) {
	v := newValidator()
	prevHead := &externalapi.DomainBlock{Diff: 7, Height: 1}
	if got := v.ExpectedDifficulty(prevHead, 1000, 2000); got != 7 {
		t.Fatalf("ExpectedDifficulty off-boundary = %d, want unchanged 7", got)
	}
}

func TestExpectedDifficultyScalesOnRetargetBoundary(t *testing.T) {
	// height+1 == RetargetBlocks triggers a retarget; elapsed == half the
	// target window, so difficulty should double.
	prevHead := &externalapi.DomainBlock{Diff: 10, Height: RetargetBlocks - 1}
	lastRetarget := int64(0)
	candidateTimestamp := int64(RetargetBlocks*TargetBlockTimeMs) / 2
	got := expectedDifficulty(prevHead.Diff, prevHead.Height+1, lastRetarget, candidateTimestamp)
	if got != 20 {
		t.Fatalf("expectedDifficulty = %d, want 20", got)
	}
}

func TestExpectedDifficultyClampedToQuarterAndQuadruple(t *testing.T) {
	// Elapsed far beyond target: new diff would be near zero, clamped up
	// to currentDiff/4.
	tooSlow := expectedDifficulty(100, RetargetBlocks, 0, int64(RetargetBlocks*TargetBlockTimeMs*100))
	if tooSlow != 25 {
		t.Fatalf("tooSlow clamp = %d, want 25", tooSlow)
	}

	// Elapsed far below target: new diff would be huge, clamped down to
	// currentDiff*4.
	tooFast := expectedDifficulty(100, RetargetBlocks, 0, 1)
	if tooFast != 400 {
		t.Fatalf("tooFast clamp = %d, want 400", tooFast)
	}
}
