package ruleerrors

import (
	"github.com/pkg/errors"
)

// These variables identify specific rule violations produced by the block
// validator and tx pool manager: local, never fatal, and never mutate
// state.
var (
	// ErrDuplicateBlock indicates a block with the same hash already exists.
	ErrDuplicateBlock = newRuleError("ErrDuplicateBlock")

	// ErrWrongHeight indicates candidate.height != prev_head.height + 1.
	ErrWrongHeight = newRuleError("ErrWrongHeight")

	// ErrWrongPrevious indicates candidate.previous != prev_head.indep_hash.
	ErrWrongPrevious = newRuleError("ErrWrongPrevious")

	// ErrTimeTooOld indicates the candidate's timestamp doesn't exceed the
	// previous head's.
	ErrTimeTooOld = newRuleError("ErrTimeTooOld")

	// ErrTimeTooMuchInTheFuture indicates the candidate's timestamp is
	// outside the clock-skew tolerance window.
	ErrTimeTooMuchInTheFuture = newRuleError("ErrTimeTooMuchInTheFuture")

	// ErrUnexpectedDifficulty indicates the candidate's diff doesn't match
	// the retarget schedule's expected value.
	ErrUnexpectedDifficulty = newRuleError("ErrUnexpectedDifficulty")

	// ErrBadLastRetarget indicates the candidate's last_retarget field
	// doesn't match the retarget schedule: the previous head's
	// last_retarget carried forward, or the candidate's own timestamp on
	// a retarget-boundary height.
	ErrBadLastRetarget = newRuleError("ErrBadLastRetarget")

	// ErrInvalidPoW indicates the proof-of-work predicate does not hold.
	ErrInvalidPoW = newRuleError("ErrInvalidPoW")

	// ErrBadMerkleRoot indicates the calculated tx_root doesn't match
	// candidate.tx_root.
	ErrBadMerkleRoot = newRuleError("ErrBadMerkleRoot")

	// ErrMissingTx indicates a tx id referenced by the block could not be
	// found in the tx pools or in Store.
	ErrMissingTx = newRuleError("ErrMissingTx")

	// ErrInvalidTxApplication indicates applying txs to wallet_list failed
	// at some step.
	ErrInvalidTxApplication = newRuleError("ErrInvalidTxApplication")

	// ErrBadWalletRoot indicates the wallet state after applying txs and
	// the mining reward doesn't match candidate.wallet_root.
	ErrBadWalletRoot = newRuleError("ErrBadWalletRoot")

	// ErrBadWeaveSize indicates candidate.weave_size doesn't equal
	// prev.weave_size plus the sum of the block's tx data sizes.
	ErrBadWeaveSize = newRuleError("ErrBadWeaveSize")

	// ErrLastTxConflict indicates a tx conflicts with another tx already
	// admitted into the pools. Tagged "last_tx_not_valid" in the
	// diagnostics store.
	ErrLastTxConflict = newRuleError("ErrLastTxConflict")

	// ErrInsufficientBalance indicates a debit would underflow a wallet.
	ErrInsufficientBalance = newRuleError("ErrInsufficientBalance")
)

// RuleError identifies a rule violation. The caller can use errors.Is/As
// to determine if a failure was specifically due to a rule violation, and
// which one.
type RuleError struct {
	message string
	inner error
}

// Error satisfies the error interface.
func (e RuleError) Error() string {
	if e.inner != nil {
		return e.message + ": " + e.inner.Error()
	}
	return e.message
}

// Unwrap satisfies errors.Unwrap.
func (e RuleError) Unwrap() error {
	return e.inner
}

// Is reports whether target is the same named RuleError, ignoring any
// wrapped inner error, so callers can do errors.Is(err, ruleerrors.ErrWrongHeight).
func (e RuleError) Is(target error) bool {
	other, ok := target.(RuleError)
	if !ok {
		return false
	}
	return e.message == other.message
}

func newRuleError(message string) RuleError {
	return RuleError{message: message}
}

// Wrap attaches extra context to a named RuleError while keeping it
// matchable with errors.Is.
func (e RuleError) Wrap(context string) error {
	return errors.WithStack(RuleError{message: e.message, inner: errors.New(context)})
}
