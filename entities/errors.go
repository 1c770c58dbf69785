package entities

import "errors"

var ErrStoreEntityNotFound = errors.New("store resource not found")

// ErrMalformedRecord marks an input row that could not be turned into a transaction.
var ErrMalformedRecord = errors.New("malformed record")

// Rejections. A transaction failing with one of these is skipped and leaves
// every store untouched.
var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrAccountLocked        = errors.New("account locked")
	ErrUnknownAccount       = errors.New("unknown account")
	ErrUnknownTransaction   = errors.New("unknown transaction")
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrAlreadyDisputed      = errors.New("transaction already disputed")
	ErrNotDisputed          = errors.New("transaction not disputed")
	ErrTransactionSettled   = errors.New("transaction already charged back")
	ErrClientMismatch       = errors.New("client does not own transaction")
	ErrInvariantViolation   = errors.New("balance invariant violation")
)

var rejections = []error{
	ErrMalformedRecord,
	ErrInvalidAmount,
	ErrInsufficientFunds,
	ErrAccountLocked,
	ErrUnknownAccount,
	ErrUnknownTransaction,
	ErrDuplicateTransaction,
	ErrAlreadyDisputed,
	ErrNotDisputed,
	ErrTransactionSettled,
	ErrClientMismatch,
	ErrInvariantViolation,
}

// IsRejection reports whether err only rejects a single record. Any other
// error is fatal for the run.
func IsRejection(err error) bool {
	return RejectionReason(err) != nil
}

// RejectionReason returns the sentinel err wraps, or nil if err is not a rejection.
func RejectionReason(err error) error {
	if err == nil {
		return nil
	}
	for _, r := range rejections {
		if errors.Is(err, r) {
			return r
		}
	}
	return nil
}
