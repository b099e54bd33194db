package auction

import "errors"

// The module-level error taxonomy. Every failure is unrecoverable at this
// layer: the call reverts as a whole and no partial state persists. Callers
// match with errors.Is.
var (
	// ErrInvalidLotID marks a lot id unknown to the module.
	ErrInvalidLotID = errors.New("auction: unknown lot id")

	// ErrMarketNotActive marks an operation that requires a live bidding
	// window on a lot that is not live.
	ErrMarketNotActive = errors.New("auction: market not active")

	// ErrMarketActive marks an operation that requires the lot not to have
	// started or concluded yet.
	ErrMarketActive = errors.New("auction: market active")

	// ErrWrongState marks an out-of-order lifecycle call: decrypting before
	// conclusion, settling before decryption, settling twice.
	ErrWrongState = errors.New("auction: wrong state")

	// ErrInvalidDecrypt marks a decrypt claim that does not reproduce the
	// stored ciphertext, an out-of-order submission, or an over-long batch.
	ErrInvalidDecrypt = errors.New("auction: invalid decrypt")

	// ErrInvalidParams marks malformed creation or call parameters.
	ErrInvalidParams = errors.New("auction: invalid params")

	// ErrNotPermitted marks a caller acting on a bid they do not own.
	ErrNotPermitted = errors.New("auction: not permitted")
)
