// Package queue provides the two price-ordered priority queues used to rank
// decrypted bids: a max-queue (settlement pops highest price first) and a
// symmetric min-queue. Both are array-backed binary heaps with a reserved
// sentinel at index 0, so usable entries start at position 1 and sift-up
// terminates against the sentinel without a bounds check.
//
// Prices are the ratio AmountIn/MinAmountOut. The ratio is never divided
// out; all ordering decisions cross-multiply the two sides so exact integer
// ordering is preserved. Amounts are capped at 96 bits by the caller, which
// keeps every cross product within 192 bits.
package queue

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	// ErrEmptyQueue is returned when peeking or popping an empty queue.
	ErrEmptyQueue = errors.New("queue: empty")

	// ErrIndexOutOfRange is returned by direct entry access past the end of
	// the backing array.
	ErrIndexOutOfRange = errors.New("queue: index out of range")
)

// Entry is one bid held in a priority queue.
type Entry struct {
	BidID        uint64
	AmountIn     *uint256.Int
	MinAmountOut *uint256.Int
}

// higherPrice reports whether a ranks strictly above b, comparing
// a.AmountIn*b.MinAmountOut against b.AmountIn*a.MinAmountOut. Equal prices
// break on bid id, higher id first, so drain order among equal-priced bids
// is deterministic rather than left to sift mechanics.
func higherPrice(a, b Entry) bool {
	l := new(uint256.Int).Mul(a.AmountIn, b.MinAmountOut)
	r := new(uint256.Int).Mul(b.AmountIn, a.MinAmountOut)
	if l.Eq(r) {
		return a.BidID > b.BidID
	}
	return l.Gt(r)
}

// lowerPrice reports whether a ranks strictly below b, with the inverse
// tie-break: equal prices rank the lower bid id first.
func lowerPrice(a, b Entry) bool {
	l := new(uint256.Int).Mul(a.AmountIn, b.MinAmountOut)
	r := new(uint256.Int).Mul(b.AmountIn, a.MinAmountOut)
	if l.Eq(r) {
		return a.BidID < b.BidID
	}
	return l.Lt(r)
}
