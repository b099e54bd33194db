package queue

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func e18(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1_000_000_000_000_000_000))
}

func TestMaxQueueOrdering(t *testing.T) {
	q := NewMax()
	check.True(t, q.IsEmpty())

	// Prices: bid 1 -> 2.0, bid 2 -> 0.5, bid 3 -> 1.5, bid 4 -> 1.0
	q.Insert(1, e18(4), e18(2))
	q.Insert(2, e18(1), e18(2))
	q.Insert(3, e18(3), e18(2))
	q.Insert(4, e18(2), e18(2))
	check.Equal(t, 4, q.NumBids())

	top, err := q.GetMax()
	assert.NoError(t, err)
	check.Equal(t, uint64(1), top.BidID)
	check.Equal(t, 4, q.NumBids()) // peek does not remove

	var order []uint64
	for !q.IsEmpty() {
		entry, err := q.PopMax()
		assert.NoError(t, err)
		order = append(order, entry.BidID)
	}
	check.Equal(t, []uint64{1, 3, 4, 2}, order)
}

func TestMaxQueueDrainNonIncreasing(t *testing.T) {
	q := NewMax()
	// amountIn varies, minAmountOut fixed, so price tracks amountIn.
	ins := []uint64{7, 2, 9, 4, 11, 1, 6, 8, 3}
	for i, in := range ins {
		q.Insert(uint64(i+1), e18(in), e18(1))
	}

	prev := new(uint256.Int).SetAllOne()
	for !q.IsEmpty() {
		entry, err := q.PopMax()
		assert.NoError(t, err)
		// price = amountIn here, so compare amountIn directly
		check.True(t, !entry.AmountIn.Gt(prev))
		prev = entry.AmountIn
	}
}

func TestMaxQueueEqualPriceTieBreak(t *testing.T) {
	q := NewMax()
	// Identical 1.0 prices in scrambled insertion order; drain order must
	// follow bid ids descending, not heap mechanics.
	q.Insert(1, e18(2), e18(2))
	q.Insert(3, e18(7), e18(7))
	q.Insert(2, e18(3), e18(3))

	var order []uint64
	for !q.IsEmpty() {
		entry, err := q.PopMax()
		assert.NoError(t, err)
		order = append(order, entry.BidID)
	}
	check.Equal(t, []uint64{3, 2, 1}, order)
}

func TestMinQueueEqualPriceTieBreak(t *testing.T) {
	q := NewMin()
	q.Insert(1, e18(2), e18(2))
	q.Insert(3, e18(7), e18(7))
	q.Insert(2, e18(3), e18(3))

	var order []uint64
	for !q.IsEmpty() {
		entry, err := q.PopMin()
		assert.NoError(t, err)
		order = append(order, entry.BidID)
	}
	check.Equal(t, []uint64{1, 2, 3}, order)
}

func TestMaxQueueSentinel(t *testing.T) {
	q := NewMax()
	sentinel, err := q.GetBid(0)
	assert.NoError(t, err)
	check.Equal(t, uint64(0), sentinel.BidID)
	check.True(t, sentinel.AmountIn.Eq(new(uint256.Int).SetAllOne()))
	check.True(t, sentinel.MinAmountOut.IsZero())

	// The sentinel survives inserts and never surfaces as the max.
	q.Insert(1, e18(5), e18(1))
	top, err := q.GetMax()
	assert.NoError(t, err)
	check.Equal(t, uint64(1), top.BidID)
	sentinel, err = q.GetBid(0)
	assert.NoError(t, err)
	check.Equal(t, uint64(0), sentinel.BidID)
}

func TestMaxQueueEmpty(t *testing.T) {
	q := NewMax()

	_, err := q.GetMax()
	check.Error(t, err)
	check.True(t, err == ErrEmptyQueue)

	_, err = q.PopMax()
	check.Error(t, err)
	check.True(t, err == ErrEmptyQueue)

	_, err = q.GetBid(1)
	check.True(t, err == ErrIndexOutOfRange)
	_, err = q.GetBid(-1)
	check.True(t, err == ErrIndexOutOfRange)
}

func TestMaxQueueInsertDoesNotAliasAmounts(t *testing.T) {
	q := NewMax()
	in := e18(5)
	out := e18(1)
	q.Insert(1, in, out)
	in.Clear()
	out.Clear()

	top, err := q.GetMax()
	assert.NoError(t, err)
	check.True(t, top.AmountIn.Eq(e18(5)))
	check.True(t, top.MinAmountOut.Eq(e18(1)))
}

func TestMinQueueOrdering(t *testing.T) {
	q := NewMin()
	check.True(t, q.IsEmpty())

	// Prices: bid 1 -> 2.0, bid 2 -> 0.5, bid 3 -> 1.5
	q.Insert(1, e18(4), e18(2))
	q.Insert(2, e18(1), e18(2))
	q.Insert(3, e18(3), e18(2))

	var order []uint64
	for !q.IsEmpty() {
		entry, err := q.PopMin()
		assert.NoError(t, err)
		order = append(order, entry.BidID)
	}
	check.Equal(t, []uint64{2, 3, 1}, order)
}

func TestMinQueueSentinel(t *testing.T) {
	q := NewMin()
	sentinel, err := q.GetBid(0)
	assert.NoError(t, err)
	check.True(t, sentinel.AmountIn.IsZero())
	check.True(t, sentinel.MinAmountOut.Eq(new(uint256.Int).SetAllOne()))

	_, err = q.GetMin()
	check.True(t, err == ErrEmptyQueue)
}
