package queue

import "github.com/holiman/uint256"

// MinQueue is the ascending counterpart of MaxQueue: GetMin and PopMin
// expose the lowest-priced bid; equal-priced bids drain in ascending bid id
// order.
type MinQueue struct {
	// entries[0] is a sentinel with price zero; live entries start at 1.
	entries []Entry
}

// NewMin returns an empty min-queue.
func NewMin() *MinQueue {
	sentinel := Entry{
		BidID:        0,
		AmountIn:     uint256.NewInt(0),
		MinAmountOut: new(uint256.Int).SetAllOne(),
	}
	return &MinQueue{entries: []Entry{sentinel}}
}

// Insert appends a bid and sifts it up to its price-ordered position.
func (q *MinQueue) Insert(bidID uint64, amountIn, minAmountOut *uint256.Int) {
	q.entries = append(q.entries, Entry{
		BidID:        bidID,
		AmountIn:     amountIn.Clone(),
		MinAmountOut: minAmountOut.Clone(),
	})
	i := len(q.entries) - 1
	for lowerPrice(q.entries[i], q.entries[i/2]) {
		q.entries[i], q.entries[i/2] = q.entries[i/2], q.entries[i]
		i /= 2
	}
}

// GetMin returns the lowest-priced bid without removing it.
func (q *MinQueue) GetMin() (Entry, error) {
	if q.IsEmpty() {
		return Entry{}, ErrEmptyQueue
	}
	return q.entries[1], nil
}

// PopMin removes and returns the lowest-priced bid.
func (q *MinQueue) PopMin() (Entry, error) {
	if q.IsEmpty() {
		return Entry{}, ErrEmptyQueue
	}
	root := q.entries[1]
	n := len(q.entries) - 1
	q.entries[1] = q.entries[n]
	q.entries = q.entries[:n]
	q.siftDown(1)
	return root, nil
}

func (q *MinQueue) siftDown(i int) {
	n := len(q.entries)
	for {
		l, r := 2*i, 2*i+1
		smallest := i
		if l < n && lowerPrice(q.entries[l], q.entries[smallest]) {
			smallest = l
		}
		if r < n && lowerPrice(q.entries[r], q.entries[smallest]) {
			smallest = r
		}
		if smallest == i {
			return
		}
		q.entries[i], q.entries[smallest] = q.entries[smallest], q.entries[i]
		i = smallest
	}
}

// GetBid returns the entry at a position in the backing array. Position 0 is
// the sentinel; live bids start at 1.
func (q *MinQueue) GetBid(index int) (Entry, error) {
	if index < 0 || index >= len(q.entries) {
		return Entry{}, ErrIndexOutOfRange
	}
	return q.entries[index], nil
}

// NumBids returns the count of live entries.
func (q *MinQueue) NumBids() int { return len(q.entries) - 1 }

// IsEmpty reports whether the queue holds no live entries.
func (q *MinQueue) IsEmpty() bool { return q.NumBids() == 0 }
