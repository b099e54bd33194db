package queue

import "github.com/holiman/uint256"

// MaxQueue is a binary max-heap of bids keyed by price. GetMax and PopMax
// expose the highest-priced bid; equal-priced bids drain in descending bid
// id order.
type MaxQueue struct {
	// entries[0] is a sentinel with unbeatable price. Live entries occupy
	// positions 1..len-1; parent of i is i/2, children are 2i and 2i+1.
	entries []Entry
}

// NewMax returns an empty max-queue.
func NewMax() *MaxQueue {
	sentinel := Entry{
		BidID:        0,
		AmountIn:     new(uint256.Int).SetAllOne(),
		MinAmountOut: uint256.NewInt(0),
	}
	return &MaxQueue{entries: []Entry{sentinel}}
}

// Insert appends a bid and sifts it up to its price-ordered position.
// Inserting into an empty queue places the entry at the root with no sift.
func (q *MaxQueue) Insert(bidID uint64, amountIn, minAmountOut *uint256.Int) {
	q.entries = append(q.entries, Entry{
		BidID:        bidID,
		AmountIn:     amountIn.Clone(),
		MinAmountOut: minAmountOut.Clone(),
	})
	i := len(q.entries) - 1
	// The sentinel's price is unbeatable, so this stops at position 1.
	for higherPrice(q.entries[i], q.entries[i/2]) {
		q.entries[i], q.entries[i/2] = q.entries[i/2], q.entries[i]
		i /= 2
	}
}

// GetMax returns the highest-priced bid without removing it.
func (q *MaxQueue) GetMax() (Entry, error) {
	if q.IsEmpty() {
		return Entry{}, ErrEmptyQueue
	}
	return q.entries[1], nil
}

// PopMax removes and returns the highest-priced bid. The last entry moves to
// the root and sifts down.
func (q *MaxQueue) PopMax() (Entry, error) {
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

func (q *MaxQueue) siftDown(i int) {
	n := len(q.entries)
	for {
		l, r := 2*i, 2*i+1
		largest := i
		if l < n && higherPrice(q.entries[l], q.entries[largest]) {
			largest = l
		}
		if r < n && higherPrice(q.entries[r], q.entries[largest]) {
			largest = r
		}
		if largest == i {
			return
		}
		q.entries[i], q.entries[largest] = q.entries[largest], q.entries[i]
		i = largest
	}
}

// GetBid returns the entry at a position in the backing array. Position 0 is
// the sentinel; live bids start at 1.
func (q *MaxQueue) GetBid(index int) (Entry, error) {
	if index < 0 || index >= len(q.entries) {
		return Entry{}, ErrIndexOutOfRange
	}
	return q.entries[index], nil
}

// NumBids returns the count of live entries.
func (q *MaxQueue) NumBids() int { return len(q.entries) - 1 }

// IsEmpty reports whether the queue holds no live entries.
func (q *MaxQueue) IsEmpty() bool { return q.NumBids() == 0 }
