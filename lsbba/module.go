// Package lsbba implements the Local Sealed-Bid Batch Auction module:
// encrypted bids collected during an open window, publicly verifiable
// decryption after conclusion, and settlement at a uniform marginal
// clearing price.
//
// Every exported operation executes as one atomic unit: it either commits
// completely or returns an error leaving the lot untouched. Callers are
// serialized; the router holding the Module handle is the sole trusted
// mutator, and per-bid ownership (cancel, claim) is checked against the
// recorded bidder.
package lsbba

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"

	"github.com/Axis-Fi/axis-core-sub009/auction"
	"github.com/Axis-Fi/axis-core-sub009/queue"
)

// lotState bundles a lot with its sealed-bid data, bid ledger and sorted
// queue. bids is append-only and 1-indexed: ids are positions in the slice,
// with index 0 unused.
type lotState struct {
	lot   auction.Lot
	data  AuctionData
	bids  []EncryptedBid
	queue *queue.MaxQueue
}

// Module is the sealed-bid batch auction engine. All lot and bid state is
// owned here and mutated only through the guarded lifecycle methods.
type Module struct {
	mu          sync.Mutex
	lots        map[uint64]*lotState
	now         auction.Clock
	minDuration time.Duration
}

// Option configures a Module.
type Option func(*Module)

// WithClock overrides the time source, used by tests to drive the bidding
// window deterministically.
func WithClock(c auction.Clock) Option {
	return func(m *Module) { m.now = c }
}

// WithMinAuctionDuration overrides the minimum lot duration.
func WithMinAuctionDuration(d time.Duration) Option {
	return func(m *Module) { m.minDuration = d }
}

// New creates a sealed-bid batch auction module. The default minimum lot
// duration is 24 hours.
func New(opts ...Option) *Module {
	m := &Module{
		lots:        make(map[uint64]*lotState),
		now:         time.Now,
		minDuration: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Kind identifies this module as the sealed-bid batch variant.
func (m *Module) Kind() auction.Kind { return auction.KindSealedBatch }

// MinAuctionDuration returns the shortest bidding window a lot may declare.
func (m *Module) MinAuctionDuration() time.Duration { return m.minDuration }

// Auction creates a lot. params.ImplParams must be a CBOR-encoded Params
// blob. Capacity is base-denominated; quote-denominated capacity is not
// supported by this module.
func (m *Module) Auction(lotID uint64, params auction.AuctionParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.lots[lotID]; exists {
		return fmt.Errorf("%w: lot %d already exists", auction.ErrInvalidParams, lotID)
	}
	if params.CapacityInQuote {
		return fmt.Errorf("%w: quote-denominated capacity is not supported", auction.ErrInvalidParams)
	}
	if err := auction.ValidateAmount(params.Capacity); err != nil {
		return fmt.Errorf("capacity: %w", err)
	}
	if params.Duration < int64(m.minDuration/time.Second) {
		return fmt.Errorf("%w: duration %ds below minimum %s", auction.ErrInvalidParams, params.Duration, m.minDuration)
	}

	var p Params
	if err := cbor.Unmarshal(params.ImplParams, &p); err != nil {
		return fmt.Errorf("%w: implParams: %v", auction.ErrInvalidParams, err)
	}
	if p.MinFillPercent > PercentScale {
		return fmt.Errorf("%w: minFillPercent %d above %d", auction.ErrInvalidParams, p.MinFillPercent, PercentScale)
	}
	if p.MinBidPercent < minBidPercentFloor || p.MinBidPercent > minBidPercentCeil {
		return fmt.Errorf("%w: minBidPercent %d outside [%d,%d]", auction.ErrInvalidParams, p.MinBidPercent, minBidPercentFloor, minBidPercentCeil)
	}
	if len(p.PublicKeyModulus) != ModulusSize {
		return fmt.Errorf("%w: public key modulus must be %d bytes, got %d", auction.ErrInvalidParams, ModulusSize, len(p.PublicKeyModulus))
	}
	minPrice := new(uint256.Int).SetBytes(p.MinimumPrice)
	if minPrice.IsZero() {
		return fmt.Errorf("%w: zero minimum price", auction.ErrInvalidParams)
	}

	now := m.now().Unix()
	start := params.Start
	if start == 0 {
		start = now
	}
	if start < now {
		return fmt.Errorf("%w: start %d in the past", auction.ErrInvalidParams, start)
	}

	capacity := params.Capacity.Clone()

	// minFilled is base-denominated; minBidSize converts the base fraction
	// to quote at the minimum price, since bid amounts are quote tokens.
	minFilled := new(uint256.Int).Mul(capacity, uint256.NewInt(p.MinFillPercent))
	minFilled.Div(minFilled, uint256.NewInt(PercentScale))
	minBidSize := new(uint256.Int).Mul(capacity, uint256.NewInt(p.MinBidPercent))
	minBidSize.Div(minBidSize, uint256.NewInt(PercentScale))
	minBidSize = auction.QuoteIn(minBidSize, minPrice)

	modulus := make([]byte, len(p.PublicKeyModulus))
	copy(modulus, p.PublicKeyModulus)

	m.lots[lotID] = &lotState{
		lot: auction.Lot{
			Start:      start,
			Conclusion: start + params.Duration,
			Capacity:   capacity,
			Sold:       uint256.NewInt(0),
			Purchased:  uint256.NewInt(0),
		},
		data: AuctionData{
			Status:           StatusCreated,
			MinimumPrice:     minPrice,
			MinFilled:        minFilled,
			MinBidSize:       minBidSize,
			PublicKeyModulus: modulus,
		},
		bids:  make([]EncryptedBid, 1),
		queue: queue.NewMax(),
	}

	log.Printf("INFO: created lot %d: capacity=%s minPrice=%s window=[%d,%d)",
		lotID, auction.FormatAmount(capacity), auction.FormatPrice(minPrice), start, start+params.Duration)
	return nil
}

// Bid records an encrypted bid and returns its id. Ids are assigned 1,2,3…
// in submission order. Only liveness is checked at submission; size and
// capacity constraints are enforced at settlement.
func (m *Module) Bid(lotID uint64, bidder, recipient, referrer string, amount *uint256.Int, encryptedAmountOut []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.lots[lotID]
	if !ok {
		return 0, fmt.Errorf("%w: %d", auction.ErrInvalidLotID, lotID)
	}
	if !m.isLiveLocked(st) {
		return 0, fmt.Errorf("%w: lot %d", auction.ErrMarketNotActive, lotID)
	}
	if bidder == "" {
		return 0, fmt.Errorf("%w: empty bidder", auction.ErrInvalidParams)
	}
	if err := auction.ValidateAmount(amount); err != nil {
		return 0, err
	}
	if len(encryptedAmountOut) != len(st.data.PublicKeyModulus) {
		return 0, fmt.Errorf("%w: ciphertext must be %d bytes, got %d", auction.ErrInvalidParams, len(st.data.PublicKeyModulus), len(encryptedAmountOut))
	}

	ct := make([]byte, len(encryptedAmountOut))
	copy(ct, encryptedAmountOut)
	st.bids = append(st.bids, EncryptedBid{
		Bidder:             bidder,
		Recipient:          recipient,
		Referrer:           referrer,
		Amount:             amount.Clone(),
		EncryptedAmountOut: ct,
		Status:             BidSubmitted,
	})
	bidID := uint64(len(st.bids) - 1)
	log.Printf("INFO: lot %d: bid %d submitted by %s, amount=%s", lotID, bidID, bidder, auction.FormatAmount(amount))
	return bidID, nil
}

// CancelBid withdraws a not-yet-decrypted bid. Only the original bidder may
// cancel, and only while the bidding window is still open. A cancelled bid
// is auto-skipped during decryption and never enters the sorted queue.
func (m *Module) CancelBid(lotID, bidID uint64, caller string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.lots[lotID]
	if !ok {
		return fmt.Errorf("%w: %d", auction.ErrInvalidLotID, lotID)
	}
	bid, err := st.bid(bidID)
	if err != nil {
		return err
	}
	if caller != bid.Bidder {
		return fmt.Errorf("%w: caller %q is not bidder of bid %d", auction.ErrNotPermitted, caller, bidID)
	}
	if st.data.Status != StatusCreated {
		return fmt.Errorf("%w: lot %d is %s", auction.ErrWrongState, lotID, st.data.Status)
	}
	if m.now().Unix() >= st.lot.Conclusion {
		return fmt.Errorf("%w: lot %d has concluded", auction.ErrMarketNotActive, lotID)
	}
	if bid.Status != BidSubmitted {
		return fmt.Errorf("%w: bid %d is %s", auction.ErrWrongState, bidID, bid.Status)
	}
	bid.Status = BidCancelled
	log.Printf("INFO: lot %d: bid %d cancelled", lotID, bidID)
	return nil
}

// CancelAuction voids a lot before it starts: conclusion snaps to now,
// capacity drops to zero and the lot jumps straight to Settled. A lot that
// has started can no longer be cancelled.
func (m *Module) CancelAuction(lotID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.lots[lotID]
	if !ok {
		return fmt.Errorf("%w: %d", auction.ErrInvalidLotID, lotID)
	}
	if st.data.Status != StatusCreated {
		return fmt.Errorf("%w: lot %d is %s", auction.ErrWrongState, lotID, st.data.Status)
	}
	now := m.now().Unix()
	if now >= st.lot.Start {
		return fmt.Errorf("%w: lot %d already started", auction.ErrMarketActive, lotID)
	}
	st.lot.Conclusion = now
	st.lot.Capacity.Clear()
	st.data.Status = StatusSettled
	log.Printf("INFO: lot %d cancelled before start", lotID)
	return nil
}

// ClaimBid marks a decrypted bid as claimed once the router has paid out or
// refunded it after settlement. Only the bidder may claim, and only once.
func (m *Module) ClaimBid(lotID, bidID uint64, caller string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.lots[lotID]
	if !ok {
		return fmt.Errorf("%w: %d", auction.ErrInvalidLotID, lotID)
	}
	bid, err := st.bid(bidID)
	if err != nil {
		return err
	}
	if caller != bid.Bidder {
		return fmt.Errorf("%w: caller %q is not bidder of bid %d", auction.ErrNotPermitted, caller, bidID)
	}
	if st.data.Status != StatusSettled {
		return fmt.Errorf("%w: lot %d is %s", auction.ErrWrongState, lotID, st.data.Status)
	}
	if bid.Status != BidDecrypted {
		return fmt.Errorf("%w: bid %d is %s", auction.ErrWrongState, bidID, bid.Status)
	}
	bid.Status = BidClaimed
	return nil
}

// IsLive reports whether the lot exists and is accepting bids.
func (m *Module) IsLive(lotID uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.lots[lotID]
	if !ok {
		return false
	}
	return m.isLiveLocked(st)
}

func (m *Module) isLiveLocked(st *lotState) bool {
	now := m.now().Unix()
	return st.data.Status == StatusCreated &&
		!st.lot.Capacity.IsZero() &&
		now >= st.lot.Start &&
		now < st.lot.Conclusion
}

// GetLot returns a copy of the lot's routing state.
func (m *Module) GetLot(lotID uint64) (auction.Lot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.lots[lotID]
	if !ok {
		return auction.Lot{}, fmt.Errorf("%w: %d", auction.ErrInvalidLotID, lotID)
	}
	lot := st.lot
	lot.Capacity = st.lot.Capacity.Clone()
	lot.Sold = st.lot.Sold.Clone()
	lot.Purchased = st.lot.Purchased.Clone()
	return lot, nil
}

// GetLotData returns a copy of the lot's sealed-bid data.
func (m *Module) GetLotData(lotID uint64) (AuctionData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.lots[lotID]
	if !ok {
		return AuctionData{}, fmt.Errorf("%w: %d", auction.ErrInvalidLotID, lotID)
	}
	data := st.data
	data.MinimumPrice = st.data.MinimumPrice.Clone()
	data.MinFilled = st.data.MinFilled.Clone()
	data.MinBidSize = st.data.MinBidSize.Clone()
	data.PublicKeyModulus = append([]byte(nil), st.data.PublicKeyModulus...)
	return data, nil
}

// GetBidData returns a copy of one stored bid.
func (m *Module) GetBidData(lotID, bidID uint64) (EncryptedBid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.lots[lotID]
	if !ok {
		return EncryptedBid{}, fmt.Errorf("%w: %d", auction.ErrInvalidLotID, lotID)
	}
	bid, err := st.bid(bidID)
	if err != nil {
		return EncryptedBid{}, err
	}
	out := *bid
	out.Amount = bid.Amount.Clone()
	out.EncryptedAmountOut = append([]byte(nil), bid.EncryptedAmountOut...)
	if bid.MinAmountOut != nil {
		out.MinAmountOut = bid.MinAmountOut.Clone()
	}
	return out, nil
}

// GetSortedBidData returns the queue entry at a position in the sorted bid
// queue's backing array. Position 0 is the heap sentinel.
func (m *Module) GetSortedBidData(lotID uint64, index int) (queue.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.lots[lotID]
	if !ok {
		return queue.Entry{}, fmt.Errorf("%w: %d", auction.ErrInvalidLotID, lotID)
	}
	return st.queue.GetBid(index)
}

// GetSortedBidCount returns the number of decrypted bids in the sorted
// queue.
func (m *Module) GetSortedBidCount(lotID uint64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.lots[lotID]
	if !ok {
		return 0, fmt.Errorf("%w: %d", auction.ErrInvalidLotID, lotID)
	}
	return st.queue.NumBids(), nil
}

// bid resolves a bid id to its ledger slot.
func (st *lotState) bid(bidID uint64) (*EncryptedBid, error) {
	if bidID == 0 || bidID >= uint64(len(st.bids)) {
		return nil, fmt.Errorf("%w: unknown bid %d", auction.ErrInvalidParams, bidID)
	}
	return &st.bids[bidID], nil
}

// submitted returns the number of bids ever submitted to the lot.
func (st *lotState) submitted() uint64 {
	return uint64(len(st.bids) - 1)
}
