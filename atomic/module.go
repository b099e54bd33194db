// Package atomic implements the fixed-price purchase variant: every buy
// settles immediately at the price listed when the lot was created.
package atomic

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"

	"github.com/Axis-Fi/axis-core-sub009/auction"
)

// Params is the implParams payload for a fixed-price lot, CBOR-encoded on
// the wire.
type Params struct {
	// Price is the normalized fixed price, big-endian.
	Price []byte `cbor:"price"`
}

type lotState struct {
	lot   auction.Lot
	price *uint256.Int
}

// Module sells lots at a fixed listed price.
type Module struct {
	mu          sync.Mutex
	lots        map[uint64]*lotState
	now         auction.Clock
	minDuration time.Duration
}

// Option configures a Module.
type Option func(*Module)

// WithClock overrides the time source, for tests.
func WithClock(now auction.Clock) Option {
	return func(m *Module) { m.now = now }
}

// WithMinAuctionDuration overrides the minimum lot duration.
func WithMinAuctionDuration(d time.Duration) Option {
	return func(m *Module) { m.minDuration = d }
}

// New returns a fixed-price module with a 24h minimum duration.
func New(opts ...Option) *Module {
	m := &Module{
		lots:        make(map[uint64]*lotState),
		now:         time.Now,
		minDuration: 24 * time.Hour,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Module) Kind() auction.Kind { return auction.KindAtomic }

func (m *Module) MinAuctionDuration() time.Duration { return m.minDuration }

// Auction creates a fixed-price lot. The listed price must be positive.
func (m *Module) Auction(lotID uint64, params auction.AuctionParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.lots[lotID]; dup {
		return fmt.Errorf("%w: lot %d already exists", auction.ErrInvalidLotID, lotID)
	}
	if err := auction.ValidateAmount(params.Capacity); err != nil {
		return fmt.Errorf("capacity: %w", err)
	}
	if time.Duration(params.Duration)*time.Second < m.minDuration {
		return fmt.Errorf("%w: duration %ds below minimum %s", auction.ErrInvalidParams, params.Duration, m.minDuration)
	}

	var p Params
	if err := cbor.Unmarshal(params.ImplParams, &p); err != nil {
		return fmt.Errorf("%w: decode impl params: %v", auction.ErrInvalidParams, err)
	}
	price := new(uint256.Int).SetBytes(p.Price)
	if price.IsZero() {
		return fmt.Errorf("%w: zero price", auction.ErrInvalidParams)
	}

	start := params.Start
	now := m.now().Unix()
	if start == 0 {
		start = now
	}
	if start < now {
		return fmt.Errorf("%w: start %d is in the past", auction.ErrInvalidParams, start)
	}

	m.lots[lotID] = &lotState{
		lot: auction.Lot{
			Start:           start,
			Conclusion:      start + params.Duration,
			CapacityInQuote: params.CapacityInQuote,
			Capacity:        params.Capacity.Clone(),
			Sold:            uint256.NewInt(0),
			Purchased:       uint256.NewInt(0),
		},
		price: price,
	}
	log.Printf("INFO: created fixed-price lot %d: capacity=%s price=%s",
		lotID, auction.FormatAmount(params.Capacity), auction.FormatPrice(price))
	return nil
}

// Purchase buys from a live lot at the listed price. The payout must meet
// the buyer's slippage floor and fit the remaining capacity.
func (m *Module) Purchase(lotID uint64, buyer string, amount, minAmountOut *uint256.Int) (*uint256.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.lots[lotID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", auction.ErrInvalidLotID, lotID)
	}
	if !m.isLiveLocked(st) {
		return nil, fmt.Errorf("%w: lot %d", auction.ErrMarketNotActive, lotID)
	}
	if err := auction.ValidateAmount(amount); err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}

	payout := auction.BaseOut(amount, st.price)
	if minAmountOut != nil && payout.Lt(minAmountOut) {
		return nil, fmt.Errorf("%w: payout %s below minimum %s", auction.ErrInvalidParams,
			auction.FormatAmount(payout), auction.FormatAmount(minAmountOut))
	}

	// Capacity is tracked in whichever token the seller chose at creation.
	spent := payout
	if st.lot.CapacityInQuote {
		spent = amount
	}
	if st.lot.Capacity.Lt(spent) {
		return nil, fmt.Errorf("%w: insufficient capacity in lot %d", auction.ErrInvalidParams, lotID)
	}

	st.lot.Capacity.Sub(st.lot.Capacity, spent)
	st.lot.Sold.Add(st.lot.Sold, payout)
	st.lot.Purchased.Add(st.lot.Purchased, amount)
	log.Printf("INFO: lot %d purchase by %s: in=%s out=%s remaining=%s",
		lotID, buyer, auction.FormatAmount(amount), auction.FormatAmount(payout),
		auction.FormatAmount(st.lot.Capacity))
	return payout, nil
}

// CancelAuction zeroes the lot's capacity and concludes it immediately.
func (m *Module) CancelAuction(lotID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.lots[lotID]
	if !ok {
		return fmt.Errorf("%w: %d", auction.ErrInvalidLotID, lotID)
	}
	if st.lot.Capacity.IsZero() {
		return fmt.Errorf("%w: lot %d already closed", auction.ErrWrongState, lotID)
	}
	st.lot.Conclusion = m.now().Unix()
	st.lot.Capacity.Clear()
	log.Printf("INFO: cancelled fixed-price lot %d", lotID)
	return nil
}

// GetLot returns a copy of the lot record.
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

// Price returns the lot's listed price.
func (m *Module) Price(lotID uint64) (*uint256.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.lots[lotID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", auction.ErrInvalidLotID, lotID)
	}
	return st.price.Clone(), nil
}

// IsLive reports whether the lot currently accepts purchases.
func (m *Module) IsLive(lotID uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.lots[lotID]
	return ok && m.isLiveLocked(st)
}

func (m *Module) isLiveLocked(st *lotState) bool {
	now := m.now().Unix()
	return !st.lot.Capacity.IsZero() && st.lot.Start <= now && now < st.lot.Conclusion
}
