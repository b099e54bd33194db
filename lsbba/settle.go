package lsbba

import (
	"fmt"
	"log"

	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"

	"github.com/Axis-Fi/axis-core-sub009/auction"
)

// Settle computes the uniform marginal clearing price and winner set for a
// fully decrypted lot, then closes it. Legal only in the Decrypted state; a
// second call fails with ErrWrongState. Capacity is forced to zero whether
// or not the auction fills, so the lot can never accept another bid.
//
// Bids are drained from the sorted queue highest price first, accumulating
// committed quote. The marginal price is the price of the bid at which the
// accumulated quote, converted to base at that bid's own price, meets the
// lot's capacity - or the last winner's price when demand never exhausts
// capacity. On oversubscription the marginal bid stays in the winner list
// at its recorded amount; the router performs the actual partial-fill
// accounting. Every winner's amount out is re-derived at the marginal
// price, truncating down.
//
// The settlement voids (empty winner list) when the filled base amount
// falls short of the lot's minimum fill or the marginal price falls below
// the lot's minimum price. Bids smaller than the per-bid size floor are
// skipped and never become winners.
func (m *Module) Settle(lotID uint64) ([]auction.WinningBid, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.lots[lotID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", auction.ErrInvalidLotID, lotID)
	}
	if st.data.Status != StatusDecrypted {
		return nil, nil, fmt.Errorf("%w: lot %d is %s", auction.ErrWrongState, lotID, st.data.Status)
	}

	capacity := st.lot.Capacity.Clone()
	totalIn := uint256.NewInt(0)
	expended := uint256.NewInt(0)
	var marginalPrice *uint256.Int
	var winners []auction.WinningBid

	for !st.queue.IsEmpty() {
		entry, _ := st.queue.PopMax()
		if entry.AmountIn.Lt(st.data.MinBidSize) {
			// Below the per-bid floor: never eligible, even if priced well.
			continue
		}
		price := auction.Price(entry.AmountIn, entry.MinAmountOut)
		totalIn.Add(totalIn, entry.AmountIn)
		marginalPrice = price

		bid := &st.bids[entry.BidID]
		winners = append(winners, auction.WinningBid{
			BidID:     entry.BidID,
			Bidder:    bid.Bidder,
			Recipient: bid.Recipient,
			Referrer:  bid.Referrer,
			Amount:    entry.AmountIn.Clone(),
		})

		// Base expended if this bid's price were the clearing price. Each
		// successive price is lower, so this only grows.
		if !price.IsZero() {
			expended = auction.BaseOut(totalIn, price)
		}
		if !expended.Lt(capacity) {
			break
		}
	}

	// The lot is consumed regardless of the fill outcome.
	st.lot.Capacity.Clear()
	st.data.Status = StatusSettled

	filled := expended.Clone()
	if filled.Gt(capacity) {
		filled.Set(capacity)
	}

	if marginalPrice == nil || filled.Lt(st.data.MinFilled) || marginalPrice.Lt(st.data.MinimumPrice) {
		log.Printf("INFO: lot %d settled void: filled=%s minFilled=%s marginal=%s minPrice=%s",
			lotID, auction.FormatAmount(filled), auction.FormatAmount(st.data.MinFilled),
			auction.FormatPrice(marginalPrice), auction.FormatPrice(st.data.MinimumPrice))
		out, err := cbor.Marshal(auction.SettleOutput{})
		if err != nil {
			return nil, nil, fmt.Errorf("encode settle output: %w", err)
		}
		return nil, out, nil
	}

	// Reprice every winner at the uniform marginal price.
	for i := range winners {
		winners[i].AmountOut = auction.BaseOut(winners[i].Amount, marginalPrice)
	}

	st.lot.Sold.Add(st.lot.Sold, filled)
	purchased := auction.QuoteIn(filled, marginalPrice)
	st.lot.Purchased.Add(st.lot.Purchased, purchased)

	out, err := cbor.Marshal(auction.SettleOutput{MarginalPrice: marginalPrice.Bytes()})
	if err != nil {
		return nil, nil, fmt.Errorf("encode settle output: %w", err)
	}
	log.Printf("INFO: lot %d settled: %d winners at marginal price %s, sold=%s purchased=%s",
		lotID, len(winners), auction.FormatPrice(marginalPrice),
		auction.FormatAmount(st.lot.Sold), auction.FormatAmount(st.lot.Purchased))
	return winners, out, nil
}
