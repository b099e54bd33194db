package lsbba

import (
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/Axis-Fi/axis-core-sub009/auction"
)

func decodeOutput(t *testing.T, raw []byte) auction.SettleOutput {
	var out auction.SettleOutput
	assert.NoError(t, cbor.Unmarshal(raw, &out))
	return out
}

func TestSettleClearingPrice(t *testing.T) {
	f := newDefaultFixture(t)
	// Capacity 10 base tokens. Prices: 2.0, 1.5, 1.0.
	f.bid("alice", e18(8), e18(4), 0x01)
	f.bid("bob", e18(6), e18(4), 0x02)
	f.bid("carol", e18(5), e18(5), 0x03)
	f.conclude()

	assert.NoError(t, f.m.DecryptAndSortBids(testLotID, []auction.Decrypt{
		f.claim(e18(5), 0x03),
		f.claim(e18(4), 0x02),
		f.claim(e18(4), 0x01),
	}))

	winners, raw, err := f.m.Settle(testLotID)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(winners))

	// Carol's 1.0 is the price at which cumulative demand crosses capacity,
	// so it clears the whole batch.
	out := decodeOutput(t, raw)
	marginal := new(uint256.Int).SetBytes(out.MarginalPrice)
	check.True(t, marginal.Eq(e18(1)))

	// Highest price first, every payout re-derived at the marginal price.
	check.Equal(t, uint64(1), winners[0].BidID)
	check.True(t, winners[0].Amount.Eq(e18(8)))
	check.True(t, winners[0].AmountOut.Eq(e18(8)))
	check.Equal(t, uint64(2), winners[1].BidID)
	check.True(t, winners[1].AmountOut.Eq(e18(6)))
	check.Equal(t, uint64(3), winners[2].BidID)
	check.True(t, winners[2].AmountOut.Eq(e18(5)))
	check.Equal(t, "alice", winners[0].Bidder)

	lot, err := f.m.GetLot(testLotID)
	assert.NoError(t, err)
	check.True(t, lot.Capacity.IsZero())
	check.True(t, lot.Sold.Eq(e18(10)))
	check.True(t, lot.Purchased.Eq(e18(10)))

	data, err := f.m.GetLotData(testLotID)
	assert.NoError(t, err)
	check.Equal(t, StatusSettled, data.Status)
}

func TestSettleExactCapacityExcludesRemainingBid(t *testing.T) {
	f := newDefaultFixture(t)
	// Three equal-priced bids at 1.0 against 10 base of capacity. The 7 and
	// 3 quote bids exhaust capacity exactly; the 2 quote bid must be left
	// out even though it shares the clearing price.
	f.bid("alice", e18(2), e18(2), 0x01)
	f.bid("bob", e18(3), e18(3), 0x02)
	f.bid("carol", e18(7), e18(7), 0x03)
	f.conclude()

	assert.NoError(t, f.m.DecryptAndSortBids(testLotID, []auction.Decrypt{
		f.claim(e18(7), 0x03),
		f.claim(e18(3), 0x02),
		f.claim(e18(2), 0x01),
	}))

	winners, raw, err := f.m.Settle(testLotID)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(winners))

	check.Equal(t, uint64(3), winners[0].BidID)
	check.True(t, winners[0].Amount.Eq(e18(7)))
	check.True(t, winners[0].AmountOut.Eq(e18(7)))
	check.Equal(t, uint64(2), winners[1].BidID)
	check.True(t, winners[1].Amount.Eq(e18(3)))
	check.True(t, winners[1].AmountOut.Eq(e18(3)))

	out := decodeOutput(t, raw)
	check.True(t, new(uint256.Int).SetBytes(out.MarginalPrice).Eq(e18(1)))

	lot, err := f.m.GetLot(testLotID)
	assert.NoError(t, err)
	check.True(t, lot.Sold.Eq(e18(10)))
	check.True(t, lot.Purchased.Eq(e18(10)))
	check.True(t, lot.Capacity.IsZero())

	// The excluded bid stays decrypted and refundable, never a winner.
	bid, err := f.m.GetBidData(testLotID, 1)
	assert.NoError(t, err)
	check.Equal(t, BidDecrypted, bid.Status)
}

func TestSettleUnderCapacity(t *testing.T) {
	f := newDefaultFixture(t)
	f.bid("alice", e18(3), e18(3), 0x01)
	f.bid("bob", e18(2), e18(2), 0x02)
	f.conclude()

	assert.NoError(t, f.m.DecryptAndSortBids(testLotID, []auction.Decrypt{
		f.claim(e18(2), 0x02),
		f.claim(e18(3), 0x01),
	}))

	winners, raw, err := f.m.Settle(testLotID)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(winners))

	// Demand never reaches capacity; the last (lowest) winner sets the
	// price and both bids fill in full.
	out := decodeOutput(t, raw)
	check.True(t, new(uint256.Int).SetBytes(out.MarginalPrice).Eq(e18(1)))

	lot, err := f.m.GetLot(testLotID)
	assert.NoError(t, err)
	check.True(t, lot.Sold.Eq(e18(5)))
	check.True(t, lot.Purchased.Eq(e18(5)))
	check.True(t, lot.Capacity.IsZero())
}

func TestSettleVoidUnderfill(t *testing.T) {
	p, priv := defaultParams(t)
	p.MinFillPercent = PercentScale // require a full fill
	f := newFixture(t, p, priv)
	f.bid("alice", e18(5), e18(5), 0x01)
	f.conclude()

	assert.NoError(t, f.m.DecryptAndSortBids(testLotID, []auction.Decrypt{
		f.claim(e18(5), 0x01),
	}))

	winners, raw, err := f.m.Settle(testLotID)
	assert.NoError(t, err)
	check.Equal(t, 0, len(winners))

	out := decodeOutput(t, raw)
	check.Equal(t, 0, len(out.MarginalPrice))

	lot, err := f.m.GetLot(testLotID)
	assert.NoError(t, err)
	check.True(t, lot.Capacity.IsZero())
	check.True(t, lot.Sold.IsZero())
	check.True(t, lot.Purchased.IsZero())

	data, err := f.m.GetLotData(testLotID)
	assert.NoError(t, err)
	check.Equal(t, StatusSettled, data.Status)
}

func TestSettleVoidBelowMinimumPrice(t *testing.T) {
	p, priv := defaultParams(t)
	p.MinimumPrice = e18(2).Bytes()
	f := newFixture(t, p, priv)
	// Price 1.0, below the 2.0 floor.
	f.bid("alice", e18(8), e18(8), 0x01)
	f.conclude()

	assert.NoError(t, f.m.DecryptAndSortBids(testLotID, []auction.Decrypt{
		f.claim(e18(8), 0x01),
	}))

	winners, raw, err := f.m.Settle(testLotID)
	assert.NoError(t, err)
	check.Equal(t, 0, len(winners))
	out := decodeOutput(t, raw)
	check.Equal(t, 0, len(out.MarginalPrice))
}

func TestSettleSkipsSmallBids(t *testing.T) {
	p, priv := defaultParams(t)
	p.MinBidPercent = 10_000 // 10% of capacity
	f := newFixture(t, p, priv)

	// minBidSize = 10% of 10 base = 1 base, at the 0.5 minimum price = 0.5
	// quote. Alice's 0.4 quote bid is below the floor at any price.
	small := uint256.NewInt(400_000_000_000_000_000)
	smallOut := uint256.NewInt(200_000_000_000_000_000)
	f.bid("alice", small, smallOut, 0x01)
	f.bid("bob", e18(5), e18(5), 0x02)
	f.conclude()

	assert.NoError(t, f.m.DecryptAndSortBids(testLotID, []auction.Decrypt{
		f.claim(e18(5), 0x02),
		f.claim(smallOut, 0x01),
	}))

	winners, _, err := f.m.Settle(testLotID)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(winners))
	check.Equal(t, uint64(2), winners[0].BidID)
}

func TestSettleCancelledBidsNeverWin(t *testing.T) {
	f := newDefaultFixture(t)
	f.bid("alice", e18(8), e18(4), 0x01) // best price, then cancelled
	f.bid("bob", e18(5), e18(5), 0x02)
	assert.NoError(t, f.m.CancelBid(testLotID, 1, "alice"))
	f.conclude()

	assert.NoError(t, f.m.DecryptAndSortBids(testLotID, []auction.Decrypt{
		f.claim(e18(5), 0x02),
	}))

	winners, _, err := f.m.Settle(testLotID)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(winners))
	check.Equal(t, uint64(2), winners[0].BidID)

	lot, err := f.m.GetLot(testLotID)
	assert.NoError(t, err)
	check.True(t, lot.Sold.Eq(e18(5)))
}

func TestSettleNoBidsVoids(t *testing.T) {
	f := newDefaultFixture(t)
	f.conclude()
	assert.NoError(t, f.m.DecryptAndSortBids(testLotID, nil))

	winners, raw, err := f.m.Settle(testLotID)
	assert.NoError(t, err)
	check.Equal(t, 0, len(winners))
	out := decodeOutput(t, raw)
	check.Equal(t, 0, len(out.MarginalPrice))
}

func TestSettleGuards(t *testing.T) {
	f := newDefaultFixture(t)
	f.bid("alice", e18(5), e18(5), 0x01)

	// Not decrypted yet.
	_, _, err := f.m.Settle(testLotID)
	check.True(t, errors.Is(err, auction.ErrWrongState))

	_, _, err = f.m.Settle(99)
	check.True(t, errors.Is(err, auction.ErrInvalidLotID))

	f.conclude()
	assert.NoError(t, f.m.DecryptAndSortBids(testLotID, []auction.Decrypt{
		f.claim(e18(5), 0x01),
	}))
	_, _, err = f.m.Settle(testLotID)
	assert.NoError(t, err)

	// Settling twice fails.
	_, _, err = f.m.Settle(testLotID)
	check.True(t, errors.Is(err, auction.ErrWrongState))
}
