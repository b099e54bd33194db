// Package auction defines the types shared across the protocol core: lots,
// creation parameters, the module capability interfaces with their closed
// set of kinds, the error taxonomy, and normalized price math.
package auction

import (
	"time"

	"github.com/holiman/uint256"
)

// Kind identifies an auction module variant. The set is closed: the router
// dispatches over it rather than over an inheritance chain.
type Kind uint8

const (
	// KindAtomic settles every purchase immediately at the listed price.
	KindAtomic Kind = iota + 1
	// KindSealedBatch collects encrypted bids and settles them in one batch
	// at a uniform marginal price.
	KindSealedBatch
)

func (k Kind) String() string {
	switch k {
	case KindAtomic:
		return "atomic"
	case KindSealedBatch:
		return "sealed-batch"
	default:
		return "unknown"
	}
}

// Clock supplies the current time. Modules take it as an injected
// dependency so tests can drive the auction window deterministically.
type Clock func() time.Time

// Lot is one auction instance. Capacity only ever decreases and reaches
// zero exactly once, at settlement or cancellation; Purchased and Sold
// accumulate actual winning-bid totals only.
type Lot struct {
	Start           int64
	Conclusion      int64
	CapacityInQuote bool
	Capacity        *uint256.Int
	Sold            *uint256.Int
	Purchased       *uint256.Int
}

// AuctionParams carries everything the router supplies at lot creation.
// ImplParams is a module-specific CBOR blob.
type AuctionParams struct {
	Start           int64
	Duration        int64
	CapacityInQuote bool
	Capacity        *uint256.Int
	ImplParams      []byte
}

// Decrypt is one claimed plaintext for a sealed bid: the amount out the
// bidder asked for and the OAEP seed the bid was encrypted with.
type Decrypt struct {
	AmountOut *uint256.Int
	Seed      [32]byte
}

// WinningBid is one settled winner. AmountOut is re-derived at the uniform
// marginal price, not the bidder's originally submitted minimum.
type WinningBid struct {
	BidID     uint64
	Bidder    string
	Recipient string
	Referrer  string
	Amount    *uint256.Int
	AmountOut *uint256.Int
}

// SettleOutput is the CBOR payload returned to the router alongside the
// winner list. MarginalPrice is big-endian and empty for a voided auction.
type SettleOutput struct {
	MarginalPrice []byte `cbor:"marginal_price"`
}

// Module is the capability set every auction variant provides.
type Module interface {
	Kind() Kind
	MinAuctionDuration() time.Duration
	Auction(lotID uint64, params AuctionParams) error
	CancelAuction(lotID uint64) error
	GetLot(lotID uint64) (Lot, error)
	IsLive(lotID uint64) bool
}

// PurchaseModule is implemented by atomic variants.
type PurchaseModule interface {
	Module
	Purchase(lotID uint64, buyer string, amount, minAmountOut *uint256.Int) (*uint256.Int, error)
}

// BatchModule is implemented by batch variants such as the sealed-bid
// auction.
type BatchModule interface {
	Module
	Bid(lotID uint64, bidder, recipient, referrer string, amount *uint256.Int, encryptedAmountOut []byte) (uint64, error)
	CancelBid(lotID, bidID uint64, caller string) error
	DecryptAndSortBids(lotID uint64, decrypts []Decrypt) error
	Settle(lotID uint64) ([]WinningBid, []byte, error)
}
