package lsbba

import (
	"github.com/holiman/uint256"
)

// AuctionStatus tracks a lot through the sealed-bid lifecycle. It is
// monotonic: Created -> Decrypted -> Settled, with cancellation jumping a
// pre-start lot straight to Settled as an immediate void settlement.
type AuctionStatus uint8

const (
	StatusCreated AuctionStatus = iota
	StatusDecrypted
	StatusSettled
)

func (s AuctionStatus) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusDecrypted:
		return "decrypted"
	case StatusSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// BidStatus tracks one sealed bid.
type BidStatus uint8

const (
	BidSubmitted BidStatus = iota
	BidDecrypted
	BidCancelled
	BidClaimed
)

func (s BidStatus) String() string {
	switch s {
	case BidSubmitted:
		return "submitted"
	case BidDecrypted:
		return "decrypted"
	case BidCancelled:
		return "cancelled"
	case BidClaimed:
		return "claimed"
	default:
		return "unknown"
	}
}

// AuctionData is the sealed-bid-specific state of one lot.
type AuctionData struct {
	Status           AuctionStatus
	NextDecryptIndex uint64
	MinimumPrice     *uint256.Int
	MinFilled        *uint256.Int
	MinBidSize       *uint256.Int
	PublicKeyModulus []byte
}

// EncryptedBid is one sealed bid as stored in the ledger. MinAmountOut is
// zero until the bid is decrypted; after decryption or cancellation the bid
// is immutable except for the final Claimed marker.
type EncryptedBid struct {
	Bidder             string
	Recipient          string
	Referrer           string
	Amount             *uint256.Int
	EncryptedAmountOut []byte
	MinAmountOut       *uint256.Int
	Status             BidStatus
}

// Params is the implParams payload a seller supplies at lot creation,
// CBOR-encoded on the wire.
type Params struct {
	// MinFillPercent is the fraction of capacity, in PercentScale units,
	// that must fill or the auction voids.
	MinFillPercent uint64 `cbor:"min_fill_percent"`
	// MinBidPercent sets the per-bid size floor as a fraction of capacity.
	MinBidPercent uint64 `cbor:"min_bid_percent"`
	// MinimumPrice is the normalized floor clearing price, big-endian.
	MinimumPrice []byte `cbor:"minimum_price"`
	// PublicKeyModulus is the 128-byte RSA modulus bids are sealed under.
	PublicKeyModulus []byte `cbor:"public_key_modulus"`
}

const (
	// PercentScale is the fixed-point base for the percent parameters:
	// 100_000 = 100%.
	PercentScale = 100_000

	// Bounds on MinBidPercent: 0.01% to 10% of capacity.
	minBidPercentFloor = 10
	minBidPercentCeil  = 10_000

	// ModulusSize is the enforced RSA public modulus length in bytes.
	ModulusSize = 128
)
