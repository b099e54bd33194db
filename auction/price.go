package auction

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Scale is the fixed price normalization: a price of 1 quote token per base
// token is represented as 1e18 regardless of either token's native decimal
// count. All internal price comparisons happen at this scale; native-unit
// amounts are only produced at the reporting boundary.
const Scale = 1_000_000_000_000_000_000

// MaxAmountBits bounds every token amount to 96 bits so that
// cross-multiplied price comparisons fit in 192 bits and can never overflow
// a uint256.
const MaxAmountBits = 96

var scale = uint256.NewInt(Scale)

// ScaleInt returns Scale as a uint256.
func ScaleInt() *uint256.Int { return scale.Clone() }

// ValidateAmount rejects nil, zero, and over-96-bit amounts.
func ValidateAmount(amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return fmt.Errorf("%w: zero amount", ErrInvalidParams)
	}
	if amount.BitLen() > MaxAmountBits {
		return fmt.Errorf("%w: amount exceeds %d bits", ErrInvalidParams, MaxAmountBits)
	}
	return nil
}

// Price returns the normalized price amountIn*Scale/amountOut, truncated
// toward zero. Truncation always rounds in the direction that promises
// fewer base tokens, never more.
func Price(amountIn, amountOut *uint256.Int) *uint256.Int {
	p := new(uint256.Int).Mul(amountIn, scale)
	return p.Div(p, amountOut)
}

// BaseOut converts a quote amount to base tokens at the given normalized
// price, truncating toward zero.
func BaseOut(amountIn, price *uint256.Int) *uint256.Int {
	out := new(uint256.Int).Mul(amountIn, scale)
	return out.Div(out, price)
}

// QuoteIn converts a base amount to quote tokens at the given normalized
// price, truncating toward zero.
func QuoteIn(amountOut, price *uint256.Int) *uint256.Int {
	in := new(uint256.Int).Mul(amountOut, price)
	return in.Div(in, scale)
}

// FormatPrice renders a normalized price as a human-readable decimal string
// for logs and tooling: 1200000000000000000 prints as "1.2".
func FormatPrice(price *uint256.Int) string {
	if price == nil {
		return "0"
	}
	return decimal.NewFromBigInt(price.ToBig(), -18).String()
}

// FormatAmount renders a native 18-decimal token amount the same way.
func FormatAmount(amount *uint256.Int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount.ToBig(), -18).String()
}
