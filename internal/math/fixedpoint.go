package math

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Protocol-wide exponents. Sizes, prices, fees and pnl are emitted with
// ProtocolDecimals; per-period funding rates with FundingRateDecimals.
// Collateral and token amounts use the registered decimals of their asset.
const (
	ProtocolDecimals    uint32 = 18
	FundingRateDecimals uint32 = 5
)

// minExponent is the smallest exponent a decimal.Decimal can carry.
const minExponent = -1 << 31

// ConvertToDecimal returns amount / 10^exponent as an exact decimal.
// A nil amount converts to zero. Exponents past the decimal range truncate
// toward zero at the smallest representable unit.
func ConvertToDecimal(amount *big.Int, exponent uint32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	if exponent == 0 {
		return decimal.NewFromBigInt(amount, 0)
	}
	// The scale lives in the decimal exponent, so no division is performed
	// and nothing is rounded.
	scale := -int64(exponent)
	if scale >= minExponent {
		return decimal.NewFromBigInt(amount, int32(scale))
	}

	shift := minExponent - scale
	if int64(len(new(big.Int).Abs(amount).String())) <= shift {
		return decimal.Zero
	}
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(shift), nil)
	return decimal.NewFromBigInt(new(big.Int).Quo(amount, divisor), minExponent)
}

// ConvertProtocol converts an amount carrying the protocol exponent.
func ConvertProtocol(amount *big.Int) decimal.Decimal {
	return ConvertToDecimal(amount, ProtocolDecimals)
}

// ConvertOptional converts amount when present; ok is false for nil.
// Legacy events omit some fields and callers must leave the target untouched.
func ConvertOptional(amount *big.Int, exponent uint32) (decimal.Decimal, bool) {
	if amount == nil {
		return decimal.Zero, false
	}
	return ConvertToDecimal(amount, exponent), true
}
