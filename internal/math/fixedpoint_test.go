package math_test

import (
	"math"
	"math/big"
	"math/rand"
	"testing"

	fpmath "PerpIndexer/internal/math"

	"github.com/shopspring/decimal"
)

func TestConvertToDecimal(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		exponent uint32
		want     string
	}{
		{"zero exponent", "12345", 0, "12345"},
		{"six decimals", "1500000", 6, "1.5"},
		{"protocol one", "1000000000000000000", 18, "1"},
		{"sub unit", "1", 18, "0.000000000000000001"},
		{"funding rate", "12", 5, "0.00012"},
		{"zero amount", "0", 18, "0"},
		{"uint256 max", "115792089237316195423570985008687907853269984665640564039457584007913129639935", 18,
			"115792089237316195423570985008687907853269984665640564039457.584007913129639935"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, ok := new(big.Int).SetString(tt.amount, 10)
			if !ok {
				t.Fatalf("bad amount %q", tt.amount)
			}
			got := fpmath.ConvertToDecimal(amount, tt.exponent)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ConvertToDecimal(%s, %d) = %s, want %s", tt.amount, tt.exponent, got, tt.want)
			}
		})
	}
}

func TestConvertToDecimal_ExactInverse(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		m := new(big.Int).Rand(rng, new(big.Int).Lsh(big.NewInt(1), 256))
		e := uint32(rng.Intn(80))

		got := fpmath.ConvertToDecimal(m, e)

		// got * 10^e must reproduce m exactly.
		back := got.Shift(int32(e))
		if !back.IsInteger() {
			t.Fatalf("convert(%s, %d) * 10^%d is not an integer: %s", m, e, e, back)
		}
		if back.BigInt().Cmp(m) != 0 {
			t.Fatalf("convert(%s, %d) lost precision: %s", m, e, got)
		}
	}
}

func TestConvertToDecimal_ExponentBeyondDecimalRange(t *testing.T) {
	tests := []struct {
		name      string
		amount    int64
		exponent  uint32
		wantCoeff int64
		wantExp   int32
	}{
		{"at range edge", 5, 1 << 31, 5, math.MinInt32},
		{"truncates low digits", 10000000, 1<<31 + 5, 100, math.MinInt32},
		{"negative truncates", -10000000, 1<<31 + 5, -100, math.MinInt32},
		{"too small to represent", 12345, math.MaxUint32, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fpmath.ConvertToDecimal(big.NewInt(tt.amount), tt.exponent)
			if got.Coefficient().Cmp(big.NewInt(tt.wantCoeff)) != 0 {
				t.Fatalf("coefficient = %s, want %d", got.Coefficient(), tt.wantCoeff)
			}
			if tt.wantCoeff != 0 && got.Exponent() != tt.wantExp {
				t.Errorf("exponent = %d, want %d", got.Exponent(), tt.wantExp)
			}
		})
	}
}

func TestConvertToDecimal_ZeroExponentIsIdentity(t *testing.T) {
	m := big.NewInt(987654321)
	got := fpmath.ConvertToDecimal(m, 0)
	if got.Exponent() != 0 {
		t.Errorf("exponent: got %d, want 0", got.Exponent())
	}
	if got.BigInt().Cmp(m) != 0 {
		t.Errorf("value: got %s, want %s", got, m)
	}
}

func TestConvertToDecimal_DoesNotAliasInput(t *testing.T) {
	m := big.NewInt(100)
	got := fpmath.ConvertToDecimal(m, 2)
	m.SetInt64(5)
	if !got.Equal(decimal.NewFromInt(1)) {
		t.Errorf("mutating input changed result: %s", got)
	}
}

func TestConvertOptional(t *testing.T) {
	if _, ok := fpmath.ConvertOptional(nil, 18); ok {
		t.Error("nil amount should report absent")
	}
	d, ok := fpmath.ConvertOptional(big.NewInt(25), 1)
	if !ok || !d.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("got %s ok=%v, want 2.5 true", d, ok)
	}
}

func TestFundingWindowStart(t *testing.T) {
	tests := []struct {
		ts   int64
		want int64
	}{
		{0, 0},
		{100, 0},
		{28450, 0},
		{28799, 0},
		{28800, 28800},
		{1700000000, 1699977600},
		{-1, -28800},
	}
	for _, tt := range tests {
		if got := fpmath.FundingWindowStart(tt.ts); got != tt.want {
			t.Errorf("FundingWindowStart(%d) = %d, want %d", tt.ts, got, tt.want)
		}
	}
}
