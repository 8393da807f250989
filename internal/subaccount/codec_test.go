package subaccount_test

import (
	"strings"
	"testing"

	"PerpIndexer/internal/subaccount"
)

const rawID = "0x1234567890abcdef1234567890abcdef12345678" + "02" + "05" + "01" + "000000000000000000"

func TestDecode(t *testing.T) {
	id, err := subaccount.Parse(rawID)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	sa := subaccount.Decode(id)
	if sa.Account != "0x1234567890abcdef1234567890abcdef12345678" {
		t.Errorf("account: got %s", sa.Account)
	}
	if sa.CollateralID != 2 {
		t.Errorf("collateral: got %d, want 2", sa.CollateralID)
	}
	if sa.AssetID != 5 {
		t.Errorf("asset: got %d, want 5", sa.AssetID)
	}
	if !sa.IsLong {
		t.Error("expected long")
	}
}

func TestDecode_AnyNonZeroFlagIsLong(t *testing.T) {
	for _, flag := range []byte{0x01, 0x02, 0x80, 0xff} {
		var id subaccount.ID
		id[22] = flag
		if !subaccount.Decode(id).IsLong {
			t.Errorf("flag %#x: expected long", flag)
		}
	}
	var id subaccount.ID
	if subaccount.Decode(id).IsLong {
		t.Error("zero flag: expected short")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	id, err := subaccount.Parse(rawID)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	reencoded, err := subaccount.Encode(subaccount.Decode(id))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if reencoded.Key() != id.Key() {
		t.Errorf("key mismatch: got %s, want %s", reencoded.Key(), id.Key())
	}
}

func TestKeyIsLowercase(t *testing.T) {
	id, err := subaccount.Parse(strings.ToUpper(strings.TrimPrefix(rawID, "0x")))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.Key() != rawID {
		t.Errorf("key: got %s, want %s", id.Key(), rawID)
	}
}

func TestParse_RejectsWrongLength(t *testing.T) {
	cases := []string{
		"0x",
		"0x1234567890abcdef1234567890abcdef12345678020501",
		rawID + "00",
	}
	for _, c := range cases {
		if _, err := subaccount.Parse(c); err == nil {
			t.Errorf("Parse(%q): expected error", c)
		}
	}
	if _, err := subaccount.Parse("0xzz"); err == nil {
		t.Error("expected hex error")
	}
}

func TestNormalizeAddress(t *testing.T) {
	got, err := subaccount.NormalizeAddress("0xABCDEF0123456789ABCDEF0123456789ABCDEF01")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "0xabcdef0123456789abcdef0123456789abcdef01" {
		t.Errorf("got %s", got)
	}
	if _, err := subaccount.NormalizeAddress("0x1234"); err == nil {
		t.Error("expected length error")
	}
}
