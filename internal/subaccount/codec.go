// Package subaccount decodes the packed 32-byte sub-account identifier.
//
// Layout: bytes [0,20) account address, [20] collateral asset id,
// [21] position asset id, [22] long flag (non-zero = long). The remaining
// bytes are reserved and carried verbatim in the key.
package subaccount

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Size is the byte length of a packed sub-account identifier.
const Size = 32

const (
	accountEnd      = 20
	collateralIndex = 20
	assetIndex      = 21
	longIndex       = 22
)

// ID is a packed sub-account identifier.
type ID [Size]byte

// SubAccount holds the decoded fields of an ID.
type SubAccount struct {
	Account      string // lowercase 0x-prefixed hex address
	CollateralID uint8
	AssetID      uint8
	IsLong       bool
}

// Decode extracts the four logical fields. Total for every ID.
func Decode(id ID) SubAccount {
	return SubAccount{
		Account:      FormatAddress(id[:accountEnd]),
		CollateralID: id[collateralIndex],
		AssetID:      id[assetIndex],
		IsLong:       id[longIndex] != 0,
	}
}

// Encode packs the logical fields back into an ID. Reserved bytes are zero.
func Encode(sa SubAccount) (ID, error) {
	var id ID
	addr, err := ParseAddress(sa.Account)
	if err != nil {
		return id, err
	}
	copy(id[:accountEnd], addr[:])
	id[collateralIndex] = sa.CollateralID
	id[assetIndex] = sa.AssetID
	if sa.IsLong {
		id[longIndex] = 1
	}
	return id, nil
}

// Key is the canonical entity key of the sub-account.
func (id ID) Key() string {
	return FormatHex(id[:])
}

func (id ID) String() string {
	return id.Key()
}

// Decode is shorthand for the package-level Decode.
func (id ID) Decode() SubAccount {
	return Decode(id)
}

// FromBytes validates the length of b and copies it into an ID.
func FromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != Size {
		return id, fmt.Errorf("sub-account id must be %d bytes, got %d", Size, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Parse decodes a 0x-prefixed (or bare) hex string into an ID.
func Parse(s string) (ID, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil {
		return ID{}, fmt.Errorf("sub-account id: %w", err)
	}
	return FromBytes(b)
}

// FormatHex renders bytes as lowercase 0x-prefixed hex. Every key derived
// from raw bytes (sub-accounts, addresses, hashes) goes through here.
func FormatHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// FormatAddress renders a 20-byte address.
func FormatAddress(b []byte) string {
	return FormatHex(b)
}

// ParseAddress parses a 20-byte hex address.
func ParseAddress(s string) ([accountEnd]byte, error) {
	var addr [accountEnd]byte
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil {
		return addr, fmt.Errorf("address %q: %w", s, err)
	}
	if len(b) != accountEnd {
		return addr, fmt.Errorf("address %q must be %d bytes, got %d", s, accountEnd, len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

// NormalizeAddress returns the canonical lowercase form of a hex address.
func NormalizeAddress(s string) (string, error) {
	addr, err := ParseAddress(s)
	if err != nil {
		return "", err
	}
	return FormatAddress(addr[:]), nil
}
