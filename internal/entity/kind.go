// Package entity defines the derived state model: one struct per entity
// kind, its deterministic key, and the record it starts as on first reference.
package entity

import (
	"strings"
)

// Kind names an entity table.
type Kind string

const (
	KindUser              Kind = "User"
	KindAsset             Kind = "Asset"
	KindPositionOrder     Kind = "PositionOrder"
	KindWithdrawalOrder   Kind = "WithdrawalOrder"
	KindLiquidityOrder    Kind = "LiquidityOrder"
	KindRebalanceOrder    Kind = "RebalanceOrder"
	KindPositionTrade     Kind = "PositionTrade"
	KindLiquidityTrade    Kind = "LiquidityTrade"
	KindSubAccount        Kind = "SubAccount"
	KindFunding           Kind = "Funding"
	KindPrice             Kind = "Price"
	KindFlashTakeSequence Kind = "FlashTakeSequence"
	KindFlashTake         Kind = "FlashTake"
)

// Kinds lists every entity kind.
var Kinds = []Kind{
	KindUser, KindAsset,
	KindPositionOrder, KindWithdrawalOrder, KindLiquidityOrder, KindRebalanceOrder,
	KindPositionTrade, KindLiquidityTrade, KindSubAccount,
	KindFunding, KindPrice,
	KindFlashTakeSequence, KindFlashTake,
}

func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k is one of Kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKind resolves a kind name case-insensitively, ignoring '-' and '_'
// separators, so "position-order" and "PositionOrder" are the same kind.
func ParseKind(name string) (Kind, bool) {
	norm := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(name))
	for _, k := range Kinds {
		if strings.ToLower(string(k)) == norm {
			return k, true
		}
	}
	return "", false
}

// Record is implemented by every entity.
type Record interface {
	Kind() Kind
	Key() string
}

// New returns an empty record of the given kind for decoding into.
func New(kind Kind) (Record, bool) {
	switch kind {
	case KindUser:
		return &User{}, true
	case KindAsset:
		return &Asset{}, true
	case KindPositionOrder:
		return &PositionOrder{}, true
	case KindWithdrawalOrder:
		return &WithdrawalOrder{}, true
	case KindLiquidityOrder:
		return &LiquidityOrder{}, true
	case KindRebalanceOrder:
		return &RebalanceOrder{}, true
	case KindPositionTrade:
		return &PositionTrade{}, true
	case KindLiquidityTrade:
		return &LiquidityTrade{}, true
	case KindSubAccount:
		return &SubAccount{}, true
	case KindFunding:
		return &Funding{}, true
	case KindPrice:
		return &Price{}, true
	case KindFlashTakeSequence:
		return &FlashTakeSequence{}, true
	case KindFlashTake:
		return &FlashTake{}, true
	default:
		return nil, false
	}
}
