package event

import (
	"strconv"
)

// EventType discriminator for event payloads
type EventType int32

const (
	EventTypeUnknown EventType = iota
	EventTypeNewPositionOrder
	EventTypeNewWithdrawalOrder
	EventTypeNewLiquidityOrder
	EventTypeNewRebalanceOrder
	EventTypeFillOrder
	EventTypeCancelOrder
	EventTypeAddAsset
	EventTypeSetAssetSymbol
	EventTypeUpdateFundingRate
	EventTypeAddLiquidity
	EventTypeRemoveLiquidity
	EventTypeOpenPosition
	EventTypeClosePosition
	EventTypeLiquidate
	EventTypeAssetPriceOutOfRange
	EventTypeFillingFlashTake
	EventTypeFillFlashTake
)

// AllEventTypes lists every known type in declaration order.
var AllEventTypes = []EventType{
	EventTypeNewPositionOrder,
	EventTypeNewWithdrawalOrder,
	EventTypeNewLiquidityOrder,
	EventTypeNewRebalanceOrder,
	EventTypeFillOrder,
	EventTypeCancelOrder,
	EventTypeAddAsset,
	EventTypeSetAssetSymbol,
	EventTypeUpdateFundingRate,
	EventTypeAddLiquidity,
	EventTypeRemoveLiquidity,
	EventTypeOpenPosition,
	EventTypeClosePosition,
	EventTypeLiquidate,
	EventTypeAssetPriceOutOfRange,
	EventTypeFillingFlashTake,
	EventTypeFillFlashTake,
}

// Metadata is the block and transaction context every log carries.
type Metadata struct {
	BlockNumber    uint64
	BlockHash      string // lowercase 0x hex
	BlockTimestamp int64  // unix seconds
	TxHash         string // lowercase 0x hex
	TxIndex        uint64
	LogIndex       uint64
}

// Meta returns the metadata itself; embedding it gives every event Meta().
func (m Metadata) Meta() Metadata {
	return m
}

// IdempotencyKey is stable across redeliveries of the same log.
func (m Metadata) IdempotencyKey() string {
	return m.BlockHash + ":" + strconv.FormatUint(m.LogIndex, 10)
}

// Event is the interface all event payloads must implement
type Event interface {
	// EventType returns the discriminator
	EventType() EventType

	// Meta returns block and transaction context
	Meta() Metadata

	// IdempotencyKey returns the stable dedup key
	IdempotencyKey() string
}

func (et EventType) String() string {
	switch et {
	case EventTypeNewPositionOrder:
		return "NewPositionOrder"
	case EventTypeNewWithdrawalOrder:
		return "NewWithdrawalOrder"
	case EventTypeNewLiquidityOrder:
		return "NewLiquidityOrder"
	case EventTypeNewRebalanceOrder:
		return "NewRebalanceOrder"
	case EventTypeFillOrder:
		return "FillOrder"
	case EventTypeCancelOrder:
		return "CancelOrder"
	case EventTypeAddAsset:
		return "AddAsset"
	case EventTypeSetAssetSymbol:
		return "SetAssetSymbol"
	case EventTypeUpdateFundingRate:
		return "UpdateFundingRate"
	case EventTypeAddLiquidity:
		return "AddLiquidity"
	case EventTypeRemoveLiquidity:
		return "RemoveLiquidity"
	case EventTypeOpenPosition:
		return "OpenPosition"
	case EventTypeClosePosition:
		return "ClosePosition"
	case EventTypeLiquidate:
		return "Liquidate"
	case EventTypeAssetPriceOutOfRange:
		return "AssetPriceOutOfRange"
	case EventTypeFillingFlashTake:
		return "FillingFlashTake"
	case EventTypeFillFlashTake:
		return "FillFlashTake"
	default:
		return "Unknown"
	}
}

// ParseEventType is the inverse of String. Unknown names map to
// EventTypeUnknown.
func ParseEventType(name string) EventType {
	for _, et := range AllEventTypes {
		if et.String() == name {
			return et
		}
	}
	return EventTypeUnknown
}
