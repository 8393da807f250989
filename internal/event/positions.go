package event

import (
	"math/big"

	"PerpIndexer/internal/subaccount"
)

// PositionChange carries the fields shared by open, close and liquidate.
// All amounts carry the protocol exponent. RemainPosition and
// RemainCollateral are nil in legacy events.
type PositionChange struct {
	Trader           string
	AssetID          uint8
	SubAccountID     subaccount.ID
	CollateralID     uint8
	IsLong           bool
	Amount           *big.Int
	AssetPrice       *big.Int
	CollateralPrice  *big.Int
	FeeUsd           *big.Int
	RemainPosition   *big.Int
	RemainCollateral *big.Int
}

// OpenPosition increases a sub-account position.
type OpenPosition struct {
	Metadata
	PositionChange
}

func (e *OpenPosition) EventType() EventType { return EventTypeOpenPosition }

// ClosePosition decreases a position and realizes pnl.
type ClosePosition struct {
	Metadata
	PositionChange
	ProfitAssetID    uint8
	ProfitAssetPrice *big.Int
	PnlUsd           *big.Int
	HasProfit        bool
}

func (e *ClosePosition) EventType() EventType { return EventTypeClosePosition }

// Liquidate is a forced close.
type Liquidate struct {
	Metadata
	PositionChange
	ProfitAssetID    uint8
	ProfitAssetPrice *big.Int
	PnlUsd           *big.Int
	HasProfit        bool
}

func (e *Liquidate) EventType() EventType { return EventTypeLiquidate }
