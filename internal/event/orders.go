package event

import (
	"math/big"

	"PerpIndexer/internal/subaccount"
)

// NewPositionOrder submits a position order for a sub-account.
// Deadline is zero for orders emitted before deadlines existed.
type NewPositionOrder struct {
	Metadata
	SubAccountID  subaccount.ID
	OrderID       uint64
	Collateral    *big.Int // collateral asset decimals
	Size          *big.Int // protocol decimals
	Price         *big.Int // protocol decimals
	ProfitTokenID uint8
	Flags         uint8
	Deadline      uint32
}

func (e *NewPositionOrder) EventType() EventType { return EventTypeNewPositionOrder }

// NewWithdrawalOrder requests a withdrawal of collateral or profit.
type NewWithdrawalOrder struct {
	Metadata
	SubAccountID  subaccount.ID
	OrderID       uint64
	RawAmount     *big.Int
	ProfitTokenID uint8
	IsProfit      bool
}

func (e *NewWithdrawalOrder) EventType() EventType { return EventTypeNewWithdrawalOrder }

// NewLiquidityOrder adds or removes pool liquidity.
type NewLiquidityOrder struct {
	Metadata
	Account   string
	OrderID   uint64
	AssetID   uint8
	RawAmount *big.Int
	IsAdding  bool
}

func (e *NewLiquidityOrder) EventType() EventType { return EventTypeNewLiquidityOrder }

// NewRebalanceOrder swaps pool inventory between two tokens.
type NewRebalanceOrder struct {
	Metadata
	Rebalancer    string
	OrderID       uint64
	TokenID0      uint8
	TokenID1      uint8
	RawAmount0    *big.Int
	MaxRawAmount1 *big.Int
	UserData      string // 0x hex
}

func (e *NewRebalanceOrder) EventType() EventType { return EventTypeNewRebalanceOrder }

// FillOrder finishes an order as filled. OrderType is the raw tag as
// emitted; the core validates it.
type FillOrder struct {
	Metadata
	OrderID   uint64
	OrderType uint8
}

func (e *FillOrder) EventType() EventType { return EventTypeFillOrder }

// CancelOrder finishes an order as not filled.
type CancelOrder struct {
	Metadata
	OrderID   uint64
	OrderType uint8
}

func (e *CancelOrder) EventType() EventType { return EventTypeCancelOrder }
