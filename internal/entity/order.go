package entity

import (
	"github.com/shopspring/decimal"
)

// Position order flag bits.
const (
	PositionFlagOpen               uint8 = 0x80
	PositionFlagMarket             uint8 = 0x40
	PositionFlagWithdrawAllIfEmpty uint8 = 0x20
	PositionFlagTrigger            uint8 = 0x10
)

// Lifecycle is the Created -> Finished state shared by all order kinds.
type Lifecycle struct {
	IsFinish   bool   `json:"isFinish"`
	IsFilled   bool   `json:"isFilled"`
	CreatedAt  int64  `json:"createdAt"`
	FinishedAt int64  `json:"finishedAt"`
	TxHash     string `json:"txHash"`
}

// Finish applies the single transition. A second call overwrites the first.
func (l *Lifecycle) Finish(filled bool, at int64) {
	l.IsFinish = true
	l.IsFilled = filled
	l.FinishedAt = at
}

// Order is implemented by the four order tables.
type Order interface {
	Record
	OrderLifecycle() *Lifecycle
}

type PositionOrder struct {
	ID            string          `json:"id"`
	User          string          `json:"user"`
	SubAccountID  string          `json:"subAccountId"`
	CollateralID  uint8           `json:"collateralId"`
	AssetID       uint8           `json:"assetId"`
	ProfitTokenID uint8           `json:"profitTokenId"`
	Collateral    decimal.Decimal `json:"collateral"`
	Size          decimal.Decimal `json:"size"`
	Price         decimal.Decimal `json:"price"`
	Flags         uint8           `json:"flags"`
	IsLong        bool            `json:"isLong"`
	IsOpen        bool            `json:"isOpen"`
	IsMarket      bool            `json:"isMarket"`
	IsTrigger     bool            `json:"isTrigger"`
	Deadline      uint32          `json:"deadline"`
	Lifecycle
}

func (o *PositionOrder) Kind() Kind                 { return KindPositionOrder }
func (o *PositionOrder) Key() string                { return o.ID }
func (o *PositionOrder) OrderLifecycle() *Lifecycle { return &o.Lifecycle }

// SetFlags stores the raw bitset and its derived booleans.
func (o *PositionOrder) SetFlags(flags uint8) {
	o.Flags = flags
	o.IsOpen = flags&PositionFlagOpen != 0
	o.IsMarket = flags&PositionFlagMarket != 0
	o.IsTrigger = flags&PositionFlagTrigger != 0
}

func NewPositionOrder(id, userID string) *PositionOrder {
	return &PositionOrder{
		ID:         id,
		User:       userID,
		Collateral: decimal.Zero,
		Size:       decimal.Zero,
		Price:      decimal.Zero,
		IsLong:     true,
		IsOpen:     true,
	}
}

type WithdrawalOrder struct {
	ID            string          `json:"id"`
	User          string          `json:"user"`
	SubAccountID  string          `json:"subAccountId"`
	Amount        decimal.Decimal `json:"amount"`
	CollateralID  uint8           `json:"collateralId"`
	AssetID       uint8           `json:"assetId"`
	ProfitTokenID uint8           `json:"profitTokenId"`
	IsLong        bool            `json:"isLong"`
	IsProfit      bool            `json:"isProfit"`
	Lifecycle
}

func (o *WithdrawalOrder) Kind() Kind                 { return KindWithdrawalOrder }
func (o *WithdrawalOrder) Key() string                { return o.ID }
func (o *WithdrawalOrder) OrderLifecycle() *Lifecycle { return &o.Lifecycle }

func NewWithdrawalOrder(id, userID string) *WithdrawalOrder {
	return &WithdrawalOrder{
		ID:     id,
		User:   userID,
		Amount: decimal.Zero,
		IsLong: true,
	}
}

type LiquidityOrder struct {
	ID       string          `json:"id"`
	User     string          `json:"user"`
	AssetID  uint8           `json:"assetId"`
	Amount   decimal.Decimal `json:"amount"`
	IsAdding bool            `json:"isAdding"`
	Lifecycle
}

func (o *LiquidityOrder) Kind() Kind                 { return KindLiquidityOrder }
func (o *LiquidityOrder) Key() string                { return o.ID }
func (o *LiquidityOrder) OrderLifecycle() *Lifecycle { return &o.Lifecycle }

func NewLiquidityOrder(id, userID string) *LiquidityOrder {
	return &LiquidityOrder{
		ID:     id,
		User:   userID,
		Amount: decimal.Zero,
	}
}

type RebalanceOrder struct {
	ID            string          `json:"id"`
	Rebalancer    string          `json:"rebalancer"`
	TokenID0      uint8           `json:"tokenId0"`
	TokenID1      uint8           `json:"tokenId1"`
	RawAmount0    decimal.Decimal `json:"rawAmount0"`
	MaxRawAmount1 decimal.Decimal `json:"maxRawAmount1"`
	UserData      string          `json:"userData"`
	Lifecycle
}

func (o *RebalanceOrder) Kind() Kind                 { return KindRebalanceOrder }
func (o *RebalanceOrder) Key() string                { return o.ID }
func (o *RebalanceOrder) OrderLifecycle() *Lifecycle { return &o.Lifecycle }

func NewRebalanceOrder(id, rebalancer string) *RebalanceOrder {
	return &RebalanceOrder{
		ID:            id,
		Rebalancer:    rebalancer,
		RawAmount0:    decimal.Zero,
		MaxRawAmount1: decimal.Zero,
	}
}
