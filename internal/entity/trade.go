package entity

import (
	"github.com/shopspring/decimal"
)

// PositionTrade is written once per open, close or liquidate event.
type PositionTrade struct {
	ID               string          `json:"id"`
	User             string          `json:"user"`
	SubAccountID     string          `json:"subAccountId"`
	CollateralID     uint8           `json:"collateralId"`
	AssetID          uint8           `json:"assetId"`
	ProfitAssetID    uint8           `json:"profitAssetId"`
	Amount           decimal.Decimal `json:"amount"`
	IsLong           bool            `json:"isLong"`
	AssetPrice       decimal.Decimal `json:"assetPrice"`
	CollateralPrice  decimal.Decimal `json:"collateralPrice"`
	ProfitAssetPrice decimal.Decimal `json:"profitAssetPrice"`
	FeeUsd           decimal.Decimal `json:"feeUsd"`
	RemainPosition   decimal.Decimal `json:"remainPosition"`
	RemainCollateral decimal.Decimal `json:"remainCollateral"`
	IsOpen           bool            `json:"isOpen"`
	HasProfit        bool            `json:"hasProfit"`
	PnlUsd           decimal.Decimal `json:"pnlUsd"`
	IsLiquidated     bool            `json:"isLiquidated"`
	// FlashTakeSequence is set when the trade was produced by a flash take.
	FlashTakeSequence *uint64 `json:"flashTakeSequence,omitempty"`
	CreatedAt         int64   `json:"createdAt"`
	BlockNumber       uint64  `json:"blockNumber"`
	TxHash            string  `json:"txHash"`
	LogIndex          uint64  `json:"logIndex"`
}

func (t *PositionTrade) Kind() Kind  { return KindPositionTrade }
func (t *PositionTrade) Key() string { return t.ID }

func NewPositionTrade(id, userID, txHash string, logIndex uint64) *PositionTrade {
	return &PositionTrade{
		ID:               id,
		User:             userID,
		Amount:           decimal.Zero,
		AssetPrice:       decimal.Zero,
		CollateralPrice:  decimal.Zero,
		ProfitAssetPrice: decimal.Zero,
		FeeUsd:           decimal.Zero,
		RemainPosition:   decimal.Zero,
		RemainCollateral: decimal.Zero,
		PnlUsd:           decimal.Zero,
		TxHash:           txHash,
		LogIndex:         logIndex,
	}
}

// LiquidityTrade is written once per add or remove liquidity event.
type LiquidityTrade struct {
	ID          string          `json:"id"`
	User        string          `json:"user"`
	TokenID     uint8           `json:"tokenId"`
	TokenPrice  decimal.Decimal `json:"tokenPrice"`
	MlpPrice    decimal.Decimal `json:"mlpPrice"`
	MlpAmount   decimal.Decimal `json:"mlpAmount"`
	Fee         decimal.Decimal `json:"fee"`
	IsAdd       bool            `json:"isAdd"`
	CreatedAt   int64           `json:"createdAt"`
	BlockNumber uint64          `json:"blockNumber"`
	TxHash      string          `json:"txHash"`
	LogIndex    uint64          `json:"logIndex"`
}

func (t *LiquidityTrade) Kind() Kind  { return KindLiquidityTrade }
func (t *LiquidityTrade) Key() string { return t.ID }

func NewLiquidityTrade(id, userID, txHash string, logIndex uint64) *LiquidityTrade {
	return &LiquidityTrade{
		ID:         id,
		User:       userID,
		TokenPrice: decimal.Zero,
		MlpPrice:   decimal.Zero,
		MlpAmount:  decimal.Zero,
		Fee:        decimal.Zero,
		TxHash:     txHash,
		LogIndex:   logIndex,
	}
}
