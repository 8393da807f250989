package entity

import (
	"github.com/shopspring/decimal"
)

// FlashTakeSequence lives for the duration of one transaction. It is keyed
// by transaction hash and deleted once the flash take resolves.
type FlashTakeSequence struct {
	ID              string `json:"id"`
	Sequence        uint64 `json:"sequence"`
	PositionTradeID string `json:"positionTradeId,omitempty"`
}

func (s *FlashTakeSequence) Kind() Kind  { return KindFlashTakeSequence }
func (s *FlashTakeSequence) Key() string { return s.ID }

func NewFlashTakeSequence(txHash string, sequence uint64) *FlashTakeSequence {
	return &FlashTakeSequence{ID: txHash, Sequence: sequence}
}

// FlashTake is the resolved outcome of a flash take, keyed by sequence.
type FlashTake struct {
	ID            string          `json:"id"`
	User          string          `json:"user"`
	SubAccountID  string          `json:"subAccountId"`
	CollateralID  uint8           `json:"collateralId"`
	AssetID       uint8           `json:"assetId"`
	ProfitAssetID uint8           `json:"profitAssetId"`
	Size          decimal.Decimal `json:"size"`
	Collateral    decimal.Decimal `json:"collateral"`
	GasFee        decimal.Decimal `json:"gasFee"`
	IsLong        bool            `json:"isLong"`
	IsOpen        bool            `json:"isOpen"`
	ErrorMessage  string          `json:"errorMessage"`
	PositionTrade string          `json:"positionTrade,omitempty"`
	CreatedAt     int64           `json:"createdAt"`
	TxHash        string          `json:"txHash"`
	BlockHash     string          `json:"blockHash"`
	BlockNumber   uint64          `json:"blockNumber"`
	LogIndex      uint64          `json:"logIndex"`
}

func (f *FlashTake) Kind() Kind  { return KindFlashTake }
func (f *FlashTake) Key() string { return f.ID }

func NewFlashTake(sequence uint64) *FlashTake {
	return &FlashTake{
		ID:         FlashTakeKey(sequence),
		Size:       decimal.Zero,
		Collateral: decimal.Zero,
		GasFee:     decimal.Zero,
	}
}
