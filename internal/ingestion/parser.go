package ingestion

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"PerpIndexer/internal/event"
	"PerpIndexer/internal/subaccount"
)

// ParseRawEvent converts a RawEvent (JSON bytes + event type) into a typed
// event.Event. Contract violations (bad hex, sub-account ids that are not
// 32 bytes, malformed integers) are rejected here so the core only sees
// well-formed input.
func ParseRawEvent(raw RawEvent, eventType event.EventType) (event.Event, error) {
	switch eventType {
	case event.EventTypeNewPositionOrder:
		return parseNewPositionOrder(raw.Data)
	case event.EventTypeNewWithdrawalOrder:
		return parseNewWithdrawalOrder(raw.Data)
	case event.EventTypeNewLiquidityOrder:
		return parseNewLiquidityOrder(raw.Data)
	case event.EventTypeNewRebalanceOrder:
		return parseNewRebalanceOrder(raw.Data)
	case event.EventTypeFillOrder:
		return parseFillOrder(raw.Data)
	case event.EventTypeCancelOrder:
		return parseCancelOrder(raw.Data)
	case event.EventTypeAddAsset:
		return parseAddAsset(raw.Data)
	case event.EventTypeSetAssetSymbol:
		return parseSetAssetSymbol(raw.Data)
	case event.EventTypeUpdateFundingRate:
		return parseUpdateFundingRate(raw.Data)
	case event.EventTypeAddLiquidity:
		return parseAddLiquidity(raw.Data)
	case event.EventTypeRemoveLiquidity:
		return parseRemoveLiquidity(raw.Data)
	case event.EventTypeOpenPosition:
		return parseOpenPosition(raw.Data)
	case event.EventTypeClosePosition:
		return parseClosePosition(raw.Data)
	case event.EventTypeLiquidate:
		return parseLiquidate(raw.Data)
	case event.EventTypeAssetPriceOutOfRange:
		return parseAssetPriceOutOfRange(raw.Data)
	case event.EventTypeFillingFlashTake:
		return parseFillingFlashTake(raw.Data)
	case event.EventTypeFillFlashTake:
		return parseFillFlashTake(raw.Data)
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}

// --- Field decoding ---

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

const hashSize = 32

// fields decodes wire strings and keeps the first error, so a parser can
// convert every field and check once.
type fields struct {
	err error
}

func (f *fields) fail(format string, args ...any) {
	if f.err == nil {
		f.err = fmt.Errorf(format, args...)
	}
}

// uint256 parses a base-10 unsigned integer of at most 256 bits.
func (f *fields) uint256(name, s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		f.fail("%s: invalid integer %q", name, s)
		return new(big.Int)
	}
	if v.Sign() < 0 || v.Cmp(maxUint256) > 0 {
		f.fail("%s: %s out of uint256 range", name, s)
		return new(big.Int)
	}
	return v
}

// optUint256 is uint256 for fields legacy events omit.
func (f *fields) optUint256(name string, s *string) *big.Int {
	if s == nil {
		return nil
	}
	return f.uint256(name, *s)
}

func (f *fields) address(name, s string) string {
	addr, err := subaccount.NormalizeAddress(s)
	if err != nil {
		f.fail("%s: %v", name, err)
	}
	return addr
}

func (f *fields) subAccount(name, s string) subaccount.ID {
	id, err := subaccount.Parse(s)
	if err != nil {
		f.fail("%s: %v", name, err)
	}
	return id
}

// bytes validates arbitrary-length hex and returns its canonical form.
func (f *fields) bytes(name, s string) []byte {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil {
		f.fail("%s: %v", name, err)
	}
	return b
}

func (f *fields) hash(name, s string) string {
	b := f.bytes(name, s)
	if f.err == nil && len(b) != hashSize {
		f.fail("%s: must be %d bytes, got %d", name, hashSize, len(b))
	}
	return subaccount.FormatHex(b)
}

// --- JSON wire formats ---
// These structs represent the JSON payloads received from NATS.
// Field names use snake_case to match upstream producers. uint256 values
// travel as decimal strings.

type metadataJSON struct {
	BlockNumber    uint64 `json:"block_number"`
	BlockHash      string `json:"block_hash"`
	BlockTimestamp int64  `json:"block_timestamp"`
	TxHash         string `json:"tx_hash"`
	TxIndex        uint64 `json:"tx_index"`
	LogIndex       uint64 `json:"log_index"`
}

func (m metadataJSON) decode(f *fields) event.Metadata {
	return event.Metadata{
		BlockNumber:    m.BlockNumber,
		BlockHash:      f.hash("block_hash", m.BlockHash),
		BlockTimestamp: m.BlockTimestamp,
		TxHash:         f.hash("tx_hash", m.TxHash),
		TxIndex:        m.TxIndex,
		LogIndex:       m.LogIndex,
	}
}

func unmarshal(data []byte, name string, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

func finish[T event.Event](name string, ev T, f *fields) (T, error) {
	if f.err != nil {
		var zero T
		return zero, fmt.Errorf("parse %s: %w", name, f.err)
	}
	return ev, nil
}

// --- Orders ---

type newPositionOrderJSON struct {
	metadataJSON
	SubAccountID  string `json:"sub_account_id"`
	OrderID       uint64 `json:"order_id"`
	Collateral    string `json:"collateral"`
	Size          string `json:"size"`
	Price         string `json:"price"`
	ProfitTokenID uint8  `json:"profit_token_id"`
	Flags         uint8  `json:"flags"`
	Deadline      uint32 `json:"deadline"`
}

func parseNewPositionOrder(data []byte) (*event.NewPositionOrder, error) {
	var j newPositionOrderJSON
	if err := unmarshal(data, "NewPositionOrder", &j); err != nil {
		return nil, err
	}
	var f fields
	return finish("NewPositionOrder", &event.NewPositionOrder{
		Metadata:      j.decode(&f),
		SubAccountID:  f.subAccount("sub_account_id", j.SubAccountID),
		OrderID:       j.OrderID,
		Collateral:    f.uint256("collateral", j.Collateral),
		Size:          f.uint256("size", j.Size),
		Price:         f.uint256("price", j.Price),
		ProfitTokenID: j.ProfitTokenID,
		Flags:         j.Flags,
		Deadline:      j.Deadline,
	}, &f)
}

type newWithdrawalOrderJSON struct {
	metadataJSON
	SubAccountID  string `json:"sub_account_id"`
	OrderID       uint64 `json:"order_id"`
	RawAmount     string `json:"raw_amount"`
	ProfitTokenID uint8  `json:"profit_token_id"`
	IsProfit      bool   `json:"is_profit"`
}

func parseNewWithdrawalOrder(data []byte) (*event.NewWithdrawalOrder, error) {
	var j newWithdrawalOrderJSON
	if err := unmarshal(data, "NewWithdrawalOrder", &j); err != nil {
		return nil, err
	}
	var f fields
	return finish("NewWithdrawalOrder", &event.NewWithdrawalOrder{
		Metadata:      j.decode(&f),
		SubAccountID:  f.subAccount("sub_account_id", j.SubAccountID),
		OrderID:       j.OrderID,
		RawAmount:     f.uint256("raw_amount", j.RawAmount),
		ProfitTokenID: j.ProfitTokenID,
		IsProfit:      j.IsProfit,
	}, &f)
}

type newLiquidityOrderJSON struct {
	metadataJSON
	Account   string `json:"account"`
	OrderID   uint64 `json:"order_id"`
	AssetID   uint8  `json:"asset_id"`
	RawAmount string `json:"raw_amount"`
	IsAdding  bool   `json:"is_adding"`
}

func parseNewLiquidityOrder(data []byte) (*event.NewLiquidityOrder, error) {
	var j newLiquidityOrderJSON
	if err := unmarshal(data, "NewLiquidityOrder", &j); err != nil {
		return nil, err
	}
	var f fields
	return finish("NewLiquidityOrder", &event.NewLiquidityOrder{
		Metadata:  j.decode(&f),
		Account:   f.address("account", j.Account),
		OrderID:   j.OrderID,
		AssetID:   j.AssetID,
		RawAmount: f.uint256("raw_amount", j.RawAmount),
		IsAdding:  j.IsAdding,
	}, &f)
}

type newRebalanceOrderJSON struct {
	metadataJSON
	Rebalancer    string `json:"rebalancer"`
	OrderID       uint64 `json:"order_id"`
	TokenID0      uint8  `json:"token_id0"`
	TokenID1      uint8  `json:"token_id1"`
	RawAmount0    string `json:"raw_amount0"`
	MaxRawAmount1 string `json:"max_raw_amount1"`
	UserData      string `json:"user_data"`
}

func parseNewRebalanceOrder(data []byte) (*event.NewRebalanceOrder, error) {
	var j newRebalanceOrderJSON
	if err := unmarshal(data, "NewRebalanceOrder", &j); err != nil {
		return nil, err
	}
	var f fields
	return finish("NewRebalanceOrder", &event.NewRebalanceOrder{
		Metadata:      j.decode(&f),
		Rebalancer:    f.address("rebalancer", j.Rebalancer),
		OrderID:       j.OrderID,
		TokenID0:      j.TokenID0,
		TokenID1:      j.TokenID1,
		RawAmount0:    f.uint256("raw_amount0", j.RawAmount0),
		MaxRawAmount1: f.uint256("max_raw_amount1", j.MaxRawAmount1),
		UserData:      subaccount.FormatHex(f.bytes("user_data", j.UserData)),
	}, &f)
}

type finishOrderJSON struct {
	metadataJSON
	OrderID   uint64 `json:"order_id"`
	OrderType uint8  `json:"order_type"`
}

func parseFillOrder(data []byte) (*event.FillOrder, error) {
	var j finishOrderJSON
	if err := unmarshal(data, "FillOrder", &j); err != nil {
		return nil, err
	}
	var f fields
	return finish("FillOrder", &event.FillOrder{
		Metadata:  j.decode(&f),
		OrderID:   j.OrderID,
		OrderType: j.OrderType,
	}, &f)
}

func parseCancelOrder(data []byte) (*event.CancelOrder, error) {
	var j finishOrderJSON
	if err := unmarshal(data, "CancelOrder", &j); err != nil {
		return nil, err
	}
	var f fields
	return finish("CancelOrder", &event.CancelOrder{
		Metadata:  j.decode(&f),
		OrderID:   j.OrderID,
		OrderType: j.OrderType,
	}, &f)
}

// --- Assets and funding ---

type addAssetJSON struct {
	metadataJSON
	ID              uint8  `json:"id"`
	Symbol          string `json:"symbol"`
	Decimals        uint8  `json:"decimals"`
	IsStable        bool   `json:"is_stable"`
	TokenAddress    string `json:"token_address"`
	MuxTokenAddress string `json:"mux_token_address"`
}

func parseAddAsset(data []byte) (*event.AddAsset, error) {
	var j addAssetJSON
	if err := unmarshal(data, "AddAsset", &j); err != nil {
		return nil, err
	}
	var f fields
	return finish("AddAsset", &event.AddAsset{
		Metadata:        j.decode(&f),
		ID:              j.ID,
		Symbol:          j.Symbol,
		Decimals:        j.Decimals,
		IsStable:        j.IsStable,
		TokenAddress:    f.address("token_address", j.TokenAddress),
		MuxTokenAddress: f.address("mux_token_address", j.MuxTokenAddress),
	}, &f)
}

type setAssetSymbolJSON struct {
	metadataJSON
	AssetID uint8  `json:"asset_id"`
	Symbol  string `json:"symbol"`
}

func parseSetAssetSymbol(data []byte) (*event.SetAssetSymbol, error) {
	var j setAssetSymbolJSON
	if err := unmarshal(data, "SetAssetSymbol", &j); err != nil {
		return nil, err
	}
	var f fields
	return finish("SetAssetSymbol", &event.SetAssetSymbol{
		Metadata: j.decode(&f),
		AssetID:  j.AssetID,
		Symbol:   j.Symbol,
	}, &f)
}

type updateFundingRateJSON struct {
	metadataJSON
	TokenID                   uint8  `json:"token_id"`
	LongFundingRate           string `json:"long_funding_rate"`
	LongCumulativeFundingRate string `json:"long_cumulative_funding_rate"`
	ShortFundingRate          string `json:"short_funding_rate"`
	ShortCumulativeFunding    string `json:"short_cumulative_funding"`
}

func parseUpdateFundingRate(data []byte) (*event.UpdateFundingRate, error) {
	var j updateFundingRateJSON
	if err := unmarshal(data, "UpdateFundingRate", &j); err != nil {
		return nil, err
	}
	var f fields
	return finish("UpdateFundingRate", &event.UpdateFundingRate{
		Metadata:                  j.decode(&f),
		TokenID:                   j.TokenID,
		LongFundingRate:           f.uint256("long_funding_rate", j.LongFundingRate),
		LongCumulativeFundingRate: f.uint256("long_cumulative_funding_rate", j.LongCumulativeFundingRate),
		ShortFundingRate:          f.uint256("short_funding_rate", j.ShortFundingRate),
		ShortCumulativeFunding:    f.uint256("short_cumulative_funding", j.ShortCumulativeFunding),
	}, &f)
}

type assetPriceOutOfRangeJSON struct {
	metadataJSON
	AssetID        uint8  `json:"asset_id"`
	Price          string `json:"price"`
	ReferencePrice string `json:"reference_price"`
	Deviation      string `json:"deviation"`
}

func parseAssetPriceOutOfRange(data []byte) (*event.AssetPriceOutOfRange, error) {
	var j assetPriceOutOfRangeJSON
	if err := unmarshal(data, "AssetPriceOutOfRange", &j); err != nil {
		return nil, err
	}
	var f fields
	return finish("AssetPriceOutOfRange", &event.AssetPriceOutOfRange{
		Metadata:       j.decode(&f),
		AssetID:        j.AssetID,
		Price:          f.uint256("price", j.Price),
		ReferencePrice: f.uint256("reference_price", j.ReferencePrice),
		Deviation:      f.uint256("deviation", j.Deviation),
	}, &f)
}

// --- Liquidity ---

type liquidityChangeJSON struct {
	metadataJSON
	Trader     string `json:"trader"`
	TokenID    uint8  `json:"token_id"`
	TokenPrice string `json:"token_price"`
	MlpPrice   string `json:"mlp_price"`
	MlpAmount  string `json:"mlp_amount"`
	Fee        string `json:"fee"`
}

func (j liquidityChangeJSON) change(f *fields) event.LiquidityChange {
	return event.LiquidityChange{
		Trader:     f.address("trader", j.Trader),
		TokenID:    j.TokenID,
		TokenPrice: f.uint256("token_price", j.TokenPrice),
		MlpPrice:   f.uint256("mlp_price", j.MlpPrice),
		MlpAmount:  f.uint256("mlp_amount", j.MlpAmount),
		Fee:        f.uint256("fee", j.Fee),
	}
}

func parseAddLiquidity(data []byte) (*event.AddLiquidity, error) {
	var j liquidityChangeJSON
	if err := unmarshal(data, "AddLiquidity", &j); err != nil {
		return nil, err
	}
	var f fields
	return finish("AddLiquidity", &event.AddLiquidity{
		Metadata:        j.decode(&f),
		LiquidityChange: j.change(&f),
	}, &f)
}

func parseRemoveLiquidity(data []byte) (*event.RemoveLiquidity, error) {
	var j liquidityChangeJSON
	if err := unmarshal(data, "RemoveLiquidity", &j); err != nil {
		return nil, err
	}
	var f fields
	return finish("RemoveLiquidity", &event.RemoveLiquidity{
		Metadata:        j.decode(&f),
		LiquidityChange: j.change(&f),
	}, &f)
}

// --- Positions ---

// positionChangeJSON is shared by open, close and liquidate. remain_* are
// absent in legacy events.
type positionChangeJSON struct {
	metadataJSON
	Trader           string  `json:"trader"`
	AssetID          uint8   `json:"asset_id"`
	SubAccountID     string  `json:"sub_account_id"`
	CollateralID     uint8   `json:"collateral_id"`
	IsLong           bool    `json:"is_long"`
	Amount           string  `json:"amount"`
	AssetPrice       string  `json:"asset_price"`
	CollateralPrice  string  `json:"collateral_price"`
	FeeUsd           string  `json:"fee_usd"`
	RemainPosition   *string `json:"remain_position"`
	RemainCollateral *string `json:"remain_collateral"`
}

func (j positionChangeJSON) change(f *fields) event.PositionChange {
	return event.PositionChange{
		Trader:           f.address("trader", j.Trader),
		AssetID:          j.AssetID,
		SubAccountID:     f.subAccount("sub_account_id", j.SubAccountID),
		CollateralID:     j.CollateralID,
		IsLong:           j.IsLong,
		Amount:           f.uint256("amount", j.Amount),
		AssetPrice:       f.uint256("asset_price", j.AssetPrice),
		CollateralPrice:  f.uint256("collateral_price", j.CollateralPrice),
		FeeUsd:           f.uint256("fee_usd", j.FeeUsd),
		RemainPosition:   f.optUint256("remain_position", j.RemainPosition),
		RemainCollateral: f.optUint256("remain_collateral", j.RemainCollateral),
	}
}

type closePositionJSON struct {
	positionChangeJSON
	ProfitAssetID    uint8  `json:"profit_asset_id"`
	ProfitAssetPrice string `json:"profit_asset_price"`
	PnlUsd           string `json:"pnl_usd"`
	HasProfit        bool   `json:"has_profit"`
}

func parseOpenPosition(data []byte) (*event.OpenPosition, error) {
	var j positionChangeJSON
	if err := unmarshal(data, "OpenPosition", &j); err != nil {
		return nil, err
	}
	var f fields
	return finish("OpenPosition", &event.OpenPosition{
		Metadata:       j.decode(&f),
		PositionChange: j.change(&f),
	}, &f)
}

func parseClosePosition(data []byte) (*event.ClosePosition, error) {
	var j closePositionJSON
	if err := unmarshal(data, "ClosePosition", &j); err != nil {
		return nil, err
	}
	var f fields
	return finish("ClosePosition", &event.ClosePosition{
		Metadata:         j.decode(&f),
		PositionChange:   j.change(&f),
		ProfitAssetID:    j.ProfitAssetID,
		ProfitAssetPrice: f.uint256("profit_asset_price", j.ProfitAssetPrice),
		PnlUsd:           f.uint256("pnl_usd", j.PnlUsd),
		HasProfit:        j.HasProfit,
	}, &f)
}

func parseLiquidate(data []byte) (*event.Liquidate, error) {
	var j closePositionJSON
	if err := unmarshal(data, "Liquidate", &j); err != nil {
		return nil, err
	}
	var f fields
	return finish("Liquidate", &event.Liquidate{
		Metadata:         j.decode(&f),
		PositionChange:   j.change(&f),
		ProfitAssetID:    j.ProfitAssetID,
		ProfitAssetPrice: f.uint256("profit_asset_price", j.ProfitAssetPrice),
		PnlUsd:           f.uint256("pnl_usd", j.PnlUsd),
		HasProfit:        j.HasProfit,
	}, &f)
}

// --- Flash take ---

type fillingFlashTakeJSON struct {
	metadataJSON
	FlashTakeSequence uint64 `json:"flash_take_sequence"`
}

func parseFillingFlashTake(data []byte) (*event.FillingFlashTake, error) {
	var j fillingFlashTakeJSON
	if err := unmarshal(data, "FillingFlashTake", &j); err != nil {
		return nil, err
	}
	var f fields
	return finish("FillingFlashTake", &event.FillingFlashTake{
		Metadata:          j.decode(&f),
		FlashTakeSequence: j.FlashTakeSequence,
	}, &f)
}

type fillFlashTakeJSON struct {
	metadataJSON
	SubAccountID      string `json:"sub_account_id"`
	FlashTakeSequence uint64 `json:"flash_take_sequence"`
	ProfitTokenID     uint8  `json:"profit_token_id"`
	Size              string `json:"size"`
	Collateral        string `json:"collateral"`
	GasFee            string `json:"gas_fee"`
	Flags             uint8  `json:"flags"`
	ErrorMessage      string `json:"error_message"`
}

func parseFillFlashTake(data []byte) (*event.FillFlashTake, error) {
	var j fillFlashTakeJSON
	if err := unmarshal(data, "FillFlashTake", &j); err != nil {
		return nil, err
	}
	var f fields
	return finish("FillFlashTake", &event.FillFlashTake{
		Metadata:          j.decode(&f),
		SubAccountID:      f.subAccount("sub_account_id", j.SubAccountID),
		FlashTakeSequence: j.FlashTakeSequence,
		ProfitTokenID:     j.ProfitTokenID,
		Size:              f.uint256("size", j.Size),
		Collateral:        f.uint256("collateral", j.Collateral),
		GasFee:            f.uint256("gas_fee", j.GasFee),
		Flags:             j.Flags,
		ErrorMessage:      j.ErrorMessage,
	}, &f)
}
