package entity

import (
	"strconv"
)

// AddressZero is the default for unset token addresses.
const AddressZero = "0x0000000000000000000000000000000000000000"

// AssetKey is the decimal asset id.
func AssetKey(assetID uint8) string {
	return strconv.FormatUint(uint64(assetID), 10)
}

// OrderKey is the decimal order id shared by all four order tables.
func OrderKey(orderID uint64) string {
	return strconv.FormatUint(orderID, 10)
}

// TradeKey identifies a position or liquidity trade: blockHash-logIndex-user.
func TradeKey(blockHash string, logIndex uint64, userID string) string {
	return blockHash + "-" + strconv.FormatUint(logIndex, 10) + "-" + userID
}

// FundingKey is symbol-windowStart.
func FundingKey(symbol string, windowStart int64) string {
	return symbol + "-" + strconv.FormatInt(windowStart, 10)
}

// PriceKey is assetId-blockNumber.
func PriceKey(assetID uint8, blockNumber uint64) string {
	return AssetKey(assetID) + "-" + strconv.FormatUint(blockNumber, 10)
}

// FlashTakeKey is the decimal flash-take sequence number.
func FlashTakeKey(sequence uint64) string {
	return strconv.FormatUint(sequence, 10)
}
