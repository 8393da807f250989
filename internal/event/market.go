package event

import (
	"math/big"
)

// AddAsset registers (or re-registers) an asset.
type AddAsset struct {
	Metadata
	ID              uint8
	Symbol          string
	Decimals        uint8
	IsStable        bool
	TokenAddress    string
	MuxTokenAddress string
}

func (e *AddAsset) EventType() EventType { return EventTypeAddAsset }

// SetAssetSymbol renames an asset.
type SetAssetSymbol struct {
	Metadata
	AssetID uint8
	Symbol  string
}

func (e *SetAssetSymbol) EventType() EventType { return EventTypeSetAssetSymbol }

// UpdateFundingRate reports the latest funding rates of an asset.
// Rates carry 5 decimals, cumulative rates the protocol exponent.
type UpdateFundingRate struct {
	Metadata
	TokenID                   uint8
	LongFundingRate           *big.Int
	LongCumulativeFundingRate *big.Int
	ShortFundingRate          *big.Int
	ShortCumulativeFunding    *big.Int
}

func (e *UpdateFundingRate) EventType() EventType { return EventTypeUpdateFundingRate }

// AssetPriceOutOfRange flags an oracle price that deviated from its reference.
type AssetPriceOutOfRange struct {
	Metadata
	AssetID        uint8
	Price          *big.Int
	ReferencePrice *big.Int
	Deviation      *big.Int
}

func (e *AssetPriceOutOfRange) EventType() EventType { return EventTypeAssetPriceOutOfRange }
