package entity

import (
	"github.com/shopspring/decimal"
)

// Funding holds the latest rates observed for a symbol inside one window.
type Funding struct {
	ID                         string          `json:"id"`
	Symbol                     string          `json:"symbol"`
	Timestamp                  int64           `json:"timestamp"` // window start
	CreatedAt                  int64           `json:"createdAt"`
	LongFundingRate            decimal.Decimal `json:"longFundingRate"`
	LongCumulativeFundingRate  decimal.Decimal `json:"longCumulativeFundingRate"`
	ShortFundingRate           decimal.Decimal `json:"shortFundingRate"`
	ShortCumulativeFundingRate decimal.Decimal `json:"shortCumulativeFunding"`
}

func (f *Funding) Kind() Kind  { return KindFunding }
func (f *Funding) Key() string { return f.ID }

func NewFunding(symbol string, windowStart, createdAt int64) *Funding {
	return &Funding{
		ID:                         FundingKey(symbol, windowStart),
		Symbol:                     symbol,
		Timestamp:                  windowStart,
		CreatedAt:                  createdAt,
		LongFundingRate:            decimal.Zero,
		LongCumulativeFundingRate:  decimal.Zero,
		ShortFundingRate:           decimal.Zero,
		ShortCumulativeFundingRate: decimal.Zero,
	}
}

// Price records an oracle price that deviated from its reference.
type Price struct {
	ID             string          `json:"id"`
	AssetID        uint8           `json:"assetId"`
	Price          decimal.Decimal `json:"price"`
	ReferencePrice decimal.Decimal `json:"referencePrice"`
	Deviation      decimal.Decimal `json:"deviation"`
	CreatedAt      int64           `json:"createdAt"`
}

func (p *Price) Kind() Kind  { return KindPrice }
func (p *Price) Key() string { return p.ID }

func NewPrice(assetID uint8, blockNumber uint64, createdAt int64) *Price {
	return &Price{
		ID:             PriceKey(assetID, blockNumber),
		AssetID:        assetID,
		Price:          decimal.Zero,
		ReferencePrice: decimal.Zero,
		Deviation:      decimal.Zero,
		CreatedAt:      createdAt,
	}
}
