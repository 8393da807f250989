package core

import (
	"context"

	"PerpIndexer/internal/event"
	fpmath "PerpIndexer/internal/math"
)

func (p *Processor) handleAddAsset(ctx context.Context, e *event.AddAsset) error {
	asset, err := p.repo.FetchAsset(ctx, e.ID)
	if err != nil {
		return err
	}
	asset.Symbol = e.Symbol
	asset.Decimals = uint32(e.Decimals)
	asset.IsStable = e.IsStable
	asset.TokenAddress = e.TokenAddress
	asset.MuxTokenAddress = e.MuxTokenAddress
	asset.Timestamp = e.BlockTimestamp

	p.logger.Debug().Str("asset", asset.ID).Str("symbol", asset.Symbol).Uint32("decimals", asset.Decimals).Msg("asset registered")
	return p.repo.Save(ctx, asset)
}

func (p *Processor) handleSetAssetSymbol(ctx context.Context, e *event.SetAssetSymbol) error {
	asset, err := p.repo.FetchAsset(ctx, e.AssetID)
	if err != nil {
		return err
	}
	asset.Symbol = e.Symbol
	return p.repo.Save(ctx, asset)
}

// handleUpdateFundingRate writes the latest rates into the symbol's
// funding window. Updates within a window overwrite, never sum.
func (p *Processor) handleUpdateFundingRate(ctx context.Context, e *event.UpdateFundingRate) error {
	asset, err := p.repo.FetchAsset(ctx, e.TokenID)
	if err != nil {
		return err
	}

	windowStart := fpmath.FundingWindowStart(e.BlockTimestamp)
	funding, err := p.repo.FetchFunding(ctx, asset.Symbol, windowStart, e.BlockTimestamp)
	if err != nil {
		return err
	}
	funding.LongFundingRate = fpmath.ConvertToDecimal(e.LongFundingRate, fpmath.FundingRateDecimals)
	funding.LongCumulativeFundingRate = fpmath.ConvertProtocol(e.LongCumulativeFundingRate)
	funding.ShortFundingRate = fpmath.ConvertToDecimal(e.ShortFundingRate, fpmath.FundingRateDecimals)
	funding.ShortCumulativeFundingRate = fpmath.ConvertProtocol(e.ShortCumulativeFunding)

	return p.repo.Save(ctx, funding)
}

func (p *Processor) handleAssetPriceOutOfRange(ctx context.Context, e *event.AssetPriceOutOfRange) error {
	p.logger.Warn().
		Uint8("asset", e.AssetID).
		Str("price", fpmath.ConvertProtocol(e.Price).String()).
		Str("reference", fpmath.ConvertProtocol(e.ReferencePrice).String()).
		Msg("asset price out of range")

	price, err := p.repo.FetchPrice(ctx, e.AssetID, e.BlockNumber, e.BlockTimestamp)
	if err != nil {
		return err
	}
	price.Price = fpmath.ConvertProtocol(e.Price)
	price.ReferencePrice = fpmath.ConvertProtocol(e.ReferencePrice)
	price.Deviation = fpmath.ConvertToDecimal(e.Deviation, 0)

	return p.repo.Save(ctx, price)
}
