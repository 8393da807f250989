package core

import (
	"context"

	"PerpIndexer/internal/event"
	fpmath "PerpIndexer/internal/math"
)

// handleLiquidityTrade records one pool add or remove. Liquidity events
// carry no sub-account, so there is no aggregate to update.
func (p *Processor) handleLiquidityTrade(ctx context.Context, meta event.Metadata, c event.LiquidityChange, isAdd bool) error {
	user, err := p.repo.FetchUser(ctx, c.Trader)
	if err != nil {
		return err
	}
	trade, err := p.repo.FetchLiquidityTrade(ctx, user.ID, meta.BlockHash, meta.LogIndex, meta.TxHash)
	if err != nil {
		return err
	}
	tokenDecimals, err := p.assetDecimals(ctx, c.TokenID)
	if err != nil {
		return err
	}

	trade.CreatedAt = meta.BlockTimestamp
	trade.TokenID = c.TokenID
	trade.TokenPrice = fpmath.ConvertToDecimal(c.TokenPrice, tokenDecimals)
	trade.MlpPrice = fpmath.ConvertProtocol(c.MlpPrice)
	trade.MlpAmount = fpmath.ConvertProtocol(c.MlpAmount)
	trade.Fee = fpmath.ConvertProtocol(c.Fee)
	trade.IsAdd = isAdd
	trade.BlockNumber = meta.BlockNumber

	return p.repo.Save(ctx, trade)
}
