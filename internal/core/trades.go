package core

import (
	"context"

	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/event"
	fpmath "PerpIndexer/internal/math"
)

// positionTrade describes how one position event lands on its trade record.
type positionTrade struct {
	meta   event.Metadata
	change event.PositionChange
	isOpen bool
	// correlate stamps the trade with the transaction's flash-take sequence.
	correlate bool
	// fill sets the fields only close-like events carry.
	fill func(*entity.PositionTrade)
}

func (p *Processor) handleOpenPosition(ctx context.Context, e *event.OpenPosition) error {
	return p.applyPositionTrade(ctx, positionTrade{
		meta:      e.Metadata,
		change:    e.PositionChange,
		isOpen:    true,
		correlate: true,
	})
}

func (p *Processor) handleClosePosition(ctx context.Context, e *event.ClosePosition) error {
	return p.applyPositionTrade(ctx, positionTrade{
		meta:      e.Metadata,
		change:    e.PositionChange,
		correlate: true,
		fill: func(t *entity.PositionTrade) {
			t.ProfitAssetID = e.ProfitAssetID
			t.ProfitAssetPrice = fpmath.ConvertProtocol(e.ProfitAssetPrice)
			t.PnlUsd = fpmath.ConvertProtocol(e.PnlUsd)
			t.HasProfit = e.HasProfit
		},
	})
}

func (p *Processor) handleLiquidate(ctx context.Context, e *event.Liquidate) error {
	return p.applyPositionTrade(ctx, positionTrade{
		meta:   e.Metadata,
		change: e.PositionChange,
		fill: func(t *entity.PositionTrade) {
			t.ProfitAssetID = e.ProfitAssetID
			t.ProfitAssetPrice = fpmath.ConvertProtocol(e.ProfitAssetPrice)
			t.PnlUsd = fpmath.ConvertProtocol(e.PnlUsd)
			t.HasProfit = e.HasProfit
			t.IsLiquidated = true
		},
	})
}

// applyPositionTrade writes the trade record and then folds it into the
// sub-account aggregate. Opens add to the running size; closes and
// liquidations subtract. Not safe under redelivery: replaying an event
// applies its amount again.
func (p *Processor) applyPositionTrade(ctx context.Context, pt positionTrade) error {
	c := pt.change
	meta := pt.meta

	user, err := p.repo.FetchUser(ctx, c.Trader)
	if err != nil {
		return err
	}
	trade, err := p.repo.FetchPositionTrade(ctx, user.ID, meta.BlockHash, meta.LogIndex, meta.TxHash)
	if err != nil {
		return err
	}

	amount := fpmath.ConvertProtocol(c.Amount)
	remainCollateral, hasRemainCollateral := fpmath.ConvertOptional(c.RemainCollateral, fpmath.ProtocolDecimals)

	trade.SubAccountID = c.SubAccountID.Key()
	trade.CreatedAt = meta.BlockTimestamp
	trade.CollateralID = c.CollateralID
	trade.AssetID = c.AssetID
	trade.Amount = amount
	trade.IsLong = c.IsLong
	trade.FeeUsd = fpmath.ConvertProtocol(c.FeeUsd)
	trade.AssetPrice = fpmath.ConvertProtocol(c.AssetPrice)
	trade.CollateralPrice = fpmath.ConvertProtocol(c.CollateralPrice)
	if remain, ok := fpmath.ConvertOptional(c.RemainPosition, fpmath.ProtocolDecimals); ok {
		trade.RemainPosition = remain
	}
	if hasRemainCollateral {
		trade.RemainCollateral = remainCollateral
	}
	trade.IsOpen = pt.isOpen
	trade.BlockNumber = meta.BlockNumber
	if pt.fill != nil {
		pt.fill(trade)
	}

	if pt.correlate {
		if err := p.stampFlashTake(ctx, meta.TxHash, trade); err != nil {
			return err
		}
	}
	if err := p.repo.Save(ctx, trade); err != nil {
		return err
	}

	sub, err := p.repo.FetchSubAccount(ctx, trade.SubAccountID, user.ID, meta.BlockTimestamp)
	if err != nil {
		return err
	}
	if pt.isOpen {
		sub.Size = sub.Size.Add(amount)
	} else {
		sub.Size = sub.Size.Sub(amount)
	}
	sub.CollateralID = c.CollateralID
	sub.AssetID = c.AssetID
	sub.IsLong = c.IsLong
	if hasRemainCollateral {
		sub.MarginUsed = remainCollateral
	}

	p.logger.Debug().
		Str("trade", trade.ID).
		Str("sub_account", sub.ID).
		Str("size", sub.Size.String()).
		Bool("open", pt.isOpen).
		Bool("liquidated", trade.IsLiquidated).
		Msg("position trade applied")
	return p.repo.Save(ctx, sub)
}
