package core

import (
	"context"
	"errors"

	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/event"
	fpmath "PerpIndexer/internal/math"
	"PerpIndexer/internal/observability"
	"PerpIndexer/internal/store"
)

// handleFillingFlashTake starts phase 1: the transaction's sequence record.
func (p *Processor) handleFillingFlashTake(ctx context.Context, e *event.FillingFlashTake) error {
	_, err := p.repo.CreateFlashTakeSequence(ctx, e.TxHash, e.FlashTakeSequence)
	if err != nil {
		return err
	}
	p.logger.Debug().Str("tx", e.TxHash).Uint64("sequence", e.FlashTakeSequence).Msg("flash take sequence opened")
	return nil
}

// stampFlashTake links a trade to the open sequence of its transaction, if
// any. The sequence record is kept for phase 2.
func (p *Processor) stampFlashTake(ctx context.Context, txHash string, trade *entity.PositionTrade) error {
	seq, err := p.repo.LoadFlashTakeSequence(ctx, txHash)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	sequence := seq.Sequence
	trade.FlashTakeSequence = &sequence
	seq.PositionTradeID = trade.ID
	return p.repo.Save(ctx, seq)
}

// handleFillFlashTake runs phase 2. The FlashTake is always written; it is
// linked to the trade named by the transaction's sequence record when that
// trade exists. The sequence record does not outlive this event.
func (p *Processor) handleFillFlashTake(ctx context.Context, e *event.FillFlashTake) error {
	sa := e.SubAccountID.Decode()

	user, err := p.repo.FetchUser(ctx, sa.Account)
	if err != nil {
		return err
	}
	ft, err := p.repo.FetchFlashTake(ctx, e.FlashTakeSequence)
	if err != nil {
		return err
	}
	collateralDecimals, err := p.assetDecimals(ctx, sa.CollateralID)
	if err != nil {
		return err
	}

	ft.SubAccountID = e.SubAccountID.Key()
	ft.User = user.ID
	ft.CollateralID = sa.CollateralID
	ft.AssetID = sa.AssetID
	ft.ProfitAssetID = e.ProfitTokenID
	ft.Size = fpmath.ConvertProtocol(e.Size)
	ft.Collateral = fpmath.ConvertToDecimal(e.Collateral, collateralDecimals)
	ft.GasFee = fpmath.ConvertToDecimal(e.GasFee, collateralDecimals)
	ft.IsLong = sa.IsLong
	ft.IsOpen = e.Flags&entity.PositionFlagOpen != 0
	ft.ErrorMessage = e.ErrorMessage
	ft.CreatedAt = e.BlockTimestamp
	ft.TxHash = e.TxHash
	ft.BlockHash = e.BlockHash
	ft.BlockNumber = e.BlockNumber
	ft.LogIndex = e.LogIndex

	seq, err := p.repo.LoadFlashTakeSequence(ctx, e.TxHash)
	switch {
	case errors.Is(err, store.ErrNotFound):
		p.logger.Debug().Str("tx", e.TxHash).Uint64("sequence", e.FlashTakeSequence).Msg("flash take without tracked sequence")
		return p.repo.Save(ctx, ft)
	case err != nil:
		return err
	}

	if seq.Sequence != e.FlashTakeSequence {
		p.logger.Warn().Str("tx", e.TxHash).Uint64("stored", seq.Sequence).Uint64("sequence", e.FlashTakeSequence).
			Msg("flash take sequence differs from transaction record")
	}
	if err := p.linkFlashTake(ctx, ft, seq); err != nil {
		return err
	}
	if err := p.repo.Save(ctx, ft); err != nil {
		return err
	}
	return p.repo.DeleteFlashTakeSequence(ctx, e.TxHash)
}

func (p *Processor) linkFlashTake(ctx context.Context, ft *entity.FlashTake, seq *entity.FlashTakeSequence) error {
	if seq.PositionTradeID == "" {
		return nil
	}

	trade, err := p.repo.LoadPositionTrade(ctx, seq.PositionTradeID)
	if errors.Is(err, store.ErrNotFound) {
		p.report(observability.MissingReferent, entity.KindPositionTrade, seq.PositionTradeID,
			"flash take names a trade that does not exist")
		return nil
	}
	if err != nil {
		return err
	}
	ft.PositionTrade = trade.ID
	return nil
}
