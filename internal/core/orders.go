package core

import (
	"context"

	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/event"
	fpmath "PerpIndexer/internal/math"
	"PerpIndexer/internal/observability"
	"PerpIndexer/internal/subaccount"
)

// alreadyFinished reports a submission that arrived after its order was
// finished. Submission fields are only writable while the order is open.
func (p *Processor) alreadyFinished(order entity.Order) bool {
	if !order.OrderLifecycle().IsFinish {
		return false
	}
	p.report(observability.Preexisting, order.Kind(), order.Key(), "order already finished, ignoring submission")
	return true
}

func (p *Processor) handleNewPositionOrder(ctx context.Context, e *event.NewPositionOrder) error {
	sa := e.SubAccountID.Decode()

	user, err := p.repo.FetchUser(ctx, sa.Account)
	if err != nil {
		return err
	}
	order, err := p.repo.FetchPositionOrder(ctx, e.OrderID, user.ID)
	if err != nil {
		return err
	}
	if p.alreadyFinished(order) {
		return nil
	}
	collateralDecimals, err := p.assetDecimals(ctx, sa.CollateralID)
	if err != nil {
		return err
	}

	order.SubAccountID = e.SubAccountID.Key()
	order.CollateralID = sa.CollateralID
	order.AssetID = sa.AssetID
	order.ProfitTokenID = e.ProfitTokenID
	order.Collateral = fpmath.ConvertToDecimal(e.Collateral, collateralDecimals)
	order.Size = fpmath.ConvertProtocol(e.Size)
	order.Price = fpmath.ConvertProtocol(e.Price)
	order.SetFlags(e.Flags)
	order.IsLong = sa.IsLong
	order.IsFinish = false
	order.IsFilled = false
	order.CreatedAt = e.BlockTimestamp
	order.TxHash = e.TxHash
	order.Deadline = e.Deadline

	return p.repo.Save(ctx, order)
}

// withdrawalAsset picks the asset whose decimals the withdrawn amount uses:
// profit on a long is paid in the position asset, profit on a short in the
// profit token, and collateral withdrawals in the collateral asset.
func withdrawalAsset(sa subaccount.SubAccount, isProfit bool, profitTokenID uint8) uint8 {
	if !isProfit {
		return sa.CollateralID
	}
	if sa.IsLong {
		return sa.AssetID
	}
	return profitTokenID
}

func (p *Processor) handleNewWithdrawalOrder(ctx context.Context, e *event.NewWithdrawalOrder) error {
	sa := e.SubAccountID.Decode()

	user, err := p.repo.FetchUser(ctx, sa.Account)
	if err != nil {
		return err
	}
	order, err := p.repo.FetchWithdrawalOrder(ctx, e.OrderID, user.ID)
	if err != nil {
		return err
	}
	if p.alreadyFinished(order) {
		return nil
	}
	decimals, err := p.assetDecimals(ctx, withdrawalAsset(sa, e.IsProfit, e.ProfitTokenID))
	if err != nil {
		return err
	}

	order.SubAccountID = e.SubAccountID.Key()
	order.Amount = fpmath.ConvertToDecimal(e.RawAmount, decimals)
	order.CollateralID = sa.CollateralID
	order.AssetID = sa.AssetID
	order.ProfitTokenID = e.ProfitTokenID
	order.IsLong = sa.IsLong
	order.IsProfit = e.IsProfit
	order.IsFinish = false
	order.IsFilled = false
	order.CreatedAt = e.BlockTimestamp
	order.TxHash = e.TxHash

	return p.repo.Save(ctx, order)
}

func (p *Processor) handleNewLiquidityOrder(ctx context.Context, e *event.NewLiquidityOrder) error {
	user, err := p.repo.FetchUser(ctx, e.Account)
	if err != nil {
		return err
	}
	order, err := p.repo.FetchLiquidityOrder(ctx, e.OrderID, user.ID)
	if err != nil {
		return err
	}
	if p.alreadyFinished(order) {
		return nil
	}

	// Adding is denominated in the deposited asset, removing in pool shares.
	decimals := fpmath.ProtocolDecimals
	if e.IsAdding {
		if decimals, err = p.assetDecimals(ctx, e.AssetID); err != nil {
			return err
		}
	}

	order.AssetID = e.AssetID
	order.Amount = fpmath.ConvertToDecimal(e.RawAmount, decimals)
	order.IsAdding = e.IsAdding
	order.IsFinish = false
	order.IsFilled = false
	order.CreatedAt = e.BlockTimestamp
	order.TxHash = e.TxHash

	return p.repo.Save(ctx, order)
}

func (p *Processor) handleNewRebalanceOrder(ctx context.Context, e *event.NewRebalanceOrder) error {
	order, err := p.repo.FetchRebalanceOrder(ctx, e.OrderID, e.Rebalancer)
	if err != nil {
		return err
	}
	if p.alreadyFinished(order) {
		return nil
	}

	order.TokenID0 = e.TokenID0
	order.TokenID1 = e.TokenID1
	order.RawAmount0 = fpmath.ConvertProtocol(e.RawAmount0)
	order.MaxRawAmount1 = fpmath.ConvertProtocol(e.MaxRawAmount1)
	order.UserData = e.UserData
	order.CreatedAt = e.BlockTimestamp
	order.TxHash = e.TxHash

	return p.repo.Save(ctx, order)
}
