package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/event"
	"PerpIndexer/internal/observability"
	"PerpIndexer/internal/repository"
	"PerpIndexer/internal/store"
)

// Processor derives entity state from events. It handles one event at a
// time; callers must not invoke Handle concurrently.
type Processor struct {
	repo      *repository.Repository
	anomalies *observability.AnomalyReporter
	metrics   *observability.Metrics
	logger    zerolog.Logger

	lastBlock atomic.Uint64
}

// NewProcessor wires a processor. anomalies and metrics may be nil.
func NewProcessor(
	repo *repository.Repository,
	anomalies *observability.AnomalyReporter,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Processor {
	return &Processor{
		repo:      repo,
		anomalies: anomalies,
		metrics:   metrics,
		logger:    logger,
	}
}

// Handle dispatches ev to its handler. Anomalies are reported, not
// returned; a non-nil error means the store failed and the event should be
// retried.
func (p *Processor) Handle(ctx context.Context, ev event.Event) error {
	start := time.Now()
	eventType := ev.EventType().String()
	meta := ev.Meta()

	p.logger.Debug().
		Str("event_type", eventType).
		Uint64("block", meta.BlockNumber).
		Str("tx", meta.TxHash).
		Uint64("log_index", meta.LogIndex).
		Msg("handling event")

	err := p.dispatch(ctx, ev)

	if p.metrics != nil {
		p.metrics.EventsHandled.WithLabelValues(eventType).Inc()
		p.metrics.EventDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
		if err != nil {
			p.metrics.EventsFailed.WithLabelValues(eventType).Inc()
		} else {
			p.metrics.LastBlock.Set(float64(meta.BlockNumber))
		}
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", eventType, ev.IdempotencyKey(), err)
	}
	p.lastBlock.Store(meta.BlockNumber)
	return nil
}

// LastBlock is the block number of the most recently applied event. Safe
// to call from any goroutine.
func (p *Processor) LastBlock() uint64 {
	return p.lastBlock.Load()
}

func (p *Processor) dispatch(ctx context.Context, ev event.Event) error {
	switch e := ev.(type) {
	case *event.NewPositionOrder:
		return p.handleNewPositionOrder(ctx, e)
	case *event.NewWithdrawalOrder:
		return p.handleNewWithdrawalOrder(ctx, e)
	case *event.NewLiquidityOrder:
		return p.handleNewLiquidityOrder(ctx, e)
	case *event.NewRebalanceOrder:
		return p.handleNewRebalanceOrder(ctx, e)
	case *event.FillOrder:
		return p.FinishOrder(ctx, e.OrderID, e.OrderType, true, e.BlockTimestamp)
	case *event.CancelOrder:
		return p.FinishOrder(ctx, e.OrderID, e.OrderType, false, e.BlockTimestamp)
	case *event.AddAsset:
		return p.handleAddAsset(ctx, e)
	case *event.SetAssetSymbol:
		return p.handleSetAssetSymbol(ctx, e)
	case *event.UpdateFundingRate:
		return p.handleUpdateFundingRate(ctx, e)
	case *event.AddLiquidity:
		return p.handleLiquidityTrade(ctx, e.Metadata, e.LiquidityChange, true)
	case *event.RemoveLiquidity:
		return p.handleLiquidityTrade(ctx, e.Metadata, e.LiquidityChange, false)
	case *event.OpenPosition:
		return p.handleOpenPosition(ctx, e)
	case *event.ClosePosition:
		return p.handleClosePosition(ctx, e)
	case *event.Liquidate:
		return p.handleLiquidate(ctx, e)
	case *event.AssetPriceOutOfRange:
		return p.handleAssetPriceOutOfRange(ctx, e)
	case *event.FillingFlashTake:
		return p.handleFillingFlashTake(ctx, e)
	case *event.FillFlashTake:
		return p.handleFillFlashTake(ctx, e)
	default:
		return fmt.Errorf("unsupported event %T", ev)
	}
}

func (p *Processor) report(class observability.AnomalyClass, kind entity.Kind, key, detail string) {
	p.anomalies.Report(observability.Anomaly{
		Class:  class,
		Entity: kind.String(),
		Key:    key,
		Detail: detail,
	})
}

// assetDecimals returns the registered precision of an asset. An
// unregistered asset is reported and converts with zero decimals.
func (p *Processor) assetDecimals(ctx context.Context, assetID uint8) (uint32, error) {
	asset, err := p.repo.LoadAsset(ctx, assetID)
	if errors.Is(err, store.ErrNotFound) {
		p.report(observability.MissingReferent, entity.KindAsset, entity.AssetKey(assetID), "asset not registered, using 0 decimals")
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return asset.Decimals, nil
}
