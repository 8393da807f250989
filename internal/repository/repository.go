// Package repository resolves entities by key over a store.Store.
//
// Fetch* is get-or-create: on a miss it builds the kind's default record,
// persists it immediately and returns it. Load* never creates and reports
// absence as store.ErrNotFound.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/observability"
	"PerpIndexer/internal/store"
)

// Repository is safe for use by one event loop at a time.
type Repository struct {
	store     store.Store
	anomalies *observability.AnomalyReporter
	logger    zerolog.Logger
}

// New creates a repository. anomalies may be nil.
func New(s store.Store, anomalies *observability.AnomalyReporter, logger zerolog.Logger) *Repository {
	return &Repository{store: s, anomalies: anomalies, logger: logger}
}

// Save persists rec.
func (r *Repository) Save(ctx context.Context, rec entity.Record) error {
	return r.store.Save(ctx, rec)
}

// fetch loads the record produced by newDefault's key, or saves and returns
// the default. When expectNew is set a hit is reported as a pre-existing
// record; the stored record is still returned unchanged.
func fetch[T entity.Record](ctx context.Context, r *Repository, newDefault func() T, expectNew bool) (T, error) {
	rec := newDefault()
	kind, key := rec.Kind(), rec.Key()

	existing := newDefault()
	err := r.store.Load(ctx, kind, key, existing)
	switch {
	case err == nil:
		if expectNew {
			r.anomalies.Report(observability.Anomaly{
				Class:  observability.Preexisting,
				Entity: kind.String(),
				Key:    key,
				Detail: "record already exists",
			})
		}
		return existing, nil
	case errors.Is(err, store.ErrNotFound):
		if err := r.store.Save(ctx, rec); err != nil {
			var zero T
			return zero, fmt.Errorf("create %s %q: %w", kind, key, err)
		}
		r.logger.Debug().Str("kind", kind.String()).Str("key", key).Msg("created default record")
		return rec, nil
	default:
		var zero T
		return zero, fmt.Errorf("load %s %q: %w", kind, key, err)
	}
}

// load decodes (kind, key) into dst, passing store.ErrNotFound through.
func load(ctx context.Context, r *Repository, kind entity.Kind, key string, dst entity.Record) error {
	err := r.store.Load(ctx, kind, key, dst)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("load %s %q: %w", kind, key, err)
	}
	return err
}

func (r *Repository) FetchUser(ctx context.Context, address string) (*entity.User, error) {
	return fetch(ctx, r, func() *entity.User { return entity.NewUser(address) }, false)
}

func (r *Repository) FetchAsset(ctx context.Context, assetID uint8) (*entity.Asset, error) {
	return fetch(ctx, r, func() *entity.Asset { return entity.NewAsset(entity.AssetKey(assetID)) }, false)
}

// LoadAsset reads a registered asset without creating it.
func (r *Repository) LoadAsset(ctx context.Context, assetID uint8) (*entity.Asset, error) {
	a := &entity.Asset{}
	if err := load(ctx, r, entity.KindAsset, entity.AssetKey(assetID), a); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *Repository) FetchPositionOrder(ctx context.Context, orderID uint64, userID string) (*entity.PositionOrder, error) {
	return fetch(ctx, r, func() *entity.PositionOrder {
		return entity.NewPositionOrder(entity.OrderKey(orderID), userID)
	}, false)
}

func (r *Repository) FetchWithdrawalOrder(ctx context.Context, orderID uint64, userID string) (*entity.WithdrawalOrder, error) {
	return fetch(ctx, r, func() *entity.WithdrawalOrder {
		return entity.NewWithdrawalOrder(entity.OrderKey(orderID), userID)
	}, false)
}

func (r *Repository) FetchLiquidityOrder(ctx context.Context, orderID uint64, userID string) (*entity.LiquidityOrder, error) {
	return fetch(ctx, r, func() *entity.LiquidityOrder {
		return entity.NewLiquidityOrder(entity.OrderKey(orderID), userID)
	}, false)
}

func (r *Repository) FetchRebalanceOrder(ctx context.Context, orderID uint64, rebalancer string) (*entity.RebalanceOrder, error) {
	return fetch(ctx, r, func() *entity.RebalanceOrder {
		return entity.NewRebalanceOrder(entity.OrderKey(orderID), rebalancer)
	}, false)
}

// LoadOrder reads an order of the given kind into dst without creating it.
func (r *Repository) LoadOrder(ctx context.Context, orderID uint64, dst entity.Order) error {
	return load(ctx, r, dst.Kind(), entity.OrderKey(orderID), dst)
}

// FetchPositionTrade resolves a trade by (blockHash, logIndex, user). Trades
// are expected to be new; a hit is reported.
func (r *Repository) FetchPositionTrade(ctx context.Context, userID, blockHash string, logIndex uint64, txHash string) (*entity.PositionTrade, error) {
	return fetch(ctx, r, func() *entity.PositionTrade {
		return entity.NewPositionTrade(entity.TradeKey(blockHash, logIndex, userID), userID, txHash, logIndex)
	}, true)
}

// LoadPositionTrade reads a trade by key without creating it.
func (r *Repository) LoadPositionTrade(ctx context.Context, key string) (*entity.PositionTrade, error) {
	t := &entity.PositionTrade{}
	if err := load(ctx, r, entity.KindPositionTrade, key, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *Repository) FetchLiquidityTrade(ctx context.Context, userID, blockHash string, logIndex uint64, txHash string) (*entity.LiquidityTrade, error) {
	return fetch(ctx, r, func() *entity.LiquidityTrade {
		return entity.NewLiquidityTrade(entity.TradeKey(blockHash, logIndex, userID), userID, txHash, logIndex)
	}, true)
}

// FetchSubAccount resolves the aggregate for a sub-account key. A hit is
// reported as a pre-existing record; callers keep using it.
func (r *Repository) FetchSubAccount(ctx context.Context, subAccountID, userID string, createdAt int64) (*entity.SubAccount, error) {
	return fetch(ctx, r, func() *entity.SubAccount {
		return entity.NewSubAccount(subAccountID, userID, createdAt)
	}, true)
}

// FetchFunding resolves the record for symbol in the window starting at windowStart.
func (r *Repository) FetchFunding(ctx context.Context, symbol string, windowStart, createdAt int64) (*entity.Funding, error) {
	return fetch(ctx, r, func() *entity.Funding {
		return entity.NewFunding(symbol, windowStart, createdAt)
	}, false)
}

// LoadFunding reads a funding window without creating it.
func (r *Repository) LoadFunding(ctx context.Context, symbol string, windowStart int64) (*entity.Funding, error) {
	f := &entity.Funding{}
	if err := load(ctx, r, entity.KindFunding, entity.FundingKey(symbol, windowStart), f); err != nil {
		return nil, err
	}
	return f, nil
}

func (r *Repository) FetchPrice(ctx context.Context, assetID uint8, blockNumber uint64, createdAt int64) (*entity.Price, error) {
	return fetch(ctx, r, func() *entity.Price {
		return entity.NewPrice(assetID, blockNumber, createdAt)
	}, true)
}

// CreateFlashTakeSequence opens the sequence record for txHash. A record
// already holding the same sequence is kept with its trade link and reported
// as pre-existing; one holding a different sequence is replaced.
func (r *Repository) CreateFlashTakeSequence(ctx context.Context, txHash string, sequence uint64) (*entity.FlashTakeSequence, error) {
	seq, err := fetch(ctx, r, func() *entity.FlashTakeSequence {
		return entity.NewFlashTakeSequence(txHash, sequence)
	}, true)
	if err != nil {
		return nil, err
	}
	if seq.Sequence == sequence {
		return seq, nil
	}

	r.logger.Warn().Str("tx", txHash).Uint64("stored", seq.Sequence).Uint64("sequence", sequence).
		Msg("replacing flash take sequence")
	fresh := entity.NewFlashTakeSequence(txHash, sequence)
	if err := r.store.Save(ctx, fresh); err != nil {
		return nil, fmt.Errorf("create %s %q: %w", fresh.Kind(), fresh.Key(), err)
	}
	return fresh, nil
}

// LoadFlashTakeSequence reads the sequence record of a transaction.
func (r *Repository) LoadFlashTakeSequence(ctx context.Context, txHash string) (*entity.FlashTakeSequence, error) {
	s := &entity.FlashTakeSequence{}
	if err := load(ctx, r, entity.KindFlashTakeSequence, txHash, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Repository) DeleteFlashTakeSequence(ctx context.Context, txHash string) error {
	return r.store.Delete(ctx, entity.KindFlashTakeSequence, txHash)
}

func (r *Repository) FetchFlashTake(ctx context.Context, sequence uint64) (*entity.FlashTake, error) {
	return fetch(ctx, r, func() *entity.FlashTake {
		return entity.NewFlashTake(sequence)
	}, true)
}

// Load reads any entity by kind and key. Used by the query layer.
func (r *Repository) Load(ctx context.Context, kind entity.Kind, key string) (entity.Record, error) {
	rec, ok := entity.New(kind)
	if !ok {
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
	if err := load(ctx, r, kind, key, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
