package repository_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/observability"
	"PerpIndexer/internal/repository"
	"PerpIndexer/internal/store"
)

func newTestRepo(t *testing.T) (*repository.Repository, *[]observability.Anomaly) {
	t.Helper()
	var seen []observability.Anomaly
	reporter := observability.NewAnomalyReporter(zerolog.Nop(), nil, func(a observability.Anomaly) {
		seen = append(seen, a)
	})
	return repository.New(store.NewMemory(), reporter, zerolog.Nop()), &seen
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestFetchOrCreate_IdempotentDefaults(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.FetchPositionOrder(ctx, 11, "0xuser")
	require.NoError(t, err)
	second, err := repo.FetchPositionOrder(ctx, 11, "0xuser")
	require.NoError(t, err)

	assert.Equal(t, mustJSON(t, first), mustJSON(t, second))
	assert.True(t, first.IsLong, "default isLong")
	assert.True(t, first.IsOpen, "default isOpen")
	assert.False(t, first.IsFinish)
}

func TestFetchOrCreate_ReturnsMutatedRecord(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	order, err := repo.FetchWithdrawalOrder(ctx, 5, "0xuser")
	require.NoError(t, err)
	order.Amount = decimal.RequireFromString("1.25")
	order.IsProfit = true
	require.NoError(t, repo.Save(ctx, order))

	again, err := repo.FetchWithdrawalOrder(ctx, 5, "0xuser")
	require.NoError(t, err)
	assert.True(t, again.Amount.Equal(decimal.RequireFromString("1.25")))
	assert.True(t, again.IsProfit)
}

func TestFetch_PersistsOnMiss(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.FetchAsset(ctx, 3)
	require.NoError(t, err)

	asset, err := repo.LoadAsset(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "3", asset.ID)
	assert.Equal(t, entity.AddressZero, asset.TokenAddress)
	assert.Equal(t, entity.AddressZero, asset.MuxTokenAddress)
	assert.Equal(t, uint32(0), asset.Decimals)
}

func TestLoad_ReportsAbsence(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.LoadAsset(ctx, 9)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	err = repo.LoadOrder(ctx, 1, &entity.RebalanceOrder{})
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = repo.LoadFlashTakeSequence(ctx, "0xtx")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	// Nothing was created by the loads.
	_, err = repo.LoadAsset(ctx, 9)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestFetch_PreexistingIsReported(t *testing.T) {
	repo, seen := newTestRepo(t)
	ctx := context.Background()

	trade, err := repo.FetchPositionTrade(ctx, "0xuser", "0xblock", 4, "0xtx")
	require.NoError(t, err)
	assert.Equal(t, "0xblock-4-0xuser", trade.ID)
	assert.Empty(t, *seen)

	trade.Amount = decimal.NewFromInt(3)
	require.NoError(t, repo.Save(ctx, trade))

	again, err := repo.FetchPositionTrade(ctx, "0xuser", "0xblock", 4, "0xtx")
	require.NoError(t, err)
	assert.True(t, again.Amount.Equal(decimal.NewFromInt(3)), "existing record is returned unchanged")

	require.Len(t, *seen, 1)
	assert.Equal(t, observability.Preexisting, (*seen)[0].Class)
	assert.Equal(t, "PositionTrade", (*seen)[0].Entity)
}

func TestFetch_OrdersDoNotReportHits(t *testing.T) {
	repo, seen := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := repo.FetchLiquidityOrder(ctx, 1, "0xuser")
		require.NoError(t, err)
		_, err = repo.FetchUser(ctx, "0xuser")
		require.NoError(t, err)
		_, err = repo.FetchFunding(ctx, "ETH", 0, 100)
		require.NoError(t, err)
	}
	assert.Empty(t, *seen)
}

func TestFlashTakeSequenceLifecycle(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateFlashTakeSequence(ctx, "0xtx", 7)
	require.NoError(t, err)

	seq, err := repo.LoadFlashTakeSequence(ctx, "0xtx")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), seq.Sequence)
	assert.Empty(t, seq.PositionTradeID)

	require.NoError(t, repo.DeleteFlashTakeSequence(ctx, "0xtx"))
	_, err = repo.LoadFlashTakeSequence(ctx, "0xtx")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestCreateFlashTakeSequence_RedeliveryKeepsTradeLink(t *testing.T) {
	repo, seen := newTestRepo(t)
	ctx := context.Background()

	seq, err := repo.CreateFlashTakeSequence(ctx, "0xtx", 7)
	require.NoError(t, err)
	seq.PositionTradeID = "0xblk-2-0xuser"
	require.NoError(t, repo.Save(ctx, seq))

	again, err := repo.CreateFlashTakeSequence(ctx, "0xtx", 7)
	require.NoError(t, err)
	assert.Equal(t, "0xblk-2-0xuser", again.PositionTradeID)

	stored, err := repo.LoadFlashTakeSequence(ctx, "0xtx")
	require.NoError(t, err)
	assert.Equal(t, "0xblk-2-0xuser", stored.PositionTradeID)

	require.Len(t, *seen, 1)
	assert.Equal(t, observability.Preexisting, (*seen)[0].Class)
	assert.Equal(t, entity.KindFlashTakeSequence.String(), (*seen)[0].Entity)
}

func TestCreateFlashTakeSequence_NewSequenceReplaces(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	seq, err := repo.CreateFlashTakeSequence(ctx, "0xtx", 7)
	require.NoError(t, err)
	seq.PositionTradeID = "0xblk-2-0xuser"
	require.NoError(t, repo.Save(ctx, seq))

	_, err = repo.CreateFlashTakeSequence(ctx, "0xtx", 8)
	require.NoError(t, err)

	stored, err := repo.LoadFlashTakeSequence(ctx, "0xtx")
	require.NoError(t, err)
	assert.Equal(t, uint64(8), stored.Sequence)
	assert.Empty(t, stored.PositionTradeID)
}

func TestGenericLoad(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.FetchPrice(ctx, 2, 100, 1700000000)
	require.NoError(t, err)

	rec, err := repo.Load(ctx, entity.KindPrice, "2-100")
	require.NoError(t, err)
	price, ok := rec.(*entity.Price)
	require.True(t, ok)
	assert.Equal(t, int64(1700000000), price.CreatedAt)

	_, err = repo.Load(ctx, entity.Kind("Nope"), "1")
	assert.Error(t, err)
}
