package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/observability"
	"PerpIndexer/internal/persistence"
	"PerpIndexer/internal/store"
	testhelp "PerpIndexer/internal/testutil"
)

// exerciseBackend runs the shared contract against one backend.
func exerciseBackend(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("load missing", func(t *testing.T) {
		err := s.Load(ctx, entity.KindSubAccount, "0xabsent", &entity.SubAccount{})
		assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)
	})

	t.Run("save then load", func(t *testing.T) {
		sa := entity.NewSubAccount("0xsub", "0xuser", 1700000000)
		sa.Size = decimal.RequireFromString("123.000000000000000001")
		sa.IsLong = true
		require.NoError(t, s.Save(ctx, sa))

		var got entity.SubAccount
		require.NoError(t, s.Load(ctx, entity.KindSubAccount, "0xsub", &got))
		assert.Equal(t, "0xuser", got.User)
		assert.True(t, got.Size.Equal(sa.Size), "size %s", got.Size)
		assert.True(t, got.IsLong)
	})

	t.Run("save overwrites", func(t *testing.T) {
		p := entity.NewPrice(3, 10, 1)
		require.NoError(t, s.Save(ctx, p))
		p.Deviation = decimal.NewFromInt(7)
		require.NoError(t, s.Save(ctx, p))

		var got entity.Price
		require.NoError(t, s.Load(ctx, entity.KindPrice, p.Key(), &got))
		assert.True(t, got.Deviation.Equal(decimal.NewFromInt(7)))
	})

	t.Run("kinds are separate tables", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, entity.NewUser("42")))
		err := s.Load(ctx, entity.KindAsset, "42", &entity.Asset{})
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("delete", func(t *testing.T) {
		seq := entity.NewFlashTakeSequence("0xtx", 7)
		require.NoError(t, s.Save(ctx, seq))
		require.NoError(t, s.Delete(ctx, entity.KindFlashTakeSequence, "0xtx"))
		err := s.Load(ctx, entity.KindFlashTakeSequence, "0xtx", &entity.FlashTakeSequence{})
		assert.True(t, errors.Is(err, store.ErrNotFound))

		// absent key
		require.NoError(t, s.Delete(ctx, entity.KindFlashTakeSequence, "0xtx"))
	})

	t.Run("wrong destination kind", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, entity.NewAsset("1")))
		err := s.Load(ctx, entity.KindAsset, "1", &entity.User{})
		assert.Error(t, err)
		assert.False(t, errors.Is(err, store.ErrNotFound))
	})
}

func TestMemoryStore(t *testing.T) {
	s := store.NewMemory()
	defer s.Close()
	exerciseBackend(t, s)
}

func TestBadgerStore(t *testing.T) {
	s, err := store.OpenKV(filepath.Join(t.TempDir(), "kv"))
	require.NoError(t, err)
	defer s.Close()
	exerciseBackend(t, s)
	require.NoError(t, s.Ping(context.Background()))
}

func TestSQLiteStore(t *testing.T) {
	s, err := store.OpenSQLite(testhelp.SQLitePath(t))
	require.NoError(t, err)
	defer s.Close()
	exerciseBackend(t, s)
}

func TestPostgresStore(t *testing.T) {
	testhelp.RequireIntegration(t)
	db, cleanup := testhelp.SetupTestDB(t)
	defer cleanup()

	m := persistence.NewMigrator(db, "../../migrations")
	require.NoError(t, m.Up(context.Background()))

	exerciseBackend(t, store.NewSQL(db, store.DialectPostgres))
}

func TestChangeFeed(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	out := make(chan store.Change, 1)
	feed := store.NewChangeFeed(store.NewMemory(), out, metrics, zerolog.Nop())

	require.NoError(t, feed.Save(ctx, entity.NewUser("0xa")))
	change := <-out
	assert.Equal(t, store.OpSave, change.Op)
	assert.Equal(t, entity.KindUser, change.Kind)
	assert.JSONEq(t, `{"id":"0xa"}`, string(change.Data))

	// Channel capacity is one; the second change is dropped, not blocked on.
	require.NoError(t, feed.Save(ctx, entity.NewUser("0xb")))
	require.NoError(t, feed.Delete(ctx, entity.KindUser, "0xb"))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ChangeFeedDrops))

	change = <-out
	assert.Equal(t, "0xb", change.Key)

	var u entity.User
	require.NoError(t, feed.Load(ctx, entity.KindUser, "0xa", &u))
}

func TestInstrumented(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	s := store.NewInstrumented(store.NewMemory(), metrics)

	require.NoError(t, s.Save(ctx, entity.NewUser("0xa")))
	err := s.Load(ctx, entity.KindUser, "0xmissing", &entity.User{})
	require.ErrorIs(t, err, store.ErrNotFound)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.StoreOps.WithLabelValues("load", "User")))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.StoreErrors.WithLabelValues("load", "User")))
}
