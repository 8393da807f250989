package query_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/observability"
	"PerpIndexer/internal/query"
	"PerpIndexer/internal/repository"
	"PerpIndexer/internal/store"
)

const user = "0xabcdef0123456789abcdef0123456789abcdef01"

func newTestService(t *testing.T) (*query.Service, *repository.Repository, *observability.Metrics) {
	t.Helper()
	repo := repository.New(store.NewMemory(), nil, zerolog.Nop())
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	svc := query.NewService(repo, func() uint64 { return 1234 }, metrics)
	return svc, repo, metrics
}

func mustSave(t *testing.T, repo *repository.Repository, rec entity.Record) {
	t.Helper()
	if err := repo.Save(context.Background(), rec); err != nil {
		t.Fatalf("save %s %s: %v", rec.Kind(), rec.Key(), err)
	}
}

func TestGetEntity(t *testing.T) {
	svc, repo, _ := newTestService(t)
	order := entity.NewPositionOrder("42", user)
	order.Size = decimal.RequireFromString("1.5")
	mustSave(t, repo, order)

	for _, kind := range []string{"PositionOrder", "positionorder", "position-order", "position_order"} {
		resp, err := svc.GetEntity(context.Background(), kind, "42")
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		got, ok := resp.Entity.(*entity.PositionOrder)
		if !ok {
			t.Fatalf("%s: got %T", kind, resp.Entity)
		}
		if !got.Size.Equal(order.Size) || got.User != user {
			t.Errorf("%s: %+v", kind, got)
		}
		if resp.Kind != entity.KindPositionOrder || resp.ID != "42" || resp.AsOfBlock != 1234 {
			t.Errorf("%s: envelope %+v", kind, resp)
		}
	}
}

func TestGetEntity_HexKeysAreCaseInsensitive(t *testing.T) {
	svc, repo, _ := newTestService(t)
	mustSave(t, repo, entity.NewUser(user))

	resp, err := svc.GetEntity(context.Background(), "user", "0xABCDEF0123456789ABCDEF0123456789ABCDEF01")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.ID != user {
		t.Errorf("id: got %s", resp.ID)
	}
}

func TestGetEntity_Errors(t *testing.T) {
	svc, _, metrics := newTestService(t)
	ctx := context.Background()

	if _, err := svc.GetEntity(ctx, "Balance", "1"); !errors.Is(err, query.ErrUnknownKind) {
		t.Errorf("unknown kind: got %v", err)
	}
	if _, err := svc.GetEntity(ctx, "Asset", ""); !errors.Is(err, query.ErrInvalidArgument) {
		t.Errorf("empty id: got %v", err)
	}
	if _, err := svc.GetEntity(ctx, "Asset", "7"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("absent: got %v", err)
	}

	if v := testutil.ToFloat64(metrics.QueryRequests.WithLabelValues("entity", "invalid")); v != 2 {
		t.Errorf("invalid requests: got %v", v)
	}
	if v := testutil.ToFloat64(metrics.QueryRequests.WithLabelValues("entity", "not_found")); v != 1 {
		t.Errorf("not found requests: got %v", v)
	}
}

func TestGetFunding_Buckets(t *testing.T) {
	svc, repo, _ := newTestService(t)
	f := entity.NewFunding("ETH", 28800, 28900)
	f.LongFundingRate = decimal.RequireFromString("0.0002")
	mustSave(t, repo, f)

	for _, ts := range []int64{28800, 30000, 57599} {
		resp, err := svc.GetFunding(context.Background(), "ETH", ts)
		if err != nil {
			t.Fatalf("ts %d: %v", ts, err)
		}
		if resp.WindowStart != 28800 || resp.WindowEnd != 57600 {
			t.Errorf("ts %d: window [%d, %d)", ts, resp.WindowStart, resp.WindowEnd)
		}
		if !resp.Funding.LongFundingRate.Equal(f.LongFundingRate) {
			t.Errorf("ts %d: rate %s", ts, resp.Funding.LongFundingRate)
		}
	}

	if _, err := svc.GetFunding(context.Background(), "ETH", 57600); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("next window: got %v", err)
	}
	if _, err := svc.GetFunding(context.Background(), "", 0); !errors.Is(err, query.ErrInvalidArgument) {
		t.Errorf("empty symbol: got %v", err)
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{store.ErrNotFound, "not_found"},
		{query.ErrUnknownKind, "invalid"},
		{query.ErrInvalidArgument, "invalid"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := query.Status(tt.err); got != tt.want {
			t.Errorf("Status(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
