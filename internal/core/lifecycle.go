package core

import (
	"context"
	"errors"
	"fmt"

	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/observability"
	"PerpIndexer/internal/store"
)

// OrderKind is the order-type tag carried by fill and cancel events.
type OrderKind uint8

const (
	OrderKindPosition   OrderKind = 1
	OrderKindLiquidity  OrderKind = 2
	OrderKindWithdrawal OrderKind = 3
	OrderKindRebalance  OrderKind = 4
)

// ParseOrderKind validates a raw tag.
func ParseOrderKind(tag uint8) (OrderKind, bool) {
	switch k := OrderKind(tag); k {
	case OrderKindPosition, OrderKindLiquidity, OrderKindWithdrawal, OrderKindRebalance:
		return k, true
	default:
		return 0, false
	}
}

func (k OrderKind) String() string {
	switch k {
	case OrderKindPosition:
		return "position"
	case OrderKindLiquidity:
		return "liquidity"
	case OrderKindWithdrawal:
		return "withdrawal"
	case OrderKindRebalance:
		return "rebalance"
	default:
		return fmt.Sprintf("OrderKind(%d)", uint8(k))
	}
}

// table returns an empty record of the order table k resolves to.
func (k OrderKind) table() entity.Order {
	switch k {
	case OrderKindPosition:
		return &entity.PositionOrder{}
	case OrderKindLiquidity:
		return &entity.LiquidityOrder{}
	case OrderKindWithdrawal:
		return &entity.WithdrawalOrder{}
	case OrderKindRebalance:
		return &entity.RebalanceOrder{}
	}
	panic(fmt.Sprintf("unhandled order kind %d", uint8(k)))
}

// FinishOrder applies Created -> Finished to the order named by (orderID,
// tag). A second finish overwrites the first. A missing order or an unknown
// tag is reported and leaves the store untouched.
func (p *Processor) FinishOrder(ctx context.Context, orderID uint64, tag uint8, filled bool, at int64) error {
	key := entity.OrderKey(orderID)

	kind, ok := ParseOrderKind(tag)
	if !ok {
		p.anomalies.Report(observability.Anomaly{
			Class:  observability.UnknownKind,
			Entity: "Order",
			Key:    key,
			Detail: fmt.Sprintf("order type is unknown: %d", tag),
		})
		return nil
	}

	order := kind.table()
	err := p.repo.LoadOrder(ctx, orderID, order)
	if errors.Is(err, store.ErrNotFound) {
		p.report(observability.MissingReferent, order.Kind(), key, "order not found")
		return nil
	}
	if err != nil {
		return err
	}

	lc := order.OrderLifecycle()
	if lc.IsFinish {
		p.logger.Warn().Str("order", key).Str("kind", kind.String()).
			Int64("previous_finished_at", lc.FinishedAt).
			Msg("order already finished, overwriting")
	}
	lc.Finish(filled, at)

	p.logger.Debug().Str("order", key).Str("kind", kind.String()).Bool("filled", filled).Msg("order finished")
	return p.repo.Save(ctx, order)
}
