package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/observability"
)

// Op is a change operation.
type Op string

const (
	OpSave   Op = "save"
	OpDelete Op = "delete"
)

// Change describes one applied mutation. Data is the saved record and is
// empty for deletes.
type Change struct {
	Op   Op              `json:"op"`
	Kind entity.Kind     `json:"kind"`
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data,omitempty"`
	At   time.Time       `json:"at"`
}

// ChangeFeed forwards every successful Save and Delete to a channel.
// Sends never block: a full channel drops the change and counts it.
type ChangeFeed struct {
	next    Store
	out     chan<- Change
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewChangeFeed wraps next. metrics may be nil.
func NewChangeFeed(next Store, out chan<- Change, metrics *observability.Metrics, logger zerolog.Logger) *ChangeFeed {
	return &ChangeFeed{
		next:    next,
		out:     out,
		metrics: metrics,
		logger:  logger,
	}
}

func (c *ChangeFeed) Load(ctx context.Context, kind entity.Kind, key string, dst entity.Record) error {
	return c.next.Load(ctx, kind, key, dst)
}

func (c *ChangeFeed) Save(ctx context.Context, rec entity.Record) error {
	if err := c.next.Save(ctx, rec); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		c.logger.Error().Err(err).Str("kind", rec.Kind().String()).Str("key", rec.Key()).Msg("change feed: encode failed")
		return nil
	}
	c.emit(Change{Op: OpSave, Kind: rec.Kind(), Key: rec.Key(), Data: data, At: time.Now().UTC()})
	return nil
}

func (c *ChangeFeed) Delete(ctx context.Context, kind entity.Kind, key string) error {
	if err := c.next.Delete(ctx, kind, key); err != nil {
		return err
	}
	c.emit(Change{Op: OpDelete, Kind: kind, Key: key, At: time.Now().UTC()})
	return nil
}

func (c *ChangeFeed) emit(ch Change) {
	select {
	case c.out <- ch:
		if c.metrics != nil {
			c.metrics.ChangesEmitted.WithLabelValues(ch.Kind.String(), string(ch.Op)).Inc()
		}
	default:
		if c.metrics != nil {
			c.metrics.ChangeFeedDrops.Inc()
		}
		c.logger.Warn().Str("kind", ch.Kind.String()).Str("key", ch.Key).Msg("change feed full, dropping change")
	}
}
