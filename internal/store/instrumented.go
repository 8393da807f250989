package store

import (
	"context"
	"errors"
	"time"

	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/observability"
)

// Instrumented records operation counts, failures and latency.
type Instrumented struct {
	next    Store
	metrics *observability.Metrics
}

func NewInstrumented(next Store, metrics *observability.Metrics) *Instrumented {
	return &Instrumented{next: next, metrics: metrics}
}

func (s *Instrumented) observe(op string, kind entity.Kind, start time.Time, err error) {
	s.metrics.StoreOps.WithLabelValues(op, kind.String()).Inc()
	s.metrics.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.metrics.StoreErrors.WithLabelValues(op, kind.String()).Inc()
	}
}

func (s *Instrumented) Load(ctx context.Context, kind entity.Kind, key string, dst entity.Record) error {
	start := time.Now()
	err := s.next.Load(ctx, kind, key, dst)
	s.observe("load", kind, start, err)
	return err
}

func (s *Instrumented) Save(ctx context.Context, rec entity.Record) error {
	start := time.Now()
	err := s.next.Save(ctx, rec)
	s.observe("save", rec.Kind(), start, err)
	return err
}

func (s *Instrumented) Delete(ctx context.Context, kind entity.Kind, key string) error {
	start := time.Now()
	err := s.next.Delete(ctx, kind, key)
	s.observe("delete", kind, start, err)
	return err
}
