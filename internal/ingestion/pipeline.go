package ingestion

import (
	"context"

	"github.com/rs/zerolog"

	"PerpIndexer/internal/event"
	"PerpIndexer/internal/observability"
)

// Handler applies one typed event. core.Processor satisfies it.
type Handler interface {
	Handle(ctx context.Context, ev event.Event) error
}

// Outcome is what the pipeline did with one raw message.
type Outcome int

const (
	// OutcomeApplied: handled by the core and acked.
	OutcomeApplied Outcome = iota
	// OutcomeDuplicate: a recent redelivery, acked without handling.
	OutcomeDuplicate
	// OutcomeRejected: unknown subject or invalid payload, acked and dropped.
	OutcomeRejected
	// OutcomeFailed: the core returned an error, nakked for redelivery.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Pipeline drains raw messages in delivery order: resolve the event type
// from the subject, parse, drop redeliveries, hand to the core, then ack.
// Messages are acked only after the core has applied them.
type Pipeline struct {
	handler Handler
	cfg     SubscriberConfig
	filter  *RedeliveryFilter
	guard   *OrderGuard
	metrics *observability.Metrics
	logger  zerolog.Logger

	reportedEvictions int64
}

func NewPipeline(handler Handler, cfg SubscriberConfig, filter *RedeliveryFilter, metrics *observability.Metrics, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		handler: handler,
		cfg:     cfg,
		filter:  filter,
		guard:   NewOrderGuard(),
		metrics: metrics,
		logger:  logger,
	}
}

// Run processes messages until ctx is cancelled or in is closed.
func (p *Pipeline) Run(ctx context.Context, in <-chan RawEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-in:
			if !ok {
				return nil
			}
			if p.metrics != nil {
				p.metrics.SetChannelMetrics("ingest", len(in), cap(in))
			}
			p.Process(ctx, raw)
		}
	}
}

// Process handles one message and acks or naks it.
func (p *Pipeline) Process(ctx context.Context, raw RawEvent) Outcome {
	if p.metrics != nil {
		p.metrics.IngestReceived.WithLabelValues(raw.Subject).Inc()
	}

	eventType := p.cfg.EventTypeFromSubject(raw.Subject)
	if eventType == event.EventTypeUnknown {
		p.logger.Warn().Str("subject", raw.Subject).Msg("unknown subject")
		p.reject(eventType)
		ack(raw)
		return OutcomeRejected
	}

	ev, err := ParseRawEvent(raw, eventType)
	if err != nil {
		p.logger.Warn().Err(err).Str("subject", raw.Subject).Msg("parse event failed")
		p.reject(eventType)
		ack(raw)
		return OutcomeRejected
	}

	key := ev.IdempotencyKey()
	if p.filter != nil && p.filter.Seen(key) {
		p.logger.Debug().Str("event_type", eventType.String()).Str("key", key).Msg("redelivery dropped")
		if p.metrics != nil {
			p.metrics.IngestDuplicates.WithLabelValues(eventType.String()).Inc()
		}
		ack(raw)
		return OutcomeDuplicate
	}

	pos := PositionOf(ev.Meta())
	if err := p.guard.Check(pos); err != nil {
		p.logger.Warn().Err(err).Str("event_type", eventType.String()).Msg("applying event out of order")
		if p.metrics != nil {
			p.metrics.IngestOutOfOrder.Inc()
		}
	}

	if err := p.handler.Handle(ctx, ev); err != nil {
		p.logger.Error().Err(err).Str("event_type", eventType.String()).Str("key", key).Msg("handle event failed")
		if raw.NakFunc != nil {
			raw.NakFunc()
		}
		return OutcomeFailed
	}

	p.guard.Advance(pos)
	if p.filter != nil {
		p.filter.MarkApplied(key)
		p.recordFilter()
	}
	ack(raw)
	return OutcomeApplied
}

func (p *Pipeline) reject(eventType event.EventType) {
	if p.metrics != nil {
		p.metrics.IngestParseErrors.WithLabelValues(eventType.String()).Inc()
	}
}

func (p *Pipeline) recordFilter() {
	if p.metrics == nil {
		return
	}
	p.metrics.DedupLRUSize.Set(float64(p.filter.Size()))
	if ev := p.filter.Evictions(); ev > p.reportedEvictions {
		p.metrics.DedupLRUEvictions.Add(float64(ev - p.reportedEvictions))
		p.reportedEvictions = ev
	}
}

func ack(raw RawEvent) {
	if raw.AckFunc != nil {
		raw.AckFunc()
	}
}
