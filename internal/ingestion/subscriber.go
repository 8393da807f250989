package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"PerpIndexer/internal/event"
)

// RawEvent is one undecoded message from NATS, ready for the pipeline to
// parse into a typed event.Event before it reaches the core.
type RawEvent struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	AckFunc   func() // Call to ACK the NATS message after successful processing
	NakFunc   func() // Call to NAK on failure (will be redelivered)
}

// SubscriberConfig names the inbound stream and its durable consumer.
// Events are published to {SubjectPrefix}.{EventType}, e.g.
// perp.events.OpenPosition.
type SubscriberConfig struct {
	StreamName    string
	SubjectPrefix string
	ConsumerName  string
	AckWait       time.Duration
	MaxDeliver    int
}

// DefaultSubscriberConfig returns the standard inbound configuration.
func DefaultSubscriberConfig() SubscriberConfig {
	return SubscriberConfig{
		StreamName:    "PERP_CHAIN_EVENTS",
		SubjectPrefix: "perp.events",
		ConsumerName:  "perp-indexer",
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
	}
}

// Subject returns the inbound subject for one event type.
func (c SubscriberConfig) Subject(et event.EventType) string {
	return c.SubjectPrefix + "." + et.String()
}

// Subjects lists every inbound subject, one per event type.
func (c SubscriberConfig) Subjects() []string {
	out := make([]string, 0, len(event.AllEventTypes))
	for _, et := range event.AllEventTypes {
		out = append(out, c.Subject(et))
	}
	return out
}

// EventTypeFromSubject resolves the event type carried in the last subject
// token. Subjects outside the prefix resolve to EventTypeUnknown.
func (c SubscriberConfig) EventTypeFromSubject(subject string) event.EventType {
	name, ok := strings.CutPrefix(subject, c.SubjectPrefix+".")
	if !ok || strings.Contains(name, ".") {
		return event.EventTypeUnknown
	}
	return event.ParseEventType(name)
}

// NATSSubscriber runs one ordered JetStream consumer over every inbound
// subject and feeds messages into eventChan. The core applies events in log
// order, so the consumer allows a single unacknowledged message at a time.
type NATSSubscriber struct {
	js        jetstream.JetStream
	cfg       SubscriberConfig
	eventChan chan<- RawEvent
	consumer  jetstream.ConsumeContext
	logger    zerolog.Logger
}

func NewNATSSubscriber(js jetstream.JetStream, cfg SubscriberConfig, eventChan chan<- RawEvent, logger zerolog.Logger) *NATSSubscriber {
	return &NATSSubscriber{
		js:        js,
		cfg:       cfg,
		eventChan: eventChan,
		logger:    logger,
	}
}

// Subscribe creates the durable consumer and starts delivery.
// Consumers use explicit ACK and MaxAckPending=1.
func (ns *NATSSubscriber) Subscribe(ctx context.Context) error {
	consumer, err := ns.js.CreateOrUpdateConsumer(ctx, ns.cfg.StreamName, jetstream.ConsumerConfig{
		Durable:       ns.cfg.ConsumerName,
		FilterSubject: ns.cfg.SubjectPrefix + ".>",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       ns.cfg.AckWait,
		MaxDeliver:    ns.cfg.MaxDeliver,
		MaxAckPending: 1,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", ns.cfg.ConsumerName, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		raw := RawEvent{
			Subject:   msg.Subject(),
			Data:      msg.Data(),
			Timestamp: time.Now(),
			AckFunc:   func() { msg.Ack() },
			NakFunc:   func() { msg.Nak() },
		}

		select {
		case ns.eventChan <- raw:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", ns.cfg.ConsumerName, err)
	}

	ns.consumer = cc
	ns.logger.Info().
		Str("filter", ns.cfg.SubjectPrefix+".>").
		Str("consumer", ns.cfg.ConsumerName).
		Msg("subscribed")
	return nil
}

// Stop gracefully stops the consumer.
func (ns *NATSSubscriber) Stop() {
	if ns.consumer != nil {
		ns.consumer.Stop()
	}
	ns.logger.Info().Msg("NATS subscriber stopped")
}

// EnsureStreams creates the inbound event stream and the outbound entity
// change stream if they don't exist. Both use FileStorage, retention=Limits.
func EnsureStreams(ctx context.Context, js jetstream.JetStream, in SubscriberConfig, out PublisherConfig) error {
	streams := []jetstream.StreamConfig{
		{
			Name:      in.StreamName,
			Subjects:  []string{in.SubjectPrefix + ".>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			Replicas:  1,
		},
		{
			Name:       out.StreamName,
			Subjects:   []string{out.SubjectPrefix + ".>"},
			Storage:    jetstream.FileStorage,
			Retention:  jetstream.LimitsPolicy,
			MaxAge:     72 * time.Hour,
			Duplicates: 2 * time.Minute,
			Replicas:   1,
		},
	}

	for _, cfg := range streams {
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// ConnectNATS establishes a NATS connection and returns a JetStream context.
func ConnectNATS(url string, logger zerolog.Logger) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.Name("perp-indexer"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info().Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	return nc, js, nil
}
