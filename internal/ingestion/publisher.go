package ingestion

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"PerpIndexer/internal/observability"
	"PerpIndexer/internal/store"
)

// changeNamespace scopes outbound message ids.
var changeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("perp-indexer/entity-change"))

// Publisher is the part of jetstream.JetStream the change publisher uses.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// PublisherConfig names the outbound entity change stream.
// Subjects follow the pattern: {SubjectPrefix}.{kind}
type PublisherConfig struct {
	StreamName    string
	SubjectPrefix string
}

func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		StreamName:    "PERP_INDEXER_ENTITIES",
		SubjectPrefix: "perp.indexer.entities",
	}
}

// ChangePublisher publishes entity changes to NATS for downstream consumers.
// Changes are published after the store write is confirmed.
type ChangePublisher struct {
	js        Publisher
	cfg       PublisherConfig
	inputChan <-chan store.Change
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

func NewChangePublisher(js Publisher, cfg PublisherConfig, inputChan <-chan store.Change, metrics *observability.Metrics, logger zerolog.Logger) *ChangePublisher {
	return &ChangePublisher{
		js:        js,
		cfg:       cfg,
		inputChan: inputChan,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run starts the publisher loop.
func (cp *ChangePublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ch, ok := <-cp.inputChan:
			if !ok {
				return nil
			}

			if err := cp.publish(ctx, ch); err != nil {
				// Non-fatal: the store stays authoritative and downstream
				// consumers can query it directly.
				cp.logger.Warn().Err(err).Str("kind", ch.Kind.String()).Str("key", ch.Key).Msg("outbound publish failed")
				if cp.metrics != nil {
					cp.metrics.PublishErrors.Inc()
				}
			}
		}
	}
}

func (cp *ChangePublisher) publish(ctx context.Context, ch store.Change) error {
	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	_, err = cp.js.Publish(ctx, cp.Subject(ch), data, jetstream.WithMsgID(ChangeMsgID(ch)))
	return err
}

// Subject returns the outbound subject of a change.
func (cp *ChangePublisher) Subject(ch store.Change) string {
	return cp.cfg.SubjectPrefix + "." + ch.Kind.String()
}

// ChangeMsgID is a content-derived JetStream message id, so a change
// republished after a restart is deduplicated by the server.
func ChangeMsgID(ch store.Change) string {
	name := string(ch.Op) + "/" + ch.Kind.String() + "/" + ch.Key + "/" + string(ch.Data)
	return uuid.NewSHA1(changeNamespace, []byte(name)).String()
}
