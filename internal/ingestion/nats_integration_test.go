package ingestion_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"PerpIndexer/internal/event"
	"PerpIndexer/internal/ingestion"
	"PerpIndexer/internal/testutil"
)

func TestNATSSubscriber_DeliversInOrder(t *testing.T) {
	testutil.RequireIntegration(t)

	nc, js, err := ingestion.ConnectNATS(testutil.TestNATSURL(), zerolog.Nop())
	if err != nil {
		t.Skipf("nats not available: %v", err)
	}
	defer nc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	in := ingestion.DefaultSubscriberConfig()
	in.StreamName = "PERP_CHAIN_EVENTS_TEST"
	in.SubjectPrefix = "perp.test.events"
	in.ConsumerName = "perp-indexer-test"
	out := ingestion.DefaultPublisherConfig()
	out.StreamName = "PERP_INDEXER_ENTITIES_TEST"
	out.SubjectPrefix = "perp.test.entities"

	if err := ingestion.EnsureStreams(ctx, js, in, out); err != nil {
		t.Fatalf("ensure streams: %v", err)
	}
	t.Cleanup(func() {
		js.DeleteStream(context.Background(), in.StreamName)
		js.DeleteStream(context.Background(), out.StreamName)
	})

	for i := 0; i < 3; i++ {
		payload := openPayload()
		payload["log_index"] = i
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if _, err := js.Publish(ctx, in.Subject(event.EventTypeOpenPosition), data); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	rawChan := make(chan ingestion.RawEvent, 8)
	sub := ingestion.NewNATSSubscriber(js, in, rawChan, zerolog.Nop())
	if err := sub.Subscribe(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Stop()

	h := &recordingHandler{}
	p := ingestion.NewPipeline(h, in, ingestion.NewRedeliveryFilter(16), nil, zerolog.Nop())
	for len(h.events) < 3 {
		select {
		case raw := <-rawChan:
			if got := p.Process(ctx, raw); got != ingestion.OutcomeApplied {
				t.Fatalf("outcome: %v", got)
			}
		case <-ctx.Done():
			t.Fatalf("timed out after %d events", len(h.events))
		}
	}
	for i, ev := range h.events {
		if ev.Meta().LogIndex != uint64(i) {
			t.Errorf("event %d out of order: log index %d", i, ev.Meta().LogIndex)
		}
	}
}
