package ingestion_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/ingestion"
	"PerpIndexer/internal/observability"
	"PerpIndexer/internal/store"
)

type published struct {
	subject string
	payload []byte
}

type fakePublisher struct {
	out []published
	err error
}

func (f *fakePublisher) Publish(_ context.Context, subject string, payload []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.out = append(f.out, published{subject: subject, payload: payload})
	return &jetstream.PubAck{Stream: "PERP_INDEXER_ENTITIES"}, nil
}

func testChange() store.Change {
	return store.Change{
		Op:   store.OpSave,
		Kind: entity.KindSubAccount,
		Key:  testSubAccount,
		Data: json.RawMessage(`{"id":"` + testSubAccount + `","size":"60"}`),
		At:   time.Unix(1700000000, 0).UTC(),
	}
}

func TestChangePublisher_PublishesPerKindSubject(t *testing.T) {
	pub := &fakePublisher{}
	in := make(chan store.Change, 2)
	cp := ingestion.NewChangePublisher(pub, ingestion.DefaultPublisherConfig(), in, nil, zerolog.Nop())

	in <- testChange()
	in <- store.Change{Op: store.OpDelete, Kind: entity.KindFlashTakeSequence, Key: testTxHash}
	close(in)

	if err := cp.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(pub.out) != 2 {
		t.Fatalf("published %d, want 2", len(pub.out))
	}
	if pub.out[0].subject != "perp.indexer.entities.SubAccount" {
		t.Errorf("subject: got %s", pub.out[0].subject)
	}
	if pub.out[1].subject != "perp.indexer.entities.FlashTakeSequence" {
		t.Errorf("subject: got %s", pub.out[1].subject)
	}

	var got store.Change
	if err := json.Unmarshal(pub.out[0].payload, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got.Op != store.OpSave || got.Key != testSubAccount || string(got.Data) != string(testChange().Data) {
		t.Errorf("payload: %+v", got)
	}
}

func TestChangePublisher_ErrorsAreCountedNotFatal(t *testing.T) {
	pub := &fakePublisher{err: errors.New("no responders")}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	in := make(chan store.Change, 1)
	cp := ingestion.NewChangePublisher(pub, ingestion.DefaultPublisherConfig(), in, metrics, zerolog.Nop())

	in <- testChange()
	close(in)

	if err := cp.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if v := testutil.ToFloat64(metrics.PublishErrors); v != 1 {
		t.Errorf("publish errors: got %v", v)
	}
}

func TestChangeMsgID(t *testing.T) {
	a := testChange()
	b := testChange()
	b.At = b.At.Add(time.Hour)
	if ingestion.ChangeMsgID(a) != ingestion.ChangeMsgID(b) {
		t.Error("message id must not depend on the emit time")
	}

	c := testChange()
	c.Data = json.RawMessage(`{"id":"` + testSubAccount + `","size":"61"}`)
	if ingestion.ChangeMsgID(a) == ingestion.ChangeMsgID(c) {
		t.Error("different content must yield different ids")
	}

	d := testChange()
	d.Op = store.OpDelete
	d.Data = nil
	if ingestion.ChangeMsgID(a) == ingestion.ChangeMsgID(d) {
		t.Error("save and delete must yield different ids")
	}
}
