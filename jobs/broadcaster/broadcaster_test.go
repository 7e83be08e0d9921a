package broadcaster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"lobfeed/domain/fills"
	"lobfeed/infra/metrics"
	"lobfeed/infra/outbox"
)

type recordingSink struct {
	events []fills.Event
	err    error
}

func (s *recordingSink) Insert(_ context.Context, e fills.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func enqueue(t *testing.T, ob *outbox.Outbox, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		e := fills.NewEvent(fills.Fill{ClobPairID: uint32(i), Quantums: 1, Subticks: 1}, 10, time.Now())
		b, err := e.Marshal()
		if err != nil {
			t.Fatal(err)
		}
		if _, err := ob.Enqueue(b); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
}

func openOutbox(t *testing.T) *outbox.Outbox {
	t.Helper()
	ob, err := outbox.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open outbox: %v", err)
	}
	t.Cleanup(func() { _ = ob.Close() })
	return ob
}

func TestDrain_PublishesAndAcks(t *testing.T) {
	ob := openOutbox(t)
	enqueue(t, ob, 3)

	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	for i := 0; i < 3; i++ {
		producer.ExpectSendMessageAndSucceed()
	}
	sink := &recordingSink{}
	m := metrics.New(zerolog.Nop())

	b := New(ob, producer, "fills", sink, m, zerolog.Nop())
	if err := b.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if n, _ := ob.Pending(); n != 0 {
		t.Fatalf("want empty outbox, %d pending", n)
	}
	if len(sink.events) != 3 || sink.events[2].ClobPairID != 2 {
		t.Fatalf("sink got %+v", sink.events)
	}
	if got := testutil.ToFloat64(m.PublishedFills.WithLabelValues("kafka")); got != 3 {
		t.Fatalf("want 3 kafka publications, got %v", got)
	}
}

func TestDrain_FailureKeepsEntry(t *testing.T) {
	ob := openOutbox(t)
	enqueue(t, ob, 1)

	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	b := New(ob, producer, "fills", nil, nil, zerolog.Nop())
	if err := b.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}

	var failed []outbox.Entry
	_ = ob.ScanByState(outbox.StateFailed, func(e outbox.Entry) error {
		failed = append(failed, e)
		return nil
	})
	if len(failed) != 1 || failed[0].Retries != 1 {
		t.Fatalf("want one failed entry with one retry, got %+v", failed)
	}

	// The next pass retries it.
	producer.ExpectSendMessageAndSucceed()
	if err := b.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	_ = b.Close()

	if n, _ := ob.Pending(); n != 0 {
		t.Fatalf("want empty outbox after retry, %d pending", n)
	}
}

func TestDrain_SinkOnly(t *testing.T) {
	ob := openOutbox(t)
	enqueue(t, ob, 2)

	sink := &recordingSink{err: errors.New("db down")}
	b := New(ob, nil, "", sink, nil, zerolog.Nop())
	_ = b.Drain(context.Background())
	if n, _ := ob.Pending(); n != 2 {
		t.Fatalf("failed inserts must stay pending, got %d", n)
	}

	sink.err = nil
	_ = b.Drain(context.Background())
	if n, _ := ob.Pending(); n != 0 || len(sink.events) != 2 {
		t.Fatalf("want drained outbox and 2 inserts, got %d pending / %d inserts", n, len(sink.events))
	}
}

func TestDrain_DropsUndecodable(t *testing.T) {
	ob := openOutbox(t)
	if _, err := ob.Enqueue([]byte("not json")); err != nil {
		t.Fatal(err)
	}

	sink := &recordingSink{}
	b := New(ob, nil, "", sink, nil, zerolog.Nop())
	_ = b.Drain(context.Background())

	if n, _ := ob.Pending(); n != 0 || len(sink.events) != 0 {
		t.Fatalf("undecodable entry should be dropped, got %d pending / %d inserts", n, len(sink.events))
	}
}
