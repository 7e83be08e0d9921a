package reporter

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"lobfeed/domain/subaccount"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (p *fakePublisher) SendBatch(_ context.Context, msgs []kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msgs...)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

func TestReporter_PublishesChangedSubaccounts(t *testing.T) {
	pub := &fakePublisher{}
	r := New(pub, 4, zerolog.Nop())

	a := subaccount.New(subaccount.ID{Owner: "alice", Number: 0})
	a.PerpetualPositions[0] = -5
	a.AssetPositions[0] = 1_000_000
	b := subaccount.New(subaccount.ID{Owner: "bob", Number: 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	r.Submit(map[subaccount.ID]subaccount.Subaccount{a.ID: a, b.ID: b})

	deadline := time.Now().Add(time.Second)
	for pub.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if pub.count() != 2 {
		t.Fatalf("want 2 messages, got %d", pub.count())
	}

	pub.mu.Lock()
	first := pub.msgs[0]
	pub.mu.Unlock()
	if string(first.Key) != "alice/0" {
		t.Fatalf("want alice first, got key %q", first.Key)
	}

	var rep Report
	if err := json.Unmarshal(first.Value, &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.PerpetualPositions["0"] != "-5" || rep.AssetPositions["0"] != "1000000" {
		t.Fatalf("unexpected report %+v", rep)
	}
}

func TestReporter_DropsWhenFull(t *testing.T) {
	r := New(&fakePublisher{}, 1, zerolog.Nop())
	s := subaccount.New(subaccount.ID{Owner: "alice"})
	changed := map[subaccount.ID]subaccount.Subaccount{s.ID: s}

	r.Submit(changed)
	r.Submit(changed)
	r.Submit(nil)

	if r.dropped != 1 {
		t.Fatalf("want 1 dropped batch, got %d", r.dropped)
	}
}
