package outbox

import (
	"errors"
	"testing"

	"github.com/cockroachdb/pebble"
)

func TestOutbox_Lifecycle(t *testing.T) {
	o, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer o.Close()

	var seqs []uint64
	for _, p := range []string{"a", "b", "c"} {
		seq, err := o.Enqueue([]byte(p))
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		seqs = append(seqs, seq)
	}
	if seqs[0] != 1 || seqs[2] != 3 {
		t.Fatalf("unexpected sequences %v", seqs)
	}

	if err := o.MarkSent(seqs[0]); err != nil {
		t.Fatal(err)
	}
	if err := o.MarkAcked(seqs[0]); err != nil {
		t.Fatal(err)
	}
	if err := o.MarkFailed(seqs[1]); err != nil {
		t.Fatal(err)
	}

	if _, err := o.Get(seqs[0]); !errors.Is(err, pebble.ErrNotFound) {
		t.Fatalf("acked entry should be gone, got %v", err)
	}

	failed, err := o.Get(seqs[1])
	if err != nil {
		t.Fatal(err)
	}
	if failed.State != StateFailed || failed.Retries != 1 || string(failed.Payload) != "b" {
		t.Fatalf("unexpected failed entry %+v", failed)
	}

	var fresh []string
	_ = o.ScanByState(StateNew, func(e Entry) error {
		fresh = append(fresh, string(e.Payload))
		return nil
	})
	if len(fresh) != 1 || fresh[0] != "c" {
		t.Fatalf("want only c in NEW, got %v", fresh)
	}

	if n, _ := o.Pending(); n != 2 {
		t.Fatalf("want 2 pending, got %d", n)
	}
}

func TestOutbox_ReopenContinuesSequence(t *testing.T) {
	dir := t.TempDir()

	o, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = o.Enqueue([]byte("x"))
	_, _ = o.Enqueue([]byte("y"))
	_ = o.Close()

	o, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer o.Close()

	seq, err := o.Enqueue([]byte("z"))
	if err != nil {
		t.Fatal(err)
	}
	if seq != 3 {
		t.Fatalf("want seq 3 after reopen, got %d", seq)
	}

	var order []string
	_ = o.ScanPending(func(e Entry) error {
		order = append(order, string(e.Payload))
		return nil
	})
	if len(order) != 3 || order[0] != "x" || order[2] != "z" {
		t.Fatalf("unexpected pending order %v", order)
	}
}

func TestOutbox_EnqueueBatch(t *testing.T) {
	dir := t.TempDir()
	o, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := o.Enqueue([]byte("first")); err != nil {
		t.Fatal(err)
	}
	seqs, err := o.EnqueueBatch([][]byte{[]byte("x"), []byte("y"), []byte("z")})
	if err != nil {
		t.Fatalf("enqueue batch: %v", err)
	}
	if len(seqs) != 3 || seqs[0] != 2 || seqs[2] != 4 {
		t.Fatalf("unexpected sequences %v", seqs)
	}
	if got, err := o.EnqueueBatch(nil); err != nil || got != nil {
		t.Fatalf("empty batch: %v %v", got, err)
	}
	_ = o.Close()

	o, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer o.Close()

	var got []string
	_ = o.ScanPending(func(e Entry) error {
		if e.State != StateNew {
			t.Fatalf("batch entry %d in state %s", e.Seq, e.State)
		}
		got = append(got, string(e.Payload))
		return nil
	})
	if len(got) != 4 || got[1] != "x" || got[3] != "z" {
		t.Fatalf("unexpected entries %v", got)
	}
}
