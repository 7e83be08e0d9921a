package outbox

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"lobfeed/infra/sequence"
)

// -------------------- State --------------------

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Entry --------------------

var ErrInvalidEntry = errors.New("outbox: invalid entry")

// Entry is one queued event awaiting publication.
type Entry struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

const entryHeader = 1 + 4 + 8

// binary encoding: [state:1][retries:4][lastAttempt:8][payload]
func encodeEntry(e Entry) []byte {
	buf := make([]byte, entryHeader+len(e.Payload))
	buf[0] = byte(e.State)
	binary.BigEndian.PutUint32(buf[1:5], e.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(e.LastAttempt))
	copy(buf[entryHeader:], e.Payload)
	return buf
}

func decodeEntry(seq uint64, b []byte) (Entry, error) {
	if len(b) < entryHeader {
		return Entry{}, fmt.Errorf("%w: %d bytes at seq %d", ErrInvalidEntry, len(b), seq)
	}
	payload := make([]byte, len(b)-entryHeader)
	copy(payload, b[entryHeader:])
	return Entry{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     payload,
	}, nil
}

// -------------------- Outbox --------------------

// Outbox is a durable queue of fill events between the feed handler and
// the publishers. Entries survive restarts until they are acknowledged.
type Outbox struct {
	db  *pebble.DB
	seq *sequence.Sequencer
}

func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}

	last, err := lastSeq(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Outbox{db: db, seq: sequence.New(last)}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// -------------------- API --------------------

// Enqueue stores payload as a NEW entry and returns its sequence.
func (o *Outbox) Enqueue(payload []byte) (uint64, error) {
	seq := o.seq.Next()
	e := Entry{State: StateNew, Payload: payload}
	if err := o.db.Set(keyFor(seq), encodeEntry(e), pebble.Sync); err != nil {
		return 0, err
	}
	return seq, nil
}

// EnqueueBatch stores every payload as a NEW entry in one synced write.
// Either all of them are queued or none is.
func (o *Outbox) EnqueueBatch(payloads [][]byte) ([]uint64, error) {
	if len(payloads) == 0 {
		return nil, nil
	}

	b := o.db.NewBatch()
	defer b.Close()

	seqs := make([]uint64, 0, len(payloads))
	for _, p := range payloads {
		seq := o.seq.Next()
		if err := b.Set(keyFor(seq), encodeEntry(Entry{State: StateNew, Payload: p}), nil); err != nil {
			return nil, err
		}
		seqs = append(seqs, seq)
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return nil, err
	}
	return seqs, nil
}

func (o *Outbox) MarkSent(seq uint64) error {
	return o.update(seq, StateSent, false)
}

func (o *Outbox) MarkFailed(seq uint64) error {
	return o.update(seq, StateFailed, true)
}

// MarkAcked removes the entry; acknowledged events are not kept.
func (o *Outbox) MarkAcked(seq uint64) error {
	return o.db.Delete(keyFor(seq), pebble.Sync)
}

func (o *Outbox) Get(seq uint64) (Entry, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if err != nil {
		return Entry{}, err
	}
	defer closer.Close()

	return decodeEntry(seq, val)
}

func (o *Outbox) update(seq uint64, state State, retry bool) error {
	e, err := o.Get(seq)
	if err != nil {
		return err
	}
	e.State = state
	e.LastAttempt = time.Now().UnixNano()
	if retry {
		e.Retries++
	}
	return o.db.Set(keyFor(seq), encodeEntry(e), pebble.Sync)
}

// -------------------- Scan --------------------

// ScanByState iterates entries in the given state in sequence order.
func (o *Outbox) ScanByState(state State, fn func(Entry) error) error {
	return o.scan(func(e Entry) error {
		if e.State != state {
			return nil
		}
		return fn(e)
	})
}

// ScanPending iterates every entry not yet acknowledged: NEW, FAILED, and
// SENT entries left behind by a crash between send and ack.
func (o *Outbox) ScanPending(fn func(Entry) error) error {
	return o.scan(fn)
}

// Pending counts unacknowledged entries.
func (o *Outbox) Pending() (int, error) {
	n := 0
	err := o.scan(func(Entry) error { n++; return nil })
	return n, err
}

func (o *Outbox) scan(fn func(Entry) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		e, err := decodeEntry(seq, iter.Value())
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return iter.Error()
}

// -------------------- Helpers --------------------

const keyPrefix = "fill/"

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf(keyPrefix+"%020d", seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte(keyPrefix))), "%d", &seq)
	return seq, err
}

func lastSeq(db *pebble.DB) (uint64, error) {
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	return parseKey(iter.Key())
}
