package snapshot

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lobfeed/domain/orderbook"
)

type Writer struct {
	Dir string
}

// Capture copies books into a Dump.
func Capture(seq uint64, reason string, books map[uint32]*orderbook.OrderBook, heights map[uint32]uint32) Dump {
	d := Dump{
		JournalSeq: seq,
		Created:    time.Now(),
		Reason:     reason,
		Heights:    heights,
		Books:      make(map[uint32][]OrderEntry, len(books)),
	}
	for clob, book := range books {
		entries := make([]OrderEntry, 0, book.Len())
		for o := range book.Bids() {
			entries = append(entries, entryOf(o))
		}
		for o := range book.Asks() {
			entries = append(entries, entryOf(o))
		}
		d.Books[clob] = entries
	}
	return d
}

func entryOf(o *orderbook.Order) OrderEntry {
	return OrderEntry{
		Owner:            o.ID.OwnerAddress,
		SubaccountNumber: o.ID.SubaccountNumber,
		ClientID:         o.ID.ClientID,
		OrderFlags:       o.ID.OrderFlags,
		Side:             uint8(o.Side),
		OriginalQuantums: o.OriginalQuantums,
		Quantums:         o.Quantums,
		Subticks:         o.Subticks,
	}
}

// Write stores d as dump-<unix nanos>.gob and returns the path. The file
// appears only once fully written.
func (w *Writer) Write(d Dump) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(w.Dir, fmt.Sprintf("dump-%d.gob", d.Created.UnixNano()))
	tmp, err := os.CreateTemp(w.Dir, "dump-*.tmp")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(&d); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	return path, os.Rename(tmp.Name(), path)
}
