package snapshot

import "time"

// Dump is the state of a handler at the moment it failed. It is written for
// inspection only and never loaded back into a live handler.
type Dump struct {
	JournalSeq uint64
	Created    time.Time
	Reason     string
	Heights    map[uint32]uint32
	Books      map[uint32][]OrderEntry
}

// OrderEntry is one resting order in priority order within its side.
type OrderEntry struct {
	Owner            string
	SubaccountNumber uint32
	ClientID         uint32
	OrderFlags       uint32
	Side             uint8
	OriginalQuantums uint64
	Quantums         uint64
	Subticks         uint64
}
