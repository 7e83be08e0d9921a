package journal

import "time"

type RecordType uint8

const (
	// RecordMessage holds one raw stream message as received.
	RecordMessage RecordType = iota + 1
	// RecordReset marks a point where the handler was discarded; replay
	// starts a fresh handler after it.
	RecordReset
)

type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

func NewRecord(t RecordType, data []byte) *Record {
	return &Record{
		Type: t,
		Time: time.Now().UnixNano(),
		Data: data,
	}
}

// Frame:
// [type:1][seq:8][time:8][len:4][payload][crc:4]
const headerSize = 1 + 8 + 8 + 4
