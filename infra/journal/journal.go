package journal

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"lobfeed/infra/sequence"
)

type Config struct {
	Dir         string
	SegmentSize int64
}

// Journal appends raw stream messages to size-rotated segment files so a
// session can be replayed later.
type Journal struct {
	mu       sync.Mutex
	dir      string
	segSize  int64
	current  *segment
	segIndex int
	seq      *sequence.Sequencer
}

// Open continues after the newest existing segment, keeping sequence
// numbers increasing across restarts.
func Open(cfg Config) (*Journal, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}

	files, err := segments(cfg.Dir)
	if err != nil {
		return nil, err
	}

	var lastSeq uint64
	index := 0
	for _, path := range files {
		max, err := maxSeqInSegment(path)
		if err != nil {
			return nil, err
		}
		if max > lastSeq {
			lastSeq = max
		}
		if i := segmentIndex(path); i >= index {
			index = i + 1
		}
	}

	seg, err := openSegment(cfg.Dir, index)
	if err != nil {
		return nil, err
	}

	return &Journal{
		dir:      cfg.Dir,
		segSize:  cfg.SegmentSize,
		current:  seg,
		segIndex: index,
		seq:      sequence.New(lastSeq),
	}, nil
}

// Append assigns the next sequence to r and writes it.
func (j *Journal) Append(r *Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	r.Seq = j.seq.Next()
	payloadLen := uint32(len(r.Data))

	buf := make([]byte, headerSize+int(payloadLen)+4)
	buf[0] = byte(r.Type)
	binary.BigEndian.PutUint64(buf[1:9], r.Seq)
	binary.BigEndian.PutUint64(buf[9:17], uint64(r.Time))
	binary.BigEndian.PutUint32(buf[17:21], payloadLen)
	copy(buf[headerSize:], r.Data)

	crc := checksum(buf[:headerSize+int(payloadLen)])
	binary.BigEndian.PutUint32(buf[headerSize+int(payloadLen):], crc)

	if err := j.current.append(buf); err != nil {
		return err
	}

	if j.segSize > 0 && j.current.offset >= j.segSize {
		return j.rotate()
	}
	return nil
}

// LastSeq returns the sequence of the last appended record.
func (j *Journal) LastSeq() uint64 {
	return j.seq.Current()
}

func (j *Journal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.current.sync()
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.current.sync(); err != nil {
		return err
	}
	return j.current.close()
}

func (j *Journal) rotate() error {
	if err := j.current.sync(); err != nil {
		return err
	}
	_ = j.current.close()
	j.segIndex++

	seg, err := openSegment(j.dir, j.segIndex)
	if err != nil {
		return err
	}
	j.current = seg
	return nil
}

func segmentIndex(path string) int {
	name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "segment-"), ".wal")
	i, err := strconv.Atoi(name)
	if err != nil {
		return -1
	}
	return i
}
