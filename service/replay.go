package service

import (
	"maps"
	"slices"

	"github.com/rs/zerolog"

	"lobfeed/api/stream"
	"lobfeed/domain/feed"
	"lobfeed/domain/orderbook"
	"lobfeed/infra/journal"
)

// ReplayReport summarizes a journal replay.
type ReplayReport struct {
	Messages    int
	Resets      int
	Failures    int
	Fills       int
	Comparisons int
	// Skipped counts instruments whose new snapshot came from a different
	// block than the books it would be compared with.
	Skipped    int
	Mismatches []uint32
	LastSeq     uint64
}

/*
ReplayJournal feeds a capture journal into fresh handlers.

Every reset marker in the journal starts a new handler, as the live service
did. The books held just before a reset were built from deltas; the books
after the first message of the new subscription come from its snapshot.
Where both exist for an instrument at the same block height they are
compared, which is how drift between the delta path and the snapshot path
shows up. A snapshot from a later block is not comparable and is skipped.
*/
func ReplayJournal(dir string, newHandler func() *feed.Handler, logger zerolog.Logger) (ReplayReport, map[uint32]*orderbook.OrderBook, error) {
	var rep ReplayReport
	live := newHandler()

	// books from the previous subscription awaiting comparison
	var before map[uint32]*orderbook.OrderBook
	var beforeHeights map[uint32]uint32

	last, err := journal.Replay(dir, func(rec *journal.Record) error {
		switch rec.Type {
		case journal.RecordReset:
			rep.Resets++
			if live.SnapshotSeen() {
				before = live.Books()
				beforeHeights = live.Heights()
			}
			live = newHandler()
			return nil

		case journal.RecordMessage:
			rep.Messages++
		default:
			return nil
		}

		resp, err := stream.Decode(rec.Data)
		if err != nil {
			rep.Failures++
			logger.Warn().Err(err).Uint64("seq", rec.Seq).Msg("undecodable message")
			return nil
		}

		fs, err := live.Handle(resp)
		if err != nil {
			rep.Failures++
			logger.Warn().Err(err).Uint64("seq", rec.Seq).Msg("handler failed")
			before, beforeHeights = nil, nil
			live = newHandler()
			return nil
		}
		rep.Fills += len(fs)

		if before != nil && live.SnapshotSeen() {
			rep.compare(before, beforeHeights, live.Books(), live.Heights(), rec.Seq, logger)
			before, beforeHeights = nil, nil
		}
		return nil
	})
	rep.LastSeq = last
	return rep, live.Books(), err
}

func (r *ReplayReport) compare(before map[uint32]*orderbook.OrderBook, beforeHeights map[uint32]uint32,
	after map[uint32]*orderbook.OrderBook, afterHeights map[uint32]uint32, seq uint64, logger zerolog.Logger) {
	for _, clob := range slices.Sorted(maps.Keys(after)) {
		prev, ok := before[clob]
		if !ok {
			continue
		}
		if beforeHeights[clob] == 0 || beforeHeights[clob] != afterHeights[clob] {
			r.Skipped++
			logger.Debug().
				Uint32("clob_pair_id", clob).
				Uint32("delta_height", beforeHeights[clob]).
				Uint32("snapshot_height", afterHeights[clob]).
				Msg("snapshot from another block, not compared")
			continue
		}
		r.Comparisons++
		if !prev.Equal(after[clob]) {
			r.Mismatches = append(r.Mismatches, clob)
			logger.Warn().
				Uint32("clob_pair_id", clob).
				Uint64("seq", seq).
				Int("delta_orders", prev.Len()).
				Int("snapshot_orders", after[clob].Len()).
				Msg("books diverged across resubscription")
		}
	}
}
