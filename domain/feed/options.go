package feed

import (
	"github.com/rs/zerolog"

	"lobfeed/domain/orderbook"
)

// TakerOrderSink receives every taker order seen on the stream. It is
// observational only.
type TakerOrderSink interface {
	ProcessOrder(o orderbook.Order, clobPairID uint32, blockHeight uint32)
}

type SkipReason string

const (
	SkipDuplicateSnapshot     SkipReason = "duplicate_snapshot"
	SkipDeltaBeforeSnapshot   SkipReason = "delta_before_snapshot"
	SkipFillBeforeSnapshot    SkipReason = "fill_before_snapshot"
	SkipUnknownOrderUpdate    SkipReason = "unknown_order_update"
	SkipUnknownFillMaker      SkipReason = "unknown_fill_maker"
	SkipDuplicateSubaccount   SkipReason = "duplicate_subaccount_snapshot"
	SkipSubaccountDeltaNoBase SkipReason = "subaccount_delta_without_base"
)

// Observer is told about skipped events and accepted block heights.
type Observer interface {
	Skipped(reason SkipReason)
	HeightObserved(clobPairID uint32, height uint32)
}

type Option func(*Handler)

func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

func WithTakerOrderSink(s TakerOrderSink) Option {
	return func(h *Handler) { h.taker = s }
}

func WithObserver(o Observer) Option {
	return func(h *Handler) { h.observer = o }
}

// WithPerInstrumentSnapshots gates deltas and fills per instrument instead
// of on the first snapshot of any instrument. Use it only when the feed
// sends one snapshot per instrument.
func WithPerInstrumentSnapshots() Option {
	return func(h *Handler) { h.perInstrument = true }
}
