package feed

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/rs/zerolog"

	"lobfeed/api/stream"
	"lobfeed/domain/fills"
	"lobfeed/domain/orderbook"
	"lobfeed/domain/subaccount"
)

var (
	ErrMalformed        = stream.ErrMalformed
	ErrInvalidHeight    = errors.New("invalid block height")
	ErrHeightRegression = errors.New("block height went backwards")
)

// Handler rebuilds books, fills and subaccounts from the orderbook stream.
// It is not safe for concurrent use; one instance serves one feed
// connection.
type Handler struct {
	books   map[uint32]*orderbook.OrderBook
	heights map[uint32]uint32

	snapshotSeen  bool
	perInstrument bool
	snapshotted   map[uint32]bool

	subaccounts *subaccount.Store
	recent      []subaccount.ID

	taker    TakerOrderSink
	observer Observer
	logger   zerolog.Logger
}

func New(opts ...Option) *Handler {
	h := &Handler{
		books:       make(map[uint32]*orderbook.OrderBook),
		heights:     make(map[uint32]uint32),
		snapshotted: make(map[uint32]bool),
		subaccounts: subaccount.NewStore(),
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle applies every update in resp in order and returns the fills they
// produced. Any error means the mirror no longer matches the stream; the
// caller must rebuild from a fresh snapshot.
func (h *Handler) Handle(resp *stream.Response) ([]fills.Fill, error) {
	h.recent = h.recent[:0]
	if resp == nil {
		return nil, nil
	}

	var out []fills.Fill
	for i := range resp.Updates {
		u := &resp.Updates[i]

		var err error
		switch k := u.Kind(); k {
		case stream.KindOrderbook:
			err = h.handleOrderbook(u)
		case stream.KindFill:
			var fs []fills.Fill
			fs, err = h.handleFill(u)
			out = append(out, fs...)
		case stream.KindTakerOrder:
			err = h.handleTakerOrder(u)
		case stream.KindSubaccount:
			err = h.handleSubaccount(u)
		default:
			err = fmt.Errorf("%w: update carries %s payload", ErrMalformed, k)
		}
		if err != nil {
			return nil, fmt.Errorf("update %d at height %d: %w", i, u.BlockHeight, err)
		}
	}
	return out, nil
}

// ---- orderbook ----

func (h *Handler) handleOrderbook(u *stream.Update) error {
	ob := u.OrderbookUpdate

	if !h.perInstrument {
		switch {
		case ob.Snapshot && h.snapshotSeen:
			h.logger.Warn().Uint32("height", u.BlockHeight).Int("updates", len(ob.Updates)).
				Msg("discarding duplicate orderbook snapshot")
			h.skip(SkipDuplicateSnapshot)
			return nil
		case ob.Snapshot:
			h.snapshotSeen = true
		case !h.snapshotSeen:
			h.skip(SkipDeltaBeforeSnapshot)
			return nil
		}
	}

	var fresh []uint32
	for j := range ob.Updates {
		off := &ob.Updates[j]
		clob, err := clobPairOf(off)
		if err != nil {
			return fmt.Errorf("orderbook update %d: %w", j, err)
		}

		if h.perInstrument {
			ready := h.snapshotted[clob]
			if ob.Snapshot && ready {
				h.skip(SkipDuplicateSnapshot)
				continue
			}
			if !ob.Snapshot && !ready {
				h.skip(SkipDeltaBeforeSnapshot)
				continue
			}
			if ob.Snapshot && !slices.Contains(fresh, clob) {
				fresh = append(fresh, clob)
			}
		}

		if err := h.applyOffChain(off, clob, u.BlockHeight); err != nil {
			return fmt.Errorf("orderbook update %d: %w", j, err)
		}
	}
	for _, clob := range fresh {
		h.snapshotted[clob] = true
	}
	if len(fresh) > 0 {
		h.snapshotSeen = true
	}

	return h.checkCrossed()
}

func clobPairOf(off *stream.OffChainUpdate) (uint32, error) {
	var id *stream.OrderID
	n := 0
	if off.OrderPlace != nil {
		n++
		if off.OrderPlace.Order != nil {
			id = off.OrderPlace.Order.OrderID
		}
	}
	if off.OrderUpdate != nil {
		n++
		id = off.OrderUpdate.OrderID
	}
	if off.OrderRemove != nil {
		n++
		id = off.OrderRemove.RemovedOrderID
	}
	if n != 1 {
		return 0, fmt.Errorf("%w: off-chain update carries %d payloads", ErrMalformed, n)
	}
	if id == nil {
		return 0, fmt.Errorf("%w: off-chain update without order id", ErrMalformed)
	}
	return id.ClobPairID, nil
}

func (h *Handler) applyOffChain(off *stream.OffChainUpdate, clob, height uint32) error {
	switch {
	case off.OrderPlace != nil:
		o, _, err := off.OrderPlace.Order.Domain()
		if err != nil {
			return err
		}
		if err := h.observeHeight(clob, height); err != nil {
			return err
		}
		_, err = h.book(clob).AddOrder(o)
		return err

	case off.OrderUpdate != nil:
		id, err := off.OrderUpdate.OrderID.Domain()
		if err != nil {
			return err
		}
		if err := h.observeHeight(clob, height); err != nil {
			return err
		}
		o := h.book(clob).GetOrder(id)
		if o == nil {
			h.logger.Debug().Str("order", id.String()).Uint32("clob_pair", clob).Msg("update for unknown order")
			h.skip(SkipUnknownOrderUpdate)
			return nil
		}
		return o.SetTotalFilled(uint64(off.OrderUpdate.TotalFilledQuantums))

	default:
		id, err := off.OrderRemove.RemovedOrderID.Domain()
		if err != nil {
			return err
		}
		if err := h.observeHeight(clob, height); err != nil {
			return err
		}
		_, err = h.book(clob).RemoveOrder(id)
		return err
	}
}

func (h *Handler) checkCrossed() error {
	for _, clob := range slices.Sorted(maps.Keys(h.books)) {
		if err := h.books[clob].CheckCrossed(); err != nil {
			return fmt.Errorf("clob pair %d: %w", clob, err)
		}
	}
	return nil
}

// ---- fills ----

func (h *Handler) handleFill(u *stream.Update) ([]fills.Fill, error) {
	if !h.snapshotSeen {
		h.skip(SkipFillBeforeSnapshot)
		return nil, nil
	}

	parsed, err := fills.Parse(u.OrderFill, u.ExecMode)
	if err != nil {
		return nil, err
	}

	out := parsed[:0]
	for _, f := range parsed {
		if h.perInstrument && !h.snapshotted[f.ClobPairID] {
			h.skip(SkipFillBeforeSnapshot)
			continue
		}
		if err := h.observeHeight(f.ClobPairID, u.BlockHeight); err != nil {
			return nil, err
		}
		if f.HasMakerOrder() {
			if err := h.resyncMaker(f); err != nil {
				return nil, err
			}
		}
		out = append(out, f)
	}
	return out, nil
}

func (h *Handler) resyncMaker(f fills.Fill) error {
	var o *orderbook.Order
	if b, ok := h.books[f.ClobPairID]; ok {
		o = b.GetOrder(f.Maker)
	}
	if o == nil {
		h.logger.Debug().Str("maker", f.Maker.String()).Uint32("clob_pair", f.ClobPairID).Msg("fill for maker not in book")
		h.skip(SkipUnknownFillMaker)
		return nil
	}
	return o.SetTotalFilled(f.MakerTotalFilled)
}

// ---- taker orders ----

func (h *Handler) handleTakerOrder(u *stream.Update) error {
	o, clob, err := u.TakerOrder.Order.Domain()
	if err != nil {
		return fmt.Errorf("taker order: %w", err)
	}
	if h.taker != nil {
		h.taker.ProcessOrder(o, clob, u.BlockHeight)
	}
	return nil
}

// ---- subaccounts ----

func (h *Handler) handleSubaccount(u *stream.Update) error {
	s, err := u.SubaccountUpdate.Domain()
	if err != nil {
		return fmt.Errorf("subaccount update: %w", err)
	}

	switch res := h.subaccounts.Apply(s, u.SubaccountUpdate.Snapshot); res {
	case subaccount.Installed, subaccount.Merged:
		if !slices.Contains(h.recent, s.ID) {
			h.recent = append(h.recent, s.ID)
		}
	case subaccount.DuplicateSnapshot:
		h.logger.Warn().Str("subaccount", s.ID.String()).Msg("discarding duplicate subaccount snapshot")
		h.skip(SkipDuplicateSubaccount)
	default:
		h.logger.Debug().Str("subaccount", s.ID.String()).Msg("subaccount delta before snapshot")
		h.skip(SkipSubaccountDeltaNoBase)
	}
	return nil
}

// ---- helpers ----

func (h *Handler) book(clob uint32) *orderbook.OrderBook {
	b, ok := h.books[clob]
	if !ok {
		b = orderbook.NewOrderBook()
		h.books[clob] = b
	}
	return b
}

func (h *Handler) observeHeight(clob, height uint32) error {
	if height == 0 {
		return fmt.Errorf("%w: clob pair %d got height 0", ErrInvalidHeight, clob)
	}
	if last, ok := h.heights[clob]; ok && height < last {
		return fmt.Errorf("%w: clob pair %d at %d, got %d", ErrHeightRegression, clob, last, height)
	}
	h.heights[clob] = height
	if h.observer != nil {
		h.observer.HeightObserved(clob, height)
	}
	return nil
}

func (h *Handler) skip(reason SkipReason) {
	if h.observer != nil {
		h.observer.Skipped(reason)
	}
}
