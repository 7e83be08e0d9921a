package orderbook

import (
	"fmt"
	"iter"
)

// OrderBook mirrors the resting orders of one instrument.
// It is single-writer and deterministic.
type OrderBook struct {
	bids *RBTree
	asks *RBTree

	index map[OrderID]*Order
}

func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids:  NewRBTree(),
		asks:  NewRBTree(),
		index: make(map[OrderID]*Order),
	}
}

func (b *OrderBook) side(s Side) *RBTree {
	if s == Bid {
		return b.bids
	}
	return b.asks
}

// ---- mutation ----

// AddOrder rests a copy of o at the tail of its price level and returns the
// resting handle.
func (b *OrderBook) AddOrder(o Order) (*Order, error) {
	if o.Side != Bid && o.Side != Ask {
		return nil, fmt.Errorf("%w: order %s side %d", ErrInvalidSide, o.ID, o.Side)
	}
	if _, ok := b.index[o.ID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateOrder, o.ID)
	}

	resting := &Order{
		ID:               o.ID,
		Side:             o.Side,
		OriginalQuantums: o.OriginalQuantums,
		Quantums:         o.Quantums,
		Subticks:         o.Subticks,
	}
	b.side(o.Side).UpsertLevel(o.Subticks).Enqueue(resting)
	b.index[o.ID] = resting
	return resting, nil
}

// RemoveOrder detaches the order from its level, dropping the level once it
// is empty. The book is untouched when the id is unknown.
func (b *OrderBook) RemoveOrder(id OrderID) (Order, error) {
	o, ok := b.index[id]
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrUnknownOrder, id)
	}

	lvl := o.level
	lvl.unlink(o)
	if lvl.Empty() {
		b.side(o.Side).DeleteLevel(lvl.Subticks)
	}
	delete(b.index, id)

	return Order{
		ID:               o.ID,
		Side:             o.Side,
		OriginalQuantums: o.OriginalQuantums,
		Quantums:         o.Quantums,
		Subticks:         o.Subticks,
	}, nil
}

// GetOrder returns the resting order or nil. Callers must not move the
// returned order between levels.
func (b *OrderBook) GetOrder(id OrderID) *Order {
	return b.index[id]
}

// ---- queries ----

func (b *OrderBook) Len() int {
	return len(b.index)
}

// Depth returns the number of price levels on each side.
func (b *OrderBook) Depth() (bids, asks int) {
	return b.bids.Size(), b.asks.Size()
}

func (b *OrderBook) BestBid() *PriceLevel {
	return b.bids.MaxLevel()
}

func (b *OrderBook) BestAsk() *PriceLevel {
	return b.asks.MinLevel()
}

// BidLevels yields bid levels from the best (highest) price down.
func (b *OrderBook) BidLevels() iter.Seq[*PriceLevel] {
	return b.bids.Descending()
}

// AskLevels yields ask levels from the best (lowest) price up.
func (b *OrderBook) AskLevels() iter.Seq[*PriceLevel] {
	return b.asks.Ascending()
}

// Asks yields resting asks in price-time priority. Each call starts a new
// traversal.
func (b *OrderBook) Asks() iter.Seq[*Order] {
	return ordersOf(b.AskLevels())
}

// Bids yields resting bids in price-time priority.
func (b *OrderBook) Bids() iter.Seq[*Order] {
	return ordersOf(b.BidLevels())
}

func ordersOf(levels iter.Seq[*PriceLevel]) iter.Seq[*Order] {
	return func(yield func(*Order) bool) {
		for lvl := range levels {
			for o := lvl.Head(); o != nil; o = o.Next() {
				if !yield(o) {
					return
				}
			}
		}
	}
}

// MidpointPrice returns the mean of the best bid and best ask in subticks.
// ok is false when either side has no levels. A best level without orders
// means the book was reconstructed incorrectly and is reported as
// ErrEmptyLevel.
func (b *OrderBook) MidpointPrice() (mid float64, ok bool, err error) {
	bid, ask := b.BestBid(), b.BestAsk()
	if bid == nil || ask == nil {
		return 0, false, nil
	}
	if bid.Empty() || ask.Empty() {
		return 0, false, fmt.Errorf("%w: best bid %d (%d orders), best ask %d (%d orders)",
			ErrEmptyLevel, bid.Subticks, bid.OrderCount, ask.Subticks, ask.OrderCount)
	}
	// halves first so the sum cannot overflow
	return float64(bid.Subticks)/2 + float64(ask.Subticks)/2, true, nil
}

// CheckCrossed reports a book whose best ask does not exceed its best bid.
func (b *OrderBook) CheckCrossed() error {
	bid, ask := b.BestBid(), b.BestAsk()
	if bid == nil || ask == nil {
		return nil
	}
	if ask.Subticks <= bid.Subticks {
		return fmt.Errorf("%w: best ask %d <= best bid %d", ErrCrossedBook, ask.Subticks, bid.Subticks)
	}
	return nil
}
