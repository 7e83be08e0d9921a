package orderbook

import "iter"

// TopOfBook is a detached copy of the best orders on each side. Asks are
// ordered best (lowest) first and bids best (highest) first.
type TopOfBook struct {
	Asks []Order
	Bids []Order
}

// Top copies up to depth orders per side in priority order. depth <= 0
// copies everything.
func (b *OrderBook) Top(depth int) TopOfBook {
	return TopOfBook{
		Asks: take(b.Asks(), depth),
		Bids: take(b.Bids(), depth),
	}
}

func take(orders iter.Seq[*Order], depth int) []Order {
	var out []Order
	for o := range orders {
		if depth > 0 && len(out) == depth {
			break
		}
		out = append(out, o.Detach())
	}
	return out
}

// Detach returns a copy of o that shares nothing with the book.
func (o *Order) Detach() Order {
	c := *o
	c.level, c.next, c.prev = nil, nil, nil
	return c
}
