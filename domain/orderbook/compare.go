package orderbook

// Equal reports whether two books hold the same orders in the same
// price-time order. Intended for cross-validating a book rebuilt from
// snapshots against one maintained from deltas.
func (b *OrderBook) Equal(other *OrderBook) bool {
	if b.Len() != other.Len() {
		return false
	}
	if b.bids.Size() != other.bids.Size() || b.asks.Size() != other.asks.Size() {
		return false
	}

	m1, ok1, err1 := b.MidpointPrice()
	m2, ok2, err2 := other.MidpointPrice()
	if ok1 != ok2 || m1 != m2 || (err1 == nil) != (err2 == nil) {
		return false
	}

	return sameLevels(b.bids, other.bids) && sameLevels(b.asks, other.asks)
}

func sameLevels(a, b *RBTree) bool {
	nb := b.minNode(b.root)
	for na := a.minNode(a.root); na != a.nil; na = a.next(na) {
		if nb == b.nil || na.key != nb.key {
			return false
		}
		if !sameQueue(na.level, nb.level) {
			return false
		}
		nb = b.next(nb)
	}
	return nb == b.nil
}

func sameQueue(a, b *PriceLevel) bool {
	if a.OrderCount != b.OrderCount {
		return false
	}
	ob := b.head
	for oa := a.head; oa != nil; oa = oa.next {
		if ob == nil || !sameOrder(oa, ob) {
			return false
		}
		ob = ob.next
	}
	return ob == nil
}

func sameOrder(a, b *Order) bool {
	return a.ID == b.ID &&
		a.Side == b.Side &&
		a.OriginalQuantums == b.OriginalQuantums &&
		a.Quantums == b.Quantums &&
		a.Subticks == b.Subticks
}
