package orderbook

// PriceLevel is a FIFO queue at a single price.
type PriceLevel struct {
	Subticks uint64

	head *Order
	tail *Order

	TotalQuantums uint64
	OrderCount    int
}

func (p *PriceLevel) Enqueue(o *Order) {
	o.level = p
	o.next = nil
	if p.head == nil {
		o.prev = nil
		p.head = o
		p.tail = o
	} else {
		p.tail.next = o
		o.prev = p.tail
		p.tail = o
	}
	p.TotalQuantums += o.Quantums
	p.OrderCount++
}

// unlink detaches o in O(1). o must belong to p.
func (p *PriceLevel) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		p.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		p.tail = o.prev
	}

	o.next = nil
	o.prev = nil
	o.level = nil

	p.TotalQuantums -= o.Quantums
	p.OrderCount--
}

func (p *PriceLevel) Empty() bool {
	return p.head == nil
}

// Read-only helper
func (p *PriceLevel) Head() *Order {
	return p.head
}
