package orderbook

import "fmt"

type Side uint8

// Wire values match the protocol's order side enum.
const (
	SideUnspecified Side = iota
	Bid
	Ask
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "BID"
	case Ask:
		return "ASK"
	default:
		return "UNSPECIFIED"
	}
}

// OrderID identifies an order across the exchange. It is a plain value and
// is used directly as a map key.
type OrderID struct {
	OwnerAddress     string
	SubaccountNumber uint32
	ClientID         uint32
	OrderFlags       uint32
}

func (id OrderID) String() string {
	return fmt.Sprintf("%s/%d/%d/%d", id.OwnerAddress, id.SubaccountNumber, id.ClientID, id.OrderFlags)
}

// Order is a resting order. The pointer returned by AddOrder is the order's
// handle inside its price level and stays valid until the order is removed.
type Order struct {
	ID               OrderID
	Side             Side
	OriginalQuantums uint64
	Quantums         uint64 // remaining
	Subticks         uint64

	level *PriceLevel
	next  *Order
	prev  *Order
}

func (o *Order) IsBid() bool {
	return o.Side == Bid
}

// SetTotalFilled overwrites the remaining size from the cumulative filled
// quantity reported by the protocol.
func (o *Order) SetTotalFilled(filled uint64) error {
	if filled > o.OriginalQuantums {
		return fmt.Errorf("%w: order %s filled %d of %d", ErrOverfill, o.ID, filled, o.OriginalQuantums)
	}
	remaining := o.OriginalQuantums - filled
	if o.level != nil {
		o.level.TotalQuantums = o.level.TotalQuantums - o.Quantums + remaining
	}
	o.Quantums = remaining
	return nil
}

// Read-only traversal helper
func (o *Order) Next() *Order {
	return o.next
}
