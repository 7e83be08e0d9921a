package fills

import (
	"lobfeed/api/stream"
	"lobfeed/domain/orderbook"
)

type Kind uint8

const (
	Normal Kind = iota
	Liquidation
	Deleveraging
)

func (k Kind) String() string {
	switch k {
	case Normal:
		return "NORMAL"
	case Liquidation:
		return "LIQUIDATION"
	case Deleveraging:
		return "DELEVERAGING"
	default:
		return "UNKNOWN"
	}
}

var ErrMalformed = stream.ErrMalformed

// Fill is one maker/taker match. MakerTotalFilled is the maker's cumulative
// filled quantity after this match; it is zero for deleveraging, where no
// resting order backs the maker side.
type Fill struct {
	ClobPairID       uint32
	Maker            orderbook.OrderID
	Taker            orderbook.OrderID
	Quantums         uint64
	Subticks         uint64
	TakerIsBuy       bool
	ExecMode         uint32
	Kind             Kind
	MakerTotalFilled uint64
}

// Finalized reports whether the fill was emitted at block commit rather
// than optimistically.
func (f Fill) Finalized() bool {
	return f.ExecMode == stream.ExecModeFinalize
}

// HasMakerOrder reports whether the maker side is a resting order whose
// remaining size should be resynchronized.
func (f Fill) HasMakerOrder() bool {
	return f.Kind != Deleveraging
}
