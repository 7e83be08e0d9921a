package fills

import (
	"fmt"

	"lobfeed/api/stream"
	"lobfeed/domain/orderbook"
)

// orderState is an order as carried in a fill record, along with the
// order's cumulative filled amount after the match.
type orderState struct {
	order       *stream.Order
	totalFilled uint64
}

// Parse turns one fill record into normalized fills. The record carries the
// state of every order it references; an id missing from that state is
// malformed input.
func Parse(raw *stream.OrderbookFill, execMode uint32) ([]Fill, error) {
	if raw == nil || raw.ClobMatch == nil {
		return nil, fmt.Errorf("%w: fill without clob match", ErrMalformed)
	}

	states, err := indexOrders(raw)
	if err != nil {
		return nil, err
	}

	m := raw.ClobMatch
	switch {
	case m.MatchOrders != nil:
		return parseMatchOrders(m.MatchOrders, states, execMode)
	case m.MatchPerpetualLiquidation != nil:
		return parseLiquidation(m.MatchPerpetualLiquidation, states, execMode)
	case m.MatchPerpetualDeleveraging != nil:
		return parseDeleveraging(m.MatchPerpetualDeleveraging, execMode)
	default:
		return nil, fmt.Errorf("%w: clob match without a variant", ErrMalformed)
	}
}

func indexOrders(raw *stream.OrderbookFill) (map[orderbook.OrderID]orderState, error) {
	if len(raw.Orders) != len(raw.FillAmounts) {
		return nil, fmt.Errorf("%w: %d orders but %d fill amounts", ErrMalformed, len(raw.Orders), len(raw.FillAmounts))
	}
	states := make(map[orderbook.OrderID]orderState, len(raw.Orders))
	for i := range raw.Orders {
		o := &raw.Orders[i]
		id, err := o.OrderID.Domain()
		if err != nil {
			return nil, err
		}
		states[id] = orderState{order: o, totalFilled: uint64(raw.FillAmounts[i])}
	}
	return states, nil
}

func lookup(states map[orderbook.OrderID]orderState, raw *stream.OrderID, role string) (orderbook.OrderID, orderState, error) {
	id, err := raw.Domain()
	if err != nil {
		return orderbook.OrderID{}, orderState{}, fmt.Errorf("%s: %w", role, err)
	}
	st, ok := states[id]
	if !ok {
		return id, orderState{}, fmt.Errorf("%w: %s order %s not in fill record", ErrMalformed, role, id)
	}
	return id, st, nil
}

func parseMatchOrders(m *stream.MatchOrders, states map[orderbook.OrderID]orderState, execMode uint32) ([]Fill, error) {
	takerID, taker, err := lookup(states, m.TakerOrderID, "taker")
	if err != nil {
		return nil, err
	}

	out := make([]Fill, 0, len(m.Fills))
	for _, f := range m.Fills {
		makerID, maker, err := lookup(states, f.MakerOrderID, "maker")
		if err != nil {
			return nil, err
		}
		out = append(out, Fill{
			ClobPairID:       taker.order.OrderID.ClobPairID,
			Maker:            makerID,
			Taker:            takerID,
			Quantums:         uint64(f.FillAmount),
			Subticks:         uint64(maker.order.Subticks),
			TakerIsBuy:       maker.order.Side == stream.SideSell,
			ExecMode:         execMode,
			Kind:             Normal,
			MakerTotalFilled: maker.totalFilled,
		})
	}
	return out, nil
}

func parseLiquidation(m *stream.MatchPerpetualLiquidation, states map[orderbook.OrderID]orderState, execMode uint32) ([]Fill, error) {
	liquidated, err := m.Liquidated.Domain()
	if err != nil {
		return nil, fmt.Errorf("liquidated: %w", err)
	}
	// the liquidated subaccount has no resting order
	taker := orderbook.OrderID{OwnerAddress: liquidated.Owner, SubaccountNumber: liquidated.Number}

	out := make([]Fill, 0, len(m.Fills))
	for _, f := range m.Fills {
		makerID, maker, err := lookup(states, f.MakerOrderID, "maker")
		if err != nil {
			return nil, err
		}
		out = append(out, Fill{
			ClobPairID:       m.ClobPairID,
			Maker:            makerID,
			Taker:            taker,
			Quantums:         uint64(f.FillAmount),
			Subticks:         uint64(maker.order.Subticks),
			TakerIsBuy:       m.IsBuy,
			ExecMode:         execMode,
			Kind:             Liquidation,
			MakerTotalFilled: maker.totalFilled,
		})
	}
	return out, nil
}

func parseDeleveraging(m *stream.MatchPerpetualDeleveraging, execMode uint32) ([]Fill, error) {
	liquidated, err := m.Liquidated.Domain()
	if err != nil {
		return nil, fmt.Errorf("liquidated: %w", err)
	}
	taker := orderbook.OrderID{OwnerAddress: liquidated.Owner, SubaccountNumber: liquidated.Number}

	out := make([]Fill, 0, len(m.Fills))
	for _, f := range m.Fills {
		offsetting, err := f.OffsettingSubaccountID.Domain()
		if err != nil {
			return nil, fmt.Errorf("offsetting: %w", err)
		}
		out = append(out, Fill{
			// deleveraging is keyed by perpetual, which the protocol maps
			// one to one onto the clob pair
			ClobPairID: m.PerpetualID,
			Maker:      orderbook.OrderID{OwnerAddress: offsetting.Owner, SubaccountNumber: offsetting.Number},
			Taker:      taker,
			Quantums:   uint64(f.FillAmount),
			ExecMode:   execMode,
			Kind:       Deleveraging,
		})
	}
	return out, nil
}
