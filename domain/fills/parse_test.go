package fills

import (
	"errors"
	"testing"

	"lobfeed/api/stream"
	"lobfeed/domain/orderbook"
)

func sid(owner string) *stream.SubaccountID {
	return &stream.SubaccountID{Owner: owner}
}

func pid(owner string, client uint32) *stream.OrderID {
	return &stream.OrderID{SubaccountID: sid(owner), ClientID: client, ClobPairID: 1}
}

func order(owner string, client uint32, side stream.Side, subticks uint64) stream.Order {
	return stream.Order{OrderID: pid(owner, client), Side: side, Quantums: 100, Subticks: stream.Uint64(subticks)}
}

func TestParseMatchOrders(t *testing.T) {
	raw := &stream.OrderbookFill{
		ClobMatch: &stream.ClobMatch{MatchOrders: &stream.MatchOrders{
			TakerOrderID: pid("taker", 9),
			Fills: []stream.MakerFill{
				{MakerOrderID: pid("maker", 1), FillAmount: 4},
				{MakerOrderID: pid("maker", 2), FillAmount: 6},
			},
		}},
		Orders: []stream.Order{
			order("taker", 9, stream.SideBuy, 120),
			order("maker", 1, stream.SideSell, 105),
			order("maker", 2, stream.SideSell, 106),
		},
		FillAmounts: []stream.Uint64{10, 4, 60},
	}

	got, err := Parse(raw, 7)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 fills, got %d", len(got))
	}

	f := got[1]
	if f.Kind != Normal || !f.TakerIsBuy || f.Subticks != 106 || f.Quantums != 6 {
		t.Fatalf("unexpected fill %+v", f)
	}
	if f.MakerTotalFilled != 60 {
		t.Fatalf("want maker total 60, got %d", f.MakerTotalFilled)
	}
	if f.Taker != (orderbook.OrderID{OwnerAddress: "taker", ClientID: 9}) || f.ClobPairID != 1 {
		t.Fatalf("unexpected taker %v / clob %d", f.Taker, f.ClobPairID)
	}
	if !f.Finalized() {
		t.Fatal("exec mode 7 must be finalized")
	}
}

func TestOrderStatesKeyedByFullID(t *testing.T) {
	// same client id under two owners must not collide
	raw := &stream.OrderbookFill{
		ClobMatch: &stream.ClobMatch{MatchOrders: &stream.MatchOrders{
			TakerOrderID: pid("taker", 1),
			Fills:        []stream.MakerFill{{MakerOrderID: pid("maker", 1), FillAmount: 3}},
		}},
		Orders: []stream.Order{
			order("taker", 1, stream.SideSell, 99),
			order("maker", 1, stream.SideBuy, 100),
		},
		FillAmounts: []stream.Uint64{3, 8},
	}

	got, err := Parse(raw, 1)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got[0].Subticks != 100 || got[0].MakerTotalFilled != 8 || got[0].TakerIsBuy {
		t.Fatalf("maker state resolved from the wrong order: %+v", got[0])
	}
	if got[0].Finalized() {
		t.Fatal("exec mode 1 is optimistic")
	}
}

func TestParseLiquidation(t *testing.T) {
	raw := &stream.OrderbookFill{
		ClobMatch: &stream.ClobMatch{MatchPerpetualLiquidation: &stream.MatchPerpetualLiquidation{
			Liquidated: sid("rekt"),
			ClobPairID: 3,
			IsBuy:      true,
			Fills:      []stream.MakerFill{{MakerOrderID: pid("maker", 1), FillAmount: 5}},
		}},
		Orders:      []stream.Order{order("maker", 1, stream.SideBuy, 50)},
		FillAmounts: []stream.Uint64{5},
	}

	got, err := Parse(raw, 7)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	f := got[0]
	if f.Kind != Liquidation || !f.TakerIsBuy || f.ClobPairID != 3 || f.Subticks != 50 {
		t.Fatalf("unexpected fill %+v", f)
	}
	if f.Taker.OwnerAddress != "rekt" || f.MakerTotalFilled != 5 {
		t.Fatalf("unexpected taker/maker total %+v", f)
	}
}

func TestParseDeleveraging(t *testing.T) {
	raw := &stream.OrderbookFill{
		ClobMatch: &stream.ClobMatch{MatchPerpetualDeleveraging: &stream.MatchPerpetualDeleveraging{
			Liquidated:  sid("rekt"),
			PerpetualID: 4,
			Fills: []stream.DeleveragingFill{
				{OffsettingSubaccountID: &stream.SubaccountID{Owner: "lucky", Number: 2}, FillAmount: 11},
			},
		}},
	}

	got, err := Parse(raw, 7)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	f := got[0]
	if f.Kind != Deleveraging || f.TakerIsBuy || f.Subticks != 0 || f.ClobPairID != 4 {
		t.Fatalf("unexpected fill %+v", f)
	}
	want := orderbook.OrderID{OwnerAddress: "lucky", SubaccountNumber: 2}
	if f.Maker != want || f.HasMakerOrder() {
		t.Fatalf("want maker %v without resting order, got %+v", want, f)
	}
}

func TestParseMalformed(t *testing.T) {
	cases := map[string]*stream.OrderbookFill{
		"nil":        nil,
		"no match":   {},
		"no variant": {ClobMatch: &stream.ClobMatch{}},
		"length mismatch": {
			ClobMatch:   &stream.ClobMatch{MatchOrders: &stream.MatchOrders{TakerOrderID: pid("t", 1)}},
			Orders:      []stream.Order{order("t", 1, stream.SideBuy, 1)},
			FillAmounts: nil,
		},
		"missing maker": {
			ClobMatch: &stream.ClobMatch{MatchOrders: &stream.MatchOrders{
				TakerOrderID: pid("t", 1),
				Fills:        []stream.MakerFill{{MakerOrderID: pid("m", 1), FillAmount: 1}},
			}},
			Orders:      []stream.Order{order("t", 1, stream.SideBuy, 1)},
			FillAmounts: []stream.Uint64{1},
		},
		"missing taker": {
			ClobMatch: &stream.ClobMatch{MatchOrders: &stream.MatchOrders{
				TakerOrderID: pid("t", 1),
				Fills:        []stream.MakerFill{{MakerOrderID: pid("m", 1), FillAmount: 1}},
			}},
			Orders:      []stream.Order{order("m", 1, stream.SideSell, 1)},
			FillAmounts: []stream.Uint64{1},
		},
		"deleveraging without offsetting": {
			ClobMatch: &stream.ClobMatch{MatchPerpetualDeleveraging: &stream.MatchPerpetualDeleveraging{
				Liquidated: sid("rekt"),
				Fills:      []stream.DeleveragingFill{{FillAmount: 1}},
			}},
		},
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse(raw, 7); !errors.Is(err, ErrMalformed) {
				t.Fatalf("want ErrMalformed, got %v", err)
			}
		})
	}
}
