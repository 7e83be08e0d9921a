package printer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"lobfeed/api/stream"
	"lobfeed/domain/fills"
	"lobfeed/domain/orderbook"
	"lobfeed/domain/subaccount"
	"lobfeed/infra/market"
)

var btc = map[uint32]market.Info{
	0: {ClobPairID: 0, Ticker: "BTC-USD", AtomicResolution: -10, QuantumConversionExponent: -9},
}

func order(owner string, client uint32, subticks, quantums uint64) orderbook.Order {
	return orderbook.Order{
		ID:       orderbook.OrderID{OwnerAddress: owner, ClientID: client},
		Subticks: subticks,
		Quantums: quantums,
	}
}

func TestPrintBooks(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, btc, Options{Books: true}, zerolog.Nop())

	p.PrintBooks(map[uint32]orderbook.TopOfBook{
		0: {
			Asks: []orderbook.Order{order("a1", 1, 6_500_100_000, 10_000_000_000), order("a2", 2, 6_500_200_000, 10_000_000_000)},
			Bids: []orderbook.Order{order("b1", 3, 6_500_000_000, 25_000_000_000)},
		},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("want 6 lines, got %d:\n%s", len(lines), buf.String())
	}
	if lines[0] != "Book for CLOB pair 0 (BTC-USD):" {
		t.Fatalf("unexpected title %q", lines[0])
	}
	// Worst ask first so the spread sits in the middle.
	if !strings.Contains(lines[2], "65002.000000") || !strings.Contains(lines[3], "65001.000000") {
		t.Fatalf("asks not reversed:\n%s", buf.String())
	}
	if !strings.Contains(lines[5], "65000.000000") || !strings.Contains(lines[5], "2.500000") {
		t.Fatalf("unexpected bid line %q", lines[5])
	}
}

func TestPrintFills(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, btc, Options{Fills: true}, zerolog.Nop())

	p.PrintFills([]fills.Fill{{
		ClobPairID: 0,
		Maker:      orderbook.OrderID{OwnerAddress: "maker", ClientID: 1},
		Taker:      orderbook.OrderID{OwnerAddress: "taker", ClientID: 2},
		Quantums:   25_000_000_000,
		Subticks:   6_500_000_000,
		TakerIsBuy: true,
		ExecMode:   stream.ExecModeFinalize,
	}})

	want := "(finalized) NORMAL buy 2.500000 @ 65000.000000 taker=taker/0/2/0 maker=maker/0/1/0\n"
	if buf.String() != want {
		t.Fatalf("want %q, got %q", want, buf.String())
	}
}

func TestPrintFillsUnknownMarketUsesRawUnits(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, nil, Options{Fills: true}, zerolog.Nop())

	p.PrintFills([]fills.Fill{{ClobPairID: 9, Quantums: 3, Subticks: 7}})

	if !strings.HasPrefix(buf.String(), "(optimistic) NORMAL sell 3 @ 7 ") {
		t.Fatalf("unexpected line %q", buf.String())
	}
}

func TestPrintSubaccounts(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, nil, Options{Accounts: true}, zerolog.Nop())

	s := subaccount.New(subaccount.ID{Owner: "alice", Number: 0})
	s.PerpetualPositions[1] = -2
	s.AssetPositions[0] = 100

	p.PrintSubaccounts(map[subaccount.ID]subaccount.Subaccount{s.ID: s})

	want := "Subaccount ID: alice/0 | Perpetual Positions: Perpetual ID: 1, Quantums: -2 | Asset Positions: Asset ID: 0, Quantums: 100\n"
	if buf.String() != want {
		t.Fatalf("want %q, got %q", want, buf.String())
	}
}

func TestDisabledOutputsPrintNothing(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, btc, Options{}, zerolog.Nop())

	p.PrintFills([]fills.Fill{{ClobPairID: 0}})
	p.PrintSubaccounts(map[subaccount.ID]subaccount.Subaccount{{Owner: "x"}: subaccount.New(subaccount.ID{Owner: "x"})})

	if buf.Len() != 0 {
		t.Fatalf("want no output, got %q", buf.String())
	}
}
