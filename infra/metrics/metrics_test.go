package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"lobfeed/domain/feed"
	"lobfeed/domain/fills"
	"lobfeed/domain/orderbook"
)

func TestTakerOrdersPerBlock(t *testing.T) {
	m := New(zerolog.Nop())
	to := NewTakerOrders(m, zerolog.Nop(), false)

	bid := orderbook.Order{Side: orderbook.Bid, ID: orderbook.OrderID{OrderFlags: 0}}
	ask := orderbook.Order{Side: orderbook.Ask, ID: orderbook.OrderID{OrderFlags: 64}}
	cond := orderbook.Order{Side: orderbook.Ask, ID: orderbook.OrderID{OrderFlags: 32}}

	to.ProcessOrder(bid, 0, 10)
	to.ProcessOrder(ask, 0, 10)
	to.ProcessOrder(cond, 0, 10)
	to.ProcessOrder(bid, 0, 11)

	want := BlockSummary{BlockHeight: 10, Orders: 3, Bids: 1, Asks: 2, ShortTerm: 1, Conditional: 1, LongTerm: 1}
	if got := to.Last(); got != want {
		t.Fatalf("want %+v, got %+v", want, got)
	}
	if got := testutil.ToFloat64(m.TakerOrders.WithLabelValues("bid", "short_term")); got != 2 {
		t.Fatalf("want 2 short-term bids, got %v", got)
	}
}

func TestObserverCounters(t *testing.T) {
	m := New(zerolog.Nop())
	var _ feed.Observer = m

	m.Skipped(feed.SkipDuplicateSnapshot)
	m.Skipped(feed.SkipDuplicateSnapshot)
	m.HeightObserved(3, 120)
	m.ObserveFills([]fills.Fill{{Kind: fills.Normal, ExecMode: 7}, {Kind: fills.Liquidation, ExecMode: 1}})
	m.ObserveBook(3, 10, 4, 5)

	if got := testutil.ToFloat64(m.SkippedEvents.WithLabelValues("duplicate_snapshot")); got != 2 {
		t.Fatalf("want 2 skips, got %v", got)
	}
	if got := testutil.ToFloat64(m.BlockHeight.WithLabelValues("3")); got != 120 {
		t.Fatalf("want height 120, got %v", got)
	}
	if got := testutil.ToFloat64(m.FillsTotal.WithLabelValues("NORMAL", "finalized")); got != 1 {
		t.Fatalf("want 1 finalized fill, got %v", got)
	}
	if got := testutil.ToFloat64(m.BookLevels.WithLabelValues("3", "ask")); got != 5 {
		t.Fatalf("want 5 ask levels, got %v", got)
	}
}
