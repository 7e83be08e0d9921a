package printer

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lobfeed/domain/fills"
	"lobfeed/domain/orderbook"
	"lobfeed/domain/subaccount"
	"lobfeed/infra/market"
)

// BookSource hands out detached copies of every book.
type BookSource interface {
	TopOfBooks(depth int) map[uint32]orderbook.TopOfBook
}

type Options struct {
	Books    bool
	Fills    bool
	Accounts bool
	Depth    int
}

// Printer renders books, fills and subaccounts for a terminal. Prices and
// sizes are shown in human units when market metadata is known and in raw
// subticks and quantums otherwise.
type Printer struct {
	out     io.Writer
	markets map[uint32]market.Info
	opts    Options
	logger  zerolog.Logger
}

func New(out io.Writer, markets map[uint32]market.Info, opts Options, logger zerolog.Logger) *Printer {
	if opts.Depth <= 0 {
		opts.Depth = 5
	}
	return &Printer{
		out:     out,
		markets: markets,
		opts:    opts,
		logger:  logger.With().Str("component", "printer").Logger(),
	}
}

// Run prints every book each interval until ctx is cancelled.
func (p *Printer) Run(ctx context.Context, src BookSource, interval time.Duration) {
	if !p.opts.Books {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PrintBooks(src.TopOfBooks(p.opts.Depth))
		}
	}
}

func (p *Printer) PrintBooks(books map[uint32]orderbook.TopOfBook) {
	for _, clob := range slices.Sorted(maps.Keys(books)) {
		top := books[clob]
		info, ok := p.markets[clob]
		if !ok {
			p.logger.Debug().Uint32("clob_pair_id", clob).Msg("no market info, printing raw units")
		}

		fmt.Fprintf(p.out, "Book for CLOB pair %d (%s):\n", clob, cmp.Or(info.Ticker, "?"))
		fmt.Fprintf(p.out, "%12s %12s %12s %43s Acc\n", "Price", "Qty", "Client Id", "Address")

		asks := slices.Clone(top.Asks)
		slices.Reverse(asks)
		for _, o := range asks {
			p.printOrder(info, ok, o)
		}
		fmt.Fprintf(p.out, "%12s %12s\n", "--", "--")
		for _, o := range top.Bids {
			p.printOrder(info, ok, o)
		}
	}
}

func (p *Printer) printOrder(info market.Info, known bool, o orderbook.Order) {
	price, size := p.units(info, known, o.Subticks, o.Quantums)
	fmt.Fprintf(p.out, "%12s %12s %12d %43s %d\n",
		price, size, o.ID.ClientID, o.ID.OwnerAddress, o.ID.SubaccountNumber)
}

// PrintFills prints one line per fill.
func (p *Printer) PrintFills(fs []fills.Fill) {
	if !p.opts.Fills {
		return
	}
	for _, f := range fs {
		info, ok := p.markets[f.ClobPairID]
		price, size := p.units(info, ok, f.Subticks, f.Quantums)

		mode := "(optimistic)"
		if f.Finalized() {
			mode = "(finalized)"
		}
		side := "sell"
		if f.TakerIsBuy {
			side = "buy"
		}
		fmt.Fprintf(p.out, "%s %s %s %s @ %s taker=%s maker=%s\n",
			mode, f.Kind, side, size, price, f.Taker, f.Maker)
	}
}

// PrintSubaccounts prints one line per subaccount, in id order.
func (p *Printer) PrintSubaccounts(subs map[subaccount.ID]subaccount.Subaccount) {
	if !p.opts.Accounts {
		return
	}
	ids := slices.SortedFunc(maps.Keys(subs), func(a, b subaccount.ID) int {
		return cmp.Or(cmp.Compare(a.Owner, b.Owner), cmp.Compare(a.Number, b.Number))
	})
	for _, id := range ids {
		s := subs[id]
		fmt.Fprintf(p.out, "Subaccount ID: %s | Perpetual Positions: %s | Asset Positions: %s\n",
			id, positions("Perpetual", s.PerpetualPositions), positions("Asset", s.AssetPositions))
	}
}

func positions(label string, in map[uint32]int64) string {
	parts := make([]string, 0, len(in))
	for _, id := range slices.Sorted(maps.Keys(in)) {
		parts = append(parts, fmt.Sprintf("%s ID: %d, Quantums: %d", label, id, in[id]))
	}
	return strings.Join(parts, ", ")
}

func (p *Printer) units(info market.Info, known bool, subticks, quantums uint64) (price, size string) {
	if !known {
		return fmt.Sprintf("%d", subticks), fmt.Sprintf("%d", quantums)
	}
	return info.SubticksToPrice(subticks).StringFixed(6), info.QuantumsToSize(quantums).StringFixed(6)
}
