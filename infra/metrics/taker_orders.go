package metrics

import (
	"github.com/rs/zerolog"

	"lobfeed/domain/orderbook"
)

// Order flag values of the protocol's order id.
const (
	flagShortTerm   = 0
	flagConditional = 32
	flagLongTerm    = 64
)

// BlockSummary counts the taker orders seen in one block.
type BlockSummary struct {
	BlockHeight uint32
	Orders      int
	Bids        int
	Asks        int
	ShortTerm   int
	Conditional int
	LongTerm    int
}

// TakerOrders counts taker orders per block and emits a summary whenever the
// block height changes.
type TakerOrders struct {
	metrics *Metrics
	logger  zerolog.Logger
	print   bool

	current BlockSummary
	last    BlockSummary
}

func NewTakerOrders(m *Metrics, logger zerolog.Logger, print bool) *TakerOrders {
	return &TakerOrders{metrics: m, logger: logger, print: print}
}

func (t *TakerOrders) ProcessOrder(o orderbook.Order, _ uint32, blockHeight uint32) {
	if blockHeight != t.current.BlockHeight && blockHeight != 0 && t.current.Orders > 0 {
		t.flush()
	}
	t.current.BlockHeight = blockHeight
	t.current.Orders++

	side := "ask"
	if o.IsBid() {
		side = "bid"
		t.current.Bids++
	} else {
		t.current.Asks++
	}

	kind := "other"
	switch o.ID.OrderFlags {
	case flagShortTerm:
		kind = "short_term"
		t.current.ShortTerm++
	case flagConditional:
		kind = "conditional"
		t.current.Conditional++
	case flagLongTerm:
		kind = "long_term"
		t.current.LongTerm++
	}

	if t.metrics != nil {
		t.metrics.TakerOrders.WithLabelValues(side, kind).Inc()
	}
}

// Last returns the summary of the most recently completed block.
func (t *TakerOrders) Last() BlockSummary {
	return t.last
}

func (t *TakerOrders) flush() {
	s := t.current
	if t.print {
		t.logger.Info().
			Uint32("block", s.BlockHeight).
			Int("orders", s.Orders).
			Int("bids", s.Bids).
			Int("asks", s.Asks).
			Int("short_term", s.ShortTerm).
			Int("long_term", s.LongTerm).
			Int("conditional", s.Conditional).
			Msg("taker orders")
	}
	t.last = s
	t.current = BlockSummary{}
}
