package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"lobfeed/domain/feed"
	"lobfeed/domain/fills"
)

// Metrics holds the feed's collectors. Each instance owns its registry.
type Metrics struct {
	Registry *prometheus.Registry

	SkippedEvents  *prometheus.CounterVec
	BlockHeight    *prometheus.GaugeVec
	FillsTotal     *prometheus.CounterVec
	TakerOrders    *prometheus.CounterVec
	BookOrders     *prometheus.GaugeVec
	BookLevels     *prometheus.GaugeVec
	FeedErrors     prometheus.Counter
	FeedResets     prometheus.Counter
	WSReconnects   prometheus.Counter
	MessagesTotal  prometheus.Counter
	OutboxPending  prometheus.Gauge
	PublishedFills *prometheus.CounterVec
}

func New(logger zerolog.Logger) *Metrics {
	m := &Metrics{
		Registry:       prometheus.NewRegistry(),
		SkippedEvents:  prometheus.NewCounterVec(prometheus.CounterOpts{Name: "lobfeed_skipped_events_total", Help: "Stream events skipped without error, by reason"}, []string{"reason"}),
		BlockHeight:    prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "lobfeed_block_height", Help: "Last block height applied per clob pair"}, []string{"clob_pair"}),
		FillsTotal:     prometheus.NewCounterVec(prometheus.CounterOpts{Name: "lobfeed_fills_total", Help: "Fills emitted by kind and execution mode"}, []string{"kind", "mode"}),
		TakerOrders:    prometheus.NewCounterVec(prometheus.CounterOpts{Name: "lobfeed_taker_orders_total", Help: "Taker orders by side and order type"}, []string{"side", "type"}),
		BookOrders:     prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "lobfeed_book_orders", Help: "Resting orders per clob pair"}, []string{"clob_pair"}),
		BookLevels:     prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "lobfeed_book_levels", Help: "Price levels per clob pair and side"}, []string{"clob_pair", "side"}),
		FeedErrors:     prometheus.NewCounter(prometheus.CounterOpts{Name: "lobfeed_feed_errors_total", Help: "Fatal feed errors"}),
		FeedResets:     prometheus.NewCounter(prometheus.CounterOpts{Name: "lobfeed_feed_resets_total", Help: "Handler resets awaiting a new snapshot"}),
		WSReconnects:   prometheus.NewCounter(prometheus.CounterOpts{Name: "lobfeed_ws_reconnects_total", Help: "Websocket reconnects"}),
		MessagesTotal:  prometheus.NewCounter(prometheus.CounterOpts{Name: "lobfeed_messages_total", Help: "Stream messages ingested"}),
		OutboxPending:  prometheus.NewGauge(prometheus.GaugeOpts{Name: "lobfeed_outbox_pending", Help: "Fill events not yet acknowledged by every sink"}),
		PublishedFills: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "lobfeed_published_fills_total", Help: "Fill events delivered per sink"}, []string{"sink"}),
	}

	toRegister := []prometheus.Collector{
		m.SkippedEvents, m.BlockHeight, m.FillsTotal, m.TakerOrders,
		m.BookOrders, m.BookLevels, m.FeedErrors, m.FeedResets,
		m.WSReconnects, m.MessagesTotal, m.OutboxPending, m.PublishedFills,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		m.Registry.MustRegister(c)
	}
	logger.Debug().Msg("prometheus metrics initialized")
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ---- feed.Observer ----

func (m *Metrics) Skipped(reason feed.SkipReason) {
	m.SkippedEvents.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) HeightObserved(clobPairID uint32, height uint32) {
	m.BlockHeight.WithLabelValues(label(clobPairID)).Set(float64(height))
}

func (m *Metrics) ObserveFills(fs []fills.Fill) {
	for _, f := range fs {
		mode := "optimistic"
		if f.Finalized() {
			mode = "finalized"
		}
		m.FillsTotal.WithLabelValues(f.Kind.String(), mode).Inc()
	}
}

// ObserveBook records the size of one book.
func (m *Metrics) ObserveBook(clobPairID uint32, orders, bidLevels, askLevels int) {
	l := label(clobPairID)
	m.BookOrders.WithLabelValues(l).Set(float64(orders))
	m.BookLevels.WithLabelValues(l, "bid").Set(float64(bidLevels))
	m.BookLevels.WithLabelValues(l, "ask").Set(float64(askLevels))
}

func label(clobPairID uint32) string {
	return strconv.FormatUint(uint64(clobPairID), 10)
}
