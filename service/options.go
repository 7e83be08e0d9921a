package service

import (
	"github.com/rs/zerolog"

	"lobfeed/infra/journal"
	"lobfeed/infra/market"
	"lobfeed/infra/metrics"
	"lobfeed/jobs/printer"
	"lobfeed/jobs/reporter"
	"lobfeed/snapshot"
)

type Option func(*FeedService)

func WithLogger(l zerolog.Logger) Option {
	return func(s *FeedService) { s.logger = l }
}

func WithJournal(j *journal.Journal) Option {
	return func(s *FeedService) { s.journal = j }
}

// FillQueue durably queues encoded fill events, all of a batch or none.
// *outbox.Outbox implements it.
type FillQueue interface {
	EnqueueBatch(payloads [][]byte) ([]uint64, error)
}

func WithOutbox(o FillQueue) Option {
	return func(s *FeedService) { s.outbox = o }
}

func WithDumps(w *snapshot.Writer) Option {
	return func(s *FeedService) { s.dumps = w }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *FeedService) { s.metrics = m }
}

func WithMarkets(m map[uint32]market.Info) Option {
	return func(s *FeedService) { s.markets = m }
}

func WithPrinter(p *printer.Printer) Option {
	return func(s *FeedService) { s.printer = p }
}

func WithReporter(r *reporter.Reporter) Option {
	return func(s *FeedService) { s.reporter = r }
}
