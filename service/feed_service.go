package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lobfeed/api/stream"
	"lobfeed/domain/feed"
	"lobfeed/domain/fills"
	"lobfeed/infra/journal"
	"lobfeed/infra/market"
	"lobfeed/infra/metrics"
	"lobfeed/jobs/printer"
	"lobfeed/jobs/reporter"
	"lobfeed/snapshot"
)

// ErrHandlerReset wraps every error after which the handler was replaced.
// The state is empty until the next snapshot arrives.
var ErrHandlerReset = errors.New("feed handler reset")

// ErrFillsPending is returned when fills from an earlier message still could
// not be queued. The message was not consumed and should be offered again.
var ErrFillsPending = errors.New("fills pending")

// FeedService serializes access to one feed handler. All collaborators are
// optional.
type FeedService struct {
	mu         sync.Mutex
	handler    *feed.Handler
	newHandler func() *feed.Handler

	journal  *journal.Journal
	outbox   FillQueue
	dumps    *snapshot.Writer
	metrics  *metrics.Metrics
	markets  map[uint32]market.Info
	printer  *printer.Printer
	reporter *reporter.Reporter
	logger   zerolog.Logger

	// encoded fills of a consumed message that the outbox refused
	pending [][]byte

	now func() time.Time
}

// New builds a service around handlers produced by newHandler, which is
// called again on every reset.
func New(newHandler func() *feed.Handler, opts ...Option) *FeedService {
	s := &FeedService{
		handler:    newHandler(),
		newHandler: newHandler,
		logger:     zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

// Ingest handles one raw stream message. A returned error wrapping
// ErrHandlerReset means the stream must be resubscribed for the mirror to
// recover; any other error is an infrastructure failure and leaves the
// handler untouched.
//
// Fills the outbox refuses are kept and retried before the next message is
// consumed. Until they are queued Ingest returns ErrFillsPending.
func (s *FeedService) Ingest(ctx context.Context, raw []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flush(); err != nil {
		return fmt.Errorf("%w: %w", ErrFillsPending, err)
	}

	if s.metrics != nil {
		s.metrics.MessagesTotal.Inc()
	}

	if s.journal != nil {
		if err := s.journal.Append(journal.NewRecord(journal.RecordMessage, raw)); err != nil {
			return fmt.Errorf("journal: %w", err)
		}
	}

	resp, err := stream.Decode(raw)
	if err != nil {
		return s.fail(err)
	}

	fs, err := s.handler.Handle(resp)
	if err != nil {
		return s.fail(err)
	}

	if err := s.publish(fs); err != nil {
		s.logger.Error().Err(err).Int("fills", len(s.pending)).Msg("fills held until the outbox recovers")
	}

	s.observe(fs)
	return nil
}

// IngestRetrying offers raw to Ingest until it is consumed, sleeping
// backoff(retry) between attempts refused with ErrFillsPending.
func (s *FeedService) IngestRetrying(ctx context.Context, raw []byte, backoff func(retry int) time.Duration) error {
	for retry := 0; ; retry++ {
		err := s.Ingest(ctx, raw)
		if !errors.Is(err, ErrFillsPending) {
			return err
		}

		delay := backoff(retry)
		s.logger.Warn().Err(err).Int("retry", retry).Dur("delay", delay).Msg("outbox unavailable, holding message")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Reset discards the handler. The transport calls it before a new
// subscription starts, since the new stream opens with a fresh snapshot.
func (s *FeedService) Reset(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reset(reason)
}

func (s *FeedService) reset(reason string) error {
	s.handler = s.newHandler()
	if s.metrics != nil {
		s.metrics.FeedResets.Inc()
	}
	s.logger.Info().Str("reason", reason).Msg("feed handler reset, awaiting snapshot")

	if s.journal != nil {
		if err := s.journal.Append(journal.NewRecord(journal.RecordReset, []byte(reason))); err != nil {
			return fmt.Errorf("journal: %w", err)
		}
	}
	return nil
}

// fail dumps the failed handler and replaces it.
func (s *FeedService) fail(cause error) error {
	s.logger.Error().Err(cause).Msg("feed handler failed")
	if s.metrics != nil {
		s.metrics.FeedErrors.Inc()
	}

	if s.dumps != nil {
		var seq uint64
		if s.journal != nil {
			seq = s.journal.LastSeq()
		}
		d := snapshot.Capture(seq, cause.Error(), s.handler.Books(), s.handler.Heights())
		if path, err := s.dumps.Write(d); err != nil {
			s.logger.Error().Err(err).Msg("write post-mortem dump")
		} else {
			s.logger.Warn().Str("path", path).Msg("post-mortem dump written")
		}
	}

	if err := s.reset(cause.Error()); err != nil {
		return errors.Join(fmt.Errorf("%w: %w", ErrHandlerReset, cause), err)
	}
	return fmt.Errorf("%w: %w", ErrHandlerReset, cause)
}

// publish queues fills for the broadcaster. Encoded events stay pending if
// the outbox fails.
func (s *FeedService) publish(fs []fills.Fill) error {
	if s.outbox == nil || len(fs) == 0 {
		return nil
	}

	heights := s.handler.Heights()
	now := s.now()
	for _, f := range fs {
		e := fills.NewEvent(f, heights[f.ClobPairID], now)
		if info, ok := s.markets[f.ClobPairID]; ok {
			e.Ticker = info.Ticker
			e.Size = info.QuantumsToSize(f.Quantums).String()
			if f.Kind != fills.Deleveraging {
				e.Price = info.SubticksToPrice(f.Subticks).String()
			}
		}

		b, err := e.Marshal()
		if err != nil {
			s.logger.Error().Err(err).Str("event", e.ID).Msg("encode fill event")
			continue
		}
		s.pending = append(s.pending, b)
	}
	return s.flush()
}

func (s *FeedService) flush() error {
	if len(s.pending) == 0 {
		return nil
	}
	if _, err := s.outbox.EnqueueBatch(s.pending); err != nil {
		return fmt.Errorf("outbox: %w", err)
	}
	s.pending = nil
	return nil
}

// PendingFills counts encoded fills waiting for the outbox.
func (s *FeedService) PendingFills() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *FeedService) observe(fs []fills.Fill) {
	recent := s.handler.RecentSubaccountUpdates()

	if s.metrics != nil {
		s.metrics.ObserveFills(fs)
		for clob, book := range s.handler.Books() {
			bids, asks := book.Depth()
			s.metrics.ObserveBook(clob, book.Len(), bids, asks)
		}
	}
	if s.printer != nil {
		s.printer.PrintFills(fs)
		s.printer.PrintSubaccounts(recent)
	}
	if s.reporter != nil {
		s.reporter.Submit(recent)
	}
}
