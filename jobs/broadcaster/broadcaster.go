package broadcaster

import (
	"context"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"lobfeed/domain/fills"
	"lobfeed/infra/metrics"
	"lobfeed/infra/outbox"
)

// FillSink is a second destination for fill events, such as the postgres
// store.
type FillSink interface {
	Insert(ctx context.Context, e fills.Event) error
}

// Broadcaster drains the fill outbox. An entry is acknowledged only after
// every configured destination accepted it; a failure leaves it for the
// next pass, so delivery is at least once and consumers dedupe on the
// event id.
type Broadcaster struct {
	outbox   *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	sink     FillSink
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	Interval time.Duration
}

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

// NewSyncProducer builds the kafka producer the broadcaster publishes with.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Version = sarama.V2_1_0_0

	return sarama.NewSyncProducer(brokers, cfg)
}

// New accepts a nil producer or a nil sink, not both.
func New(
	ob *outbox.Outbox,
	producer sarama.SyncProducer,
	topic string,
	sink FillSink,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Broadcaster {
	return &Broadcaster{
		outbox:   ob,
		producer: producer,
		topic:    topic,
		sink:     sink,
		metrics:  m,
		logger:   logger.With().Str("component", "broadcaster").Logger(),
		Interval: 250 * time.Millisecond,
	}
}

// ------------------------------------------------
// LOOP
// ------------------------------------------------

// Run drains the outbox every Interval until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	b.logger.Info().Str("topic", b.topic).Msg("started")

	ticker := time.NewTicker(b.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.Drain(ctx); err != nil {
				b.logger.Error().Err(err).Msg("drain failed")
			}
		}
	}
}

// Drain makes one pass over every unacknowledged entry.
func (b *Broadcaster) Drain(ctx context.Context) error {
	var seqs []uint64
	err := b.outbox.ScanPending(func(e outbox.Entry) error {
		seqs = append(seqs, e.Seq)
		return nil
	})
	if err != nil {
		return err
	}

	for _, seq := range seqs {
		if ctx.Err() != nil {
			return nil
		}
		b.deliver(ctx, seq)
	}

	if b.metrics != nil {
		if n, err := b.outbox.Pending(); err == nil {
			b.metrics.OutboxPending.Set(float64(n))
		}
	}
	return nil
}

func (b *Broadcaster) deliver(ctx context.Context, seq uint64) {
	entry, err := b.outbox.Get(seq)
	if err != nil {
		b.logger.Error().Err(err).Uint64("seq", seq).Msg("read entry")
		return
	}

	if err := b.outbox.MarkSent(seq); err != nil {
		b.logger.Error().Err(err).Uint64("seq", seq).Msg("mark sent")
		return
	}

	event, err := fills.UnmarshalEvent(entry.Payload)
	if err != nil {
		// Undecodable entries can never succeed.
		b.logger.Error().Err(err).Uint64("seq", seq).Msg("dropping undecodable entry")
		_ = b.outbox.MarkAcked(seq)
		return
	}

	if b.producer != nil {
		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(strconv.FormatUint(uint64(event.ClobPairID), 10)),
			Value: sarama.ByteEncoder(entry.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.fail(seq, "kafka", err)
			return
		}
		b.published("kafka")
	}

	if b.sink != nil {
		if err := b.sink.Insert(ctx, event); err != nil {
			b.fail(seq, "postgres", err)
			return
		}
		b.published("postgres")
	}

	if err := b.outbox.MarkAcked(seq); err != nil {
		b.logger.Error().Err(err).Uint64("seq", seq).Msg("mark acked")
	}
}

func (b *Broadcaster) fail(seq uint64, sink string, err error) {
	b.logger.Warn().Err(err).Uint64("seq", seq).Str("sink", sink).Msg("delivery failed, will retry")
	if err := b.outbox.MarkFailed(seq); err != nil {
		b.logger.Error().Err(err).Uint64("seq", seq).Msg("mark failed")
	}
}

func (b *Broadcaster) published(sink string) {
	if b.metrics != nil {
		b.metrics.PublishedFills.WithLabelValues(sink).Inc()
	}
}

// ------------------------------------------------
// SHUTDOWN
// ------------------------------------------------

func (b *Broadcaster) Close() error {
	if b.producer == nil {
		return nil
	}
	return b.producer.Close()
}
