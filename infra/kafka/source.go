package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// MessageFunc consumes one raw stream message.
type MessageFunc func(ctx context.Context, raw []byte) error

// Source reads captured stream messages from a topic. It is the kafka
// alternative to the websocket transport: a relay publishes the full node
// stream verbatim and any number of mirrors consume it.
type Source struct {
	reader *kafka.Reader
	logger zerolog.Logger
}

func NewSource(brokers []string, topic, group string, logger zerolog.Logger) *Source {
	return &Source{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          topic,
			GroupID:        group,
			MinBytes:       1,
			MaxBytes:       10e6,
			MaxWait:        250 * time.Millisecond,
			CommitInterval: time.Second,
		}),
		logger: logger.With().Str("component", "kafka_source").Str("topic", topic).Logger(),
	}
}

// Run delivers messages to fn until ctx is cancelled or fn fails. Offsets
// are committed only after fn returns.
func (s *Source) Run(ctx context.Context, fn MessageFunc) error {
	s.logger.Info().Msg("consuming stream")
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		if err := fn(ctx, msg.Value); err != nil {
			return err
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			s.logger.Warn().Err(err).Int64("offset", msg.Offset).Msg("commit failed")
		}
	}
}

func (s *Source) Close() error {
	return s.reader.Close()
}
