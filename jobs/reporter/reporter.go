package reporter

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"lobfeed/domain/subaccount"
)

// Publisher is satisfied by infra/kafka.Producer.
type Publisher interface {
	SendBatch(ctx context.Context, msgs []kafka.Message) error
}

// Report is the published state of one subaccount after an update.
type Report struct {
	Owner              string            `json:"owner"`
	Number             uint32            `json:"number"`
	PerpetualPositions map[string]string `json:"perpetualPositions"`
	AssetPositions     map[string]string `json:"assetPositions"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

func newReport(s subaccount.Subaccount, now time.Time) Report {
	return Report{
		Owner:              s.ID.Owner,
		Number:             s.ID.Number,
		PerpetualPositions: positions(s.PerpetualPositions),
		AssetPositions:     positions(s.AssetPositions),
		UpdatedAt:          now.UTC(),
	}
}

// Quantities are strings so 64-bit values survive JSON consumers.
func positions(in map[uint32]int64) map[string]string {
	out := make(map[string]string, len(in))
	for id, q := range in {
		out[strconv.FormatUint(uint64(id), 10)] = strconv.FormatInt(q, 10)
	}
	return out
}

// Reporter publishes the subaccounts touched by each handled message. The
// feed never waits on it: when the queue is full the batch is dropped and
// counted.
type Reporter struct {
	pub    Publisher
	queue  chan []subaccount.Subaccount
	logger zerolog.Logger

	dropped int
}

func New(pub Publisher, buffer int, logger zerolog.Logger) *Reporter {
	return &Reporter{
		pub:    pub,
		queue:  make(chan []subaccount.Subaccount, buffer),
		logger: logger.With().Str("component", "reporter").Logger(),
	}
}

// Submit queues changed subaccounts for publication. Safe to call from the
// feed goroutine only.
func (r *Reporter) Submit(changed map[subaccount.ID]subaccount.Subaccount) {
	if len(changed) == 0 {
		return
	}
	batch := make([]subaccount.Subaccount, 0, len(changed))
	for _, s := range changed {
		batch = append(batch, s)
	}
	slices.SortFunc(batch, func(a, b subaccount.Subaccount) int {
		if c := cmp.Compare(a.ID.Owner, b.ID.Owner); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.Number, b.ID.Number)
	})

	select {
	case r.queue <- batch:
	default:
		r.dropped++
		r.logger.Warn().Int("subaccounts", len(batch)).Int("dropped_batches", r.dropped).Msg("report queue full")
	}
}

// Run publishes queued batches until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-r.queue:
			if err := r.publish(ctx, batch); err != nil {
				r.logger.Error().Err(err).Int("subaccounts", len(batch)).Msg("publish failed")
			}
		}
	}
}

func (r *Reporter) publish(ctx context.Context, batch []subaccount.Subaccount) error {
	now := time.Now()
	msgs := make([]kafka.Message, 0, len(batch))
	for _, s := range batch {
		b, err := json.Marshal(newReport(s, now))
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{Key: []byte(s.ID.String()), Value: b, Time: now})
	}
	return r.pub.SendBatch(ctx, msgs)
}
