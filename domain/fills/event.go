package fills

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the published form of a fill. Price and Size are filled in when
// market metadata for the instrument is known.
type Event struct {
	ID               string    `json:"id"`
	ClobPairID       uint32    `json:"clobPairId"`
	Ticker           string    `json:"ticker,omitempty"`
	BlockHeight      uint32    `json:"blockHeight"`
	Kind             string    `json:"kind"`
	Finalized        bool      `json:"finalized"`
	TakerIsBuy       bool      `json:"takerIsBuy"`
	Maker            string    `json:"maker"`
	Taker            string    `json:"taker"`
	Quantums         uint64    `json:"quantums,string"`
	Subticks         uint64    `json:"subticks,string"`
	MakerTotalFilled uint64    `json:"makerTotalFilled,string"`
	Size             string    `json:"size,omitempty"`
	Price            string    `json:"price,omitempty"`
	ReceivedAt       time.Time `json:"receivedAt"`
}

// NewEvent gives f a fresh id.
func NewEvent(f Fill, height uint32, now time.Time) Event {
	return Event{
		ID:               uuid.NewString(),
		ClobPairID:       f.ClobPairID,
		BlockHeight:      height,
		Kind:             f.Kind.String(),
		Finalized:        f.Finalized(),
		TakerIsBuy:       f.TakerIsBuy,
		Maker:            f.Maker.String(),
		Taker:            f.Taker.String(),
		Quantums:         f.Quantums,
		Subticks:         f.Subticks,
		MakerTotalFilled: f.MakerTotalFilled,
		ReceivedAt:       now.UTC(),
	}
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func UnmarshalEvent(b []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(b, &e)
	return e, err
}
