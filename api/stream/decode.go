package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"lobfeed/domain/orderbook"
	"lobfeed/domain/subaccount"
)

// ErrMalformed marks an event missing a field the protocol requires.
var ErrMalformed = errors.New("malformed stream event")

// ExecModeFinalize is the execution mode of updates emitted when a block is
// committed. Every other mode is optimistic.
const ExecModeFinalize = 7

// Decode parses one websocket or kafka message.
func Decode(raw []byte) (*Response, error) {
	var r Response
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &r, nil
}

// Domain converts a protocol order id. The instrument is returned
// separately since the book key does not include it.
func (id *OrderID) Domain() (orderbook.OrderID, error) {
	if id == nil {
		return orderbook.OrderID{}, fmt.Errorf("%w: missing order id", ErrMalformed)
	}
	if id.SubaccountID == nil {
		return orderbook.OrderID{}, fmt.Errorf("%w: order id without subaccount", ErrMalformed)
	}
	return orderbook.OrderID{
		OwnerAddress:     id.SubaccountID.Owner,
		SubaccountNumber: id.SubaccountID.Number,
		ClientID:         id.ClientID,
		OrderFlags:       id.OrderFlags,
	}, nil
}

// Domain converts a protocol order into a fresh, unfilled resting order.
func (o *Order) Domain() (orderbook.Order, uint32, error) {
	if o == nil {
		return orderbook.Order{}, 0, fmt.Errorf("%w: missing order", ErrMalformed)
	}
	id, err := o.OrderID.Domain()
	if err != nil {
		return orderbook.Order{}, 0, err
	}
	var side orderbook.Side
	switch o.Side {
	case SideBuy:
		side = orderbook.Bid
	case SideSell:
		side = orderbook.Ask
	default:
		return orderbook.Order{}, 0, fmt.Errorf("%w: order %s has side %d", ErrMalformed, id, o.Side)
	}
	return orderbook.Order{
		ID:               id,
		Side:             side,
		OriginalQuantums: uint64(o.Quantums),
		Quantums:         uint64(o.Quantums),
		Subticks:         uint64(o.Subticks),
	}, o.OrderID.ClobPairID, nil
}

func (id *SubaccountID) Domain() (subaccount.ID, error) {
	if id == nil {
		return subaccount.ID{}, fmt.Errorf("%w: missing subaccount id", ErrMalformed)
	}
	return subaccount.ID{Owner: id.Owner, Number: id.Number}, nil
}

// Domain converts a subaccount update into the positions it carries.
func (u *SubaccountUpdate) Domain() (subaccount.Subaccount, error) {
	id, err := u.SubaccountID.Domain()
	if err != nil {
		return subaccount.Subaccount{}, err
	}
	s := subaccount.New(id)
	for _, p := range u.UpdatedPerpetualPositions {
		s.PerpetualPositions[p.PerpetualID] = int64(p.Quantums)
	}
	for _, p := range u.UpdatedAssetPositions {
		s.AssetPositions[p.AssetID] = int64(p.Quantums)
	}
	return s, nil
}
