package snapshot

import (
	"encoding/gob"
	"fmt"
	"os"

	"lobfeed/domain/orderbook"
)

func Load(path string) (Dump, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dump{}, err
	}
	defer f.Close()

	var d Dump
	if err := gob.NewDecoder(f).Decode(&d); err != nil {
		return Dump{}, err
	}
	return d, nil
}

// Books rebuilds the dumped books so they can be inspected or compared.
func (d Dump) Rebuild() (map[uint32]*orderbook.OrderBook, error) {
	out := make(map[uint32]*orderbook.OrderBook, len(d.Books))
	for clob, entries := range d.Books {
		book := orderbook.NewOrderBook()
		for _, e := range entries {
			_, err := book.AddOrder(orderbook.Order{
				ID: orderbook.OrderID{
					OwnerAddress:     e.Owner,
					SubaccountNumber: e.SubaccountNumber,
					ClientID:         e.ClientID,
					OrderFlags:       e.OrderFlags,
				},
				Side:             orderbook.Side(e.Side),
				OriginalQuantums: e.OriginalQuantums,
				Quantums:         e.Quantums,
				Subticks:         e.Subticks,
			})
			if err != nil {
				return nil, fmt.Errorf("clob pair %d: %w", clob, err)
			}
		}
		out[clob] = book
	}
	return out, nil
}
