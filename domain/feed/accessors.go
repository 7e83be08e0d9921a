package feed

import (
	"maps"

	"lobfeed/domain/orderbook"
	"lobfeed/domain/subaccount"
)

// Books returns the live books by clob pair id. They are read-only for the
// caller and valid until the next Handle.
func (h *Handler) Books() map[uint32]*orderbook.OrderBook {
	return maps.Clone(h.books)
}

func (h *Handler) Book(clobPairID uint32) (*orderbook.OrderBook, bool) {
	b, ok := h.books[clobPairID]
	return b, ok
}

// Heights returns the last block height seen per clob pair.
func (h *Handler) Heights() map[uint32]uint32 {
	return maps.Clone(h.heights)
}

func (h *Handler) Subaccounts() map[subaccount.ID]subaccount.Subaccount {
	return h.subaccounts.All()
}

// RecentSubaccountUpdates returns the subaccounts changed by the last
// Handle call.
func (h *Handler) RecentSubaccountUpdates() map[subaccount.ID]subaccount.Subaccount {
	out := make(map[subaccount.ID]subaccount.Subaccount, len(h.recent))
	for _, id := range h.recent {
		if s, ok := h.subaccounts.Get(id); ok {
			out[id] = s
		}
	}
	return out
}

// SnapshotSeen reports whether any orderbook snapshot has been applied.
func (h *Handler) SnapshotSeen() bool {
	return h.snapshotSeen
}
