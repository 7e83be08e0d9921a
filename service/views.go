package service

import (
	"maps"
	"slices"

	"lobfeed/domain/orderbook"
	"lobfeed/domain/subaccount"
)

//
// ──────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────
//
// Every query returns copies taken under the service lock.

// BookView summarizes one book.
type BookView struct {
	ClobPairID  uint32
	BlockHeight uint32
	Orders      int
	BidLevels   int
	AskLevels   int
	Midpoint    float64
	HasMidpoint bool
	Crossed     bool
	Top         orderbook.TopOfBook
}

// Book copies up to depth orders per side; depth 0 copies all of them and a
// negative depth none.
func (s *FeedService) Book(clobPairID uint32, depth int) (BookView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.handler.Book(clobPairID)
	if !ok {
		return BookView{}, false
	}
	return s.view(clobPairID, book, depth), true
}

// Books lists every book in clob pair order.
func (s *FeedService) Books(depth int) []BookView {
	s.mu.Lock()
	defer s.mu.Unlock()

	books := s.handler.Books()
	out := make([]BookView, 0, len(books))
	for _, clob := range slices.Sorted(maps.Keys(books)) {
		out = append(out, s.view(clob, books[clob], depth))
	}
	return out
}

// TopOfBooks serves the printer.
func (s *FeedService) TopOfBooks(depth int) map[uint32]orderbook.TopOfBook {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[uint32]orderbook.TopOfBook)
	for clob, book := range s.handler.Books() {
		out[clob] = book.Top(depth)
	}
	return out
}

func (s *FeedService) view(clob uint32, book *orderbook.OrderBook, depth int) BookView {
	bids, asks := book.Depth()
	mid, ok, err := book.MidpointPrice()
	v := BookView{
		ClobPairID:  clob,
		BlockHeight: s.handler.Heights()[clob],
		Orders:      book.Len(),
		BidLevels:   bids,
		AskLevels:   asks,
		Midpoint:    mid,
		HasMidpoint: ok && err == nil,
		Crossed:     book.CheckCrossed() != nil,
	}
	if depth >= 0 {
		v.Top = book.Top(depth)
	}
	return v
}

func (s *FeedService) Subaccount(id subaccount.ID) (subaccount.Subaccount, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.handler.Subaccounts()[id]
	return sub, ok
}

func (s *FeedService) Subaccounts() map[subaccount.ID]subaccount.Subaccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler.Subaccounts()
}

func (s *FeedService) Heights() map[uint32]uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler.Heights()
}

func (s *FeedService) SnapshotSeen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler.SnapshotSeen()
}
