// Package orderbook holds the local mirror of one instrument's limit order
// book.
//
// Each side is a red-black tree of price levels keyed by subticks; each
// level is an intrusive FIFO of orders. An index from OrderID to the resting
// order gives O(1) lookup and O(1) unlink, so every order is reachable both
// by id and by traversal, or by neither.
//
// The book never matches. It only applies what the feed reports and refuses
// mutations that would break its invariants (duplicate ids, unknown ids,
// over-filled orders). Crossed state is detected with CheckCrossed.
package orderbook
