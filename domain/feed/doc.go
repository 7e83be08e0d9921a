// Package feed is the state machine that turns the full node's orderbook
// stream into local books, fills and subaccount positions.
//
// Orderbook deltas and fills are dropped until the first orderbook
// snapshot has been applied; later snapshots are ignored. Block heights
// must be positive and never decrease per clob pair. Duplicate placements,
// removals of unknown orders, crossed books and malformed events are
// returned as errors and leave the handler unusable: the caller rebuilds
// from the next snapshot with a new Handler.
package feed
