// Package fills translates the protocol's match records (regular matches,
// liquidations and deleveraging) into normalized maker/taker fills.
//
// Parse is pure: it reads only the record it is given. Each regular or
// liquidation fill carries the maker's cumulative filled quantity so the
// caller can resynchronize the resting order without a second lookup.
package fills
