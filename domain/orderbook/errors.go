package orderbook

import "errors"

var (
	ErrDuplicateOrder = errors.New("duplicate order")
	ErrUnknownOrder   = errors.New("unknown order")
	ErrInvalidSide    = errors.New("invalid order side")
	ErrCrossedBook    = errors.New("crossed book")
	ErrOverfill       = errors.New("filled quantity exceeds original quantity")
	ErrEmptyLevel     = errors.New("empty price level")
)
