package matching

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

// ParseSide maps the wire representation of a side onto its domain value.
func ParseSide(s string) (Side, bool) {
	switch s {
	case "BUY":
		return Buy, true
	case "SELL":
		return Sell, true
	}
	return 0, false
}

type Status int

const (
	Open Status = iota
	Partial
	Filled
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Open:
		return "OPEN"
	case Partial:
		return "PARTIAL"
	case Filled:
		return "FILLED"
	case Cancelled:
		return "CANCELLED"
	}
	return "UNKNOWN"
}

// Order is one party's interest in an instrument. While resting in a book
// it is owned exclusively by the engine; Filled is mutated in place as
// matches occur and never after removal.
type Order struct {
	ID        string
	UserID    string
	Side      Side
	Price     decimal.Decimal
	Qty       decimal.Decimal
	Filled    decimal.Decimal
	CreatedAt time.Time

	next *Order
	prev *Order
}

func (o *Order) Remaining() decimal.Decimal {
	return o.Qty.Sub(o.Filled)
}

func (o *Order) Exhausted() bool {
	return !o.Remaining().IsPositive()
}

// Status derives the lifecycle state from the cumulative fill.
// Cancelled is never derived here; withdrawal is the caller's transition.
func (o *Order) Status() Status {
	switch {
	case o.Filled.IsZero():
		return Open
	case o.Filled.GreaterThanOrEqual(o.Qty):
		return Filled
	default:
		return Partial
	}
}

// Next supports read-only traversal of a price level's queue.
func (o *Order) Next() *Order {
	return o.next
}
