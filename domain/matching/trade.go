package matching

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade records one match. Created exactly once per match event and never
// mutated; the execution price is always the resting order's price.
type Trade struct {
	ID          string
	Instrument  string
	BuyOrderID  string
	SellOrderID string
	Price       decimal.Decimal
	Qty         decimal.Decimal
	ExecutedAt  time.Time
}

// OrderUpdate reports an order's cumulative fill after one match. Filled is
// the running total, not a delta, so callers may apply updates in order or
// collapse to the last entry per order ID.
type OrderUpdate struct {
	OrderID string
	Filled  decimal.Decimal
	Status  Status
}

// MatchResult is everything a Submit call produced. Trades are in execution
// order; Updates may contain several entries for the same order if it was
// touched by several trades in the same call.
type MatchResult struct {
	Trades  []Trade
	Updates []OrderUpdate
}
