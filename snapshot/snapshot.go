package snapshot

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is a point-in-time copy of every resting order across all
// instrument books, together with the command sequence it covers. WAL
// records with Seq <= this Seq are already reflected in Orders.
type Snapshot struct {
	Seq     uint64
	Created time.Time
	Orders  []OrderEntry
}

type OrderEntry struct {
	Instrument string
	ID         string
	UserID     string
	Side       int
	Price      decimal.Decimal
	Qty        decimal.Decimal
	Filled     decimal.Decimal
	CreatedAt  time.Time
}
