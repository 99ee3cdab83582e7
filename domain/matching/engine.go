package matching

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Engine matches incoming orders against resting interest under price-time
// priority, one book per instrument. Books are created lazily on first
// reference and live for the lifetime of the engine.
//
// The engine is a pure decision function over its in-memory state: it
// persists nothing and checks no balances. Callers own durability of the
// trades and order updates each call returns.
//
// Mutations on a single instrument are serialized by that instrument's
// lock; different instruments never contend.
type Engine struct {
	mu    sync.RWMutex
	books map[string]*instrumentBook
}

type instrumentBook struct {
	mu   sync.Mutex
	book *OrderBook
}

func NewEngine() *Engine {
	return &Engine{books: make(map[string]*instrumentBook)}
}

// book returns the instrument's book, creating an empty one if absent.
func (e *Engine) book(instrument string) *instrumentBook {
	e.mu.RLock()
	ib := e.books[instrument]
	e.mu.RUnlock()
	if ib != nil {
		return ib
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if ib = e.books[instrument]; ib == nil {
		ib = &instrumentBook{book: NewOrderBook()}
		e.books[instrument] = ib
	}
	return ib
}

// Submit matches o against the opposite side of the instrument's book and
// rests any unfilled remainder. Trades come back in execution order; every
// trade executes at the resting order's price.
//
// A non-positive price or remaining quantity is a no-op, not an error: the
// order is dropped and an empty result returned. Upstream validation is
// expected to have rejected such input already.
func (e *Engine) Submit(instrument string, o *Order) MatchResult {
	var res MatchResult
	if !o.Price.IsPositive() || !o.Remaining().IsPositive() {
		return res
	}

	ib := e.book(instrument)
	ib.mu.Lock()
	defer ib.mu.Unlock()

	book := ib.book
	opposite := Sell
	if o.Side == Sell {
		opposite = Buy
	}

	for o.Remaining().IsPositive() {
		lvl := book.bestLevel(opposite)
		if lvl == nil {
			break
		}
		// Crossing test: levels are price-ordered, so the first failure
		// ends matching for good.
		if !crosses(o, lvl.price) {
			break
		}

		resting := lvl.first()
		qty := decimal.Min(o.Remaining(), resting.Remaining())

		trade := Trade{
			ID:         uuid.NewString(),
			Instrument: instrument,
			Price:      resting.Price,
			Qty:        qty,
			ExecutedAt: time.Now(),
		}
		if o.Side == Buy {
			trade.BuyOrderID = o.ID
			trade.SellOrderID = resting.ID
		} else {
			trade.BuyOrderID = resting.ID
			trade.SellOrderID = o.ID
		}
		res.Trades = append(res.Trades, trade)

		o.Filled = o.Filled.Add(qty)
		resting.Filled = resting.Filled.Add(qty)

		res.Updates = append(res.Updates,
			OrderUpdate{OrderID: o.ID, Filled: o.Filled, Status: o.Status()},
			OrderUpdate{OrderID: resting.ID, Filled: resting.Filled, Status: resting.Status()},
		)

		if resting.Exhausted() {
			lvl.popHead()
			if lvl.empty() {
				book.dropLevel(opposite, lvl.price)
			}
		}
	}

	if o.Remaining().IsPositive() {
		book.insert(o)
	}
	return res
}

// crosses reports whether the aggressor's limit is compatible with
// immediate execution at the given resting price. Decimal comparison is
// exact; there is no epsilon.
func crosses(o *Order, restingPrice decimal.Decimal) bool {
	if o.Side == Buy {
		return o.Price.GreaterThanOrEqual(restingPrice)
	}
	return o.Price.LessThanOrEqual(restingPrice)
}

// Remove withdraws a resting order from the instrument's book. It returns
// the removed order, or nil if no resting order carries the ID. Removal is
// idempotent: a second call with the same ID is a no-op.
func (e *Engine) Remove(instrument, orderID string) *Order {
	ib := e.book(instrument)
	ib.mu.Lock()
	defer ib.mu.Unlock()
	return ib.book.removeByID(orderID)
}

// BestBidAsk returns the top price on each side, nil for an empty side.
func (e *Engine) BestBidAsk(instrument string) (bid, ask *decimal.Decimal) {
	ib := e.book(instrument)
	ib.mu.Lock()
	defer ib.mu.Unlock()

	if lvl := ib.book.bestLevel(Buy); lvl != nil {
		p := lvl.price
		bid = &p
	}
	if lvl := ib.book.bestLevel(Sell); lvl != nil {
		p := lvl.price
		ask = &p
	}
	return bid, ask
}

// BookRow is one resting order's contribution to a snapshot: its price and
// remaining quantity. Rows are NOT aggregated per price level; two orders
// at the same price appear as two rows.
type BookRow struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// BookSnapshot is a depth-limited view of both sides in book order.
type BookSnapshot struct {
	Bids []BookRow
	Asks []BookRow
}

// TopOfBook returns up to depth rows per side, best prices first.
func (e *Engine) TopOfBook(instrument string, depth int) BookSnapshot {
	if depth <= 0 {
		return BookSnapshot{Bids: []BookRow{}, Asks: []BookRow{}}
	}
	ib := e.book(instrument)
	ib.mu.Lock()
	defer ib.mu.Unlock()

	snap := BookSnapshot{
		Bids: make([]BookRow, 0, depth),
		Asks: make([]BookRow, 0, depth),
	}
	ib.book.walk(Buy, func(o *Order) bool {
		snap.Bids = append(snap.Bids, BookRow{Price: o.Price, Qty: o.Remaining()})
		return len(snap.Bids) < depth
	})
	ib.book.walk(Sell, func(o *Order) bool {
		snap.Asks = append(snap.Asks, BookRow{Price: o.Price, Qty: o.Remaining()})
		return len(snap.Asks) < depth
	})
	return snap
}

// Instruments lists every instrument that has (or had) a book.
func (e *Engine) Instruments() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.books))
	for id := range e.books {
		out = append(out, id)
	}
	return out
}

// EachResting visits every resting order across all books, bids before
// asks within an instrument. Orders must be treated as read-only; the
// snapshot writer is the only intended caller.
func (e *Engine) EachResting(fn func(instrument string, o *Order)) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for id, ib := range e.books {
		ib.mu.Lock()
		ib.book.walk(Buy, func(o *Order) bool {
			fn(id, o)
			return true
		})
		ib.book.walk(Sell, func(o *Order) bool {
			fn(id, o)
			return true
		})
		ib.mu.Unlock()
	}
}
