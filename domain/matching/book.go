package matching

import (
	rbt "github.com/emirpasic/gods/trees/redblacktree"
	"github.com/shopspring/decimal"
)

// OrderBook holds one instrument's resting interest: a red-black tree of
// price levels per side, each level a FIFO of orders in time priority.
// Both trees iterate best price first (bids high to low, asks low to high).
//
// The book never rests in a crossed state; any cross is resolved by the
// engine at submission time before the remainder is inserted.
type OrderBook struct {
	bids *rbt.Tree
	asks *rbt.Tree
}

func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids: rbt.NewWith(bidComparator),
		asks: rbt.NewWith(askComparator),
	}
}

func askComparator(a, b interface{}) int {
	return a.(decimal.Decimal).Cmp(b.(decimal.Decimal))
}

func bidComparator(a, b interface{}) int {
	return b.(decimal.Decimal).Cmp(a.(decimal.Decimal))
}

func (b *OrderBook) sideTree(s Side) *rbt.Tree {
	if s == Buy {
		return b.bids
	}
	return b.asks
}

// bestLevel returns the most aggressive non-empty level on a side, or nil.
func (b *OrderBook) bestLevel(s Side) *priceLevel {
	node := b.sideTree(s).Left()
	if node == nil {
		return nil
	}
	return node.Value.(*priceLevel)
}

// insert rests an order on its own side, creating the price level if absent.
func (b *OrderBook) insert(o *Order) {
	tree := b.sideTree(o.Side)
	var lvl *priceLevel
	if v, ok := tree.Get(o.Price); ok {
		lvl = v.(*priceLevel)
	} else {
		lvl = &priceLevel{price: o.Price}
		tree.Put(o.Price, lvl)
	}
	lvl.insert(o)
}

// dropLevel removes a level that went empty after matching or withdrawal.
func (b *OrderBook) dropLevel(s Side, price decimal.Decimal) {
	b.sideTree(s).Remove(price)
}

// removeByID scans both sides for the order and unlinks it. Returns nil if
// no resting order carries the ID; absence is not an error, callers cancel
// orders that may already have been fully filled and removed.
func (b *OrderBook) removeByID(orderID string) *Order {
	for _, s := range []Side{Buy, Sell} {
		var found *Order
		b.walk(s, func(o *Order) bool {
			if o.ID == orderID {
				found = o
				return false
			}
			return true
		})
		if found == nil {
			continue
		}
		tree := b.sideTree(s)
		v, _ := tree.Get(found.Price)
		lvl := v.(*priceLevel)
		lvl.unlink(found)
		if lvl.empty() {
			tree.Remove(lvl.price)
		}
		return found
	}
	return nil
}

// walk visits resting orders on one side in book order (price priority,
// then time priority). fn returns false to stop.
func (b *OrderBook) walk(s Side, fn func(*Order) bool) {
	it := b.sideTree(s).Iterator()
	for it.Next() {
		lvl := it.Value().(*priceLevel)
		for o := lvl.first(); o != nil; o = o.Next() {
			if !fn(o) {
				return
			}
		}
	}
}

func (b *OrderBook) sideEmpty(s Side) bool {
	return b.sideTree(s).Empty()
}
