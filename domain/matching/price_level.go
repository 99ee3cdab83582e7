package matching

import "github.com/shopspring/decimal"

// priceLevel is the queue of resting orders at a single price, ordered by
// creation time ascending. Orders arriving live are appended; replayed or
// restored orders may carry older timestamps and are inserted in place.
type priceLevel struct {
	price decimal.Decimal

	head *Order
	tail *Order

	count int
}

func (l *priceLevel) insert(o *Order) {
	if l.head == nil {
		l.head = o
		l.tail = o
		l.count++
		return
	}

	// Walk back from the tail; equal timestamps keep arrival order.
	at := l.tail
	for at != nil && at.CreatedAt.After(o.CreatedAt) {
		at = at.prev
	}

	switch {
	case at == nil: // new head
		o.next = l.head
		l.head.prev = o
		l.head = o
	case at == l.tail:
		at.next = o
		o.prev = at
		l.tail = o
	default:
		o.next = at.next
		o.prev = at
		at.next.prev = o
		at.next = o
	}
	l.count++
}

func (l *priceLevel) first() *Order {
	return l.head
}

func (l *priceLevel) popHead() *Order {
	o := l.head
	if o == nil {
		return nil
	}

	l.head = o.next
	if l.head != nil {
		l.head.prev = nil
	} else {
		l.tail = nil
	}

	o.next = nil
	o.prev = nil
	l.count--
	return o
}

// unlink removes an order from anywhere in the queue. The order must be a
// member of this level.
func (l *priceLevel) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}
	o.next = nil
	o.prev = nil
	l.count--
}

func (l *priceLevel) empty() bool {
	return l.head == nil
}
