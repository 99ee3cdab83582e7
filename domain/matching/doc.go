// Package matching implements the in-memory limit-order matching engine
// for fractional bond instruments. It maintains one order book per
// instrument — a red-black tree of FIFO price levels on each side — and
// matches incoming orders against resting interest under price-time
// priority, executing every trade at the resting order's price.
//
// The engine holds no persistence and performs no I/O; every operation is
// a bounded synchronous computation whose results (trades and order-state
// updates) the caller is responsible for persisting. Mutations are
// serialized per instrument, with no contention across instruments.
package matching
