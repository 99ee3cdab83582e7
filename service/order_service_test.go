package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bondbook/domain/matching"
	"bondbook/infra/outbox"
	"bondbook/infra/sequence"
	"bondbook/infra/wal"
	"bondbook/snapshot"
)

type testEnv struct {
	svc     *OrderService
	engine  *matching.Engine
	outbox  *outbox.Outbox
	walDir  string
	snapDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	walDir := t.TempDir()
	w, err := wal.Open(wal.Config{Dir: walDir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	ob, err := outbox.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ob.Close() })

	engine := matching.NewEngine()
	svc := NewOrderService(zap.NewNop(), engine, sequence.New(0), w, ob)
	return &testEnv{svc: svc, engine: engine, outbox: ob, walDir: walDir, snapDir: t.TempDir()}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPlaceOrderValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.PlaceOrder(ctx, "", "u1", matching.Buy, d("100"), d("1"))
	require.ErrorIs(t, err, ErrInvalidInstrument)

	_, err = env.svc.PlaceOrder(ctx, "bond-A", "u1", matching.Buy, d("0"), d("1"))
	require.ErrorIs(t, err, ErrInvalidPrice)

	_, err = env.svc.PlaceOrder(ctx, "bond-A", "u1", matching.Buy, d("100"), d("-2"))
	require.ErrorIs(t, err, ErrInvalidQty)
}

func TestPlaceOrderMatchesAndStagesTrades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sell, err := env.svc.PlaceOrder(ctx, "bond-A", "u2", matching.Sell, d("1000"), d("10"))
	require.NoError(t, err)
	assert.Equal(t, matching.Open, sell.Status)
	assert.Empty(t, sell.Result.Trades)

	buy, err := env.svc.PlaceOrder(ctx, "bond-A", "u1", matching.Buy, d("1005"), d("5"))
	require.NoError(t, err)
	assert.Equal(t, matching.Filled, buy.Status)
	require.Len(t, buy.Result.Trades, 1)
	assert.True(t, buy.Result.Trades[0].Price.Equal(d("1000")))

	// The trade is durably staged for publication.
	var events []TradeEvent
	require.NoError(t, env.outbox.ScanPending(func(e outbox.Entry) error {
		var ev TradeEvent
		require.NoError(t, json.Unmarshal(e.Payload, &ev))
		events = append(events, ev)
		return nil
	}))
	require.Len(t, events, 1)
	assert.Equal(t, buy.Result.Trades[0].ID, events[0].TradeID)
	assert.Equal(t, "1000", events[0].Price)
	assert.Equal(t, "5", events[0].Qty)
	assert.Equal(t, buy.OrderID, events[0].BuyOrderID)
	assert.Equal(t, sell.OrderID, events[0].SellOrderID)
}

func TestCancelOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	placed, err := env.svc.PlaceOrder(ctx, "bond-A", "u1", matching.Buy, d("990"), d("5"))
	require.NoError(t, err)

	res, err := env.svc.CancelOrder(ctx, "bond-A", placed.OrderID)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, matching.Cancelled, res.Status)

	// Idempotent: the order is already gone.
	res, err = env.svc.CancelOrder(ctx, "bond-A", placed.OrderID)
	require.NoError(t, err)
	assert.False(t, res.Found)

	bid, _ := env.svc.BestBidAsk("bond-A")
	assert.Nil(t, bid)
}

func TestRestoreRebuildsBookFromWAL(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.PlaceOrder(ctx, "bond-A", "u2", matching.Sell, d("1000"), d("10"))
	require.NoError(t, err)
	buy, err := env.svc.PlaceOrder(ctx, "bond-A", "u1", matching.Buy, d("1005"), d("4"))
	require.NoError(t, err)
	require.Len(t, buy.Result.Trades, 1)
	cancelled, err := env.svc.PlaceOrder(ctx, "bond-A", "u3", matching.Buy, d("900"), d("2"))
	require.NoError(t, err)
	_, err = env.svc.CancelOrder(ctx, "bond-A", cancelled.OrderID)
	require.NoError(t, err)

	// Fresh engine, same WAL directory: replay must converge to the same
	// book the live process ended with.
	engine := matching.NewEngine()
	seq := sequence.New(0)
	require.NoError(t, Restore(zap.NewNop(), engine, seq, env.walDir, t.TempDir()))

	snap := engine.TopOfBook("bond-A", 10)
	require.Len(t, snap.Asks, 1)
	assert.True(t, snap.Asks[0].Price.Equal(d("1000")))
	assert.True(t, snap.Asks[0].Qty.Equal(d("6")), "replayed fill is reflected in remaining qty")
	assert.Empty(t, snap.Bids, "cancelled bid does not return")

	assert.Greater(t, seq.Current(), uint64(0), "sequencer resumes past replayed commands")
}

func TestRestoreUsesSnapshotAndWALTail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.PlaceOrder(ctx, "bond-A", "u2", matching.Sell, d("1000"), d("10"))
	require.NoError(t, err)

	// Snapshot covers the sell; the buy lands only in the WAL tail.
	w := &snapshot.Writer{Dir: env.snapDir}
	require.NoError(t, w.Write(env.svc.seq.Current(), env.engine))

	_, err = env.svc.PlaceOrder(ctx, "bond-A", "u1", matching.Buy, d("990"), d("3"))
	require.NoError(t, err)

	engine := matching.NewEngine()
	require.NoError(t, Restore(zap.NewNop(), engine, sequence.New(0), env.walDir, env.snapDir))

	bid, ask := engine.BestBidAsk("bond-A")
	require.NotNil(t, bid)
	require.NotNil(t, ask)
	assert.True(t, bid.Equal(d("990")))
	assert.True(t, ask.Equal(d("1000")))
}

// Concurrent gRPC handlers all funnel through PlaceOrder; the WAL they
// produce together must still replay, and snapshots racing the writers
// must not lose or duplicate orders.
func TestConcurrentWritersReplayAndSnapshotCleanly(t *testing.T) {
	walDir := t.TempDir()
	snapDir := t.TempDir()
	// Small segments force rotation and truncation under load.
	w, err := wal.Open(wal.Config{Dir: walDir, SegmentSize: 512})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	ob, err := outbox.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ob.Close() })

	svc := NewOrderService(zap.NewNop(), matching.NewEngine(), sequence.New(0), w, ob)
	ctx := context.Background()

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			instrument := fmt.Sprintf("bond-%d", i)
			for j := 0; j < perWorker; j++ {
				// Bids only, one instrument per worker: nothing crosses.
				_, err := svc.PlaceOrder(ctx, instrument, "u1",
					matching.Buy, d(fmt.Sprintf("%d", 100+j)), d("1"))
				assert.NoError(t, err)
			}
		}(i)
	}

	sw := &snapshot.Writer{Dir: snapDir}
	snapDone := make(chan struct{})
	go func() {
		defer close(snapDone)
		for i := 0; i < 10; i++ {
			_ = svc.snapshotOnce(sw)
		}
	}()

	wg.Wait()
	<-snapDone
	require.NoError(t, svc.snapshotOnce(sw))

	engine := matching.NewEngine()
	require.NoError(t, Restore(zap.NewNop(), engine, sequence.New(0), walDir, snapDir))

	total := 0
	for i := 0; i < workers; i++ {
		book := engine.TopOfBook(fmt.Sprintf("bond-%d", i), perWorker+1)
		total += len(book.Bids)
	}
	assert.Equal(t, workers*perWorker, total)
}

func TestRestartKeepsStagedTrades(t *testing.T) {
	walDir := t.TempDir()
	obDir := t.TempDir()
	ctx := context.Background()

	tradeIDs := func(ob *outbox.Outbox) []string {
		var ids []string
		require.NoError(t, ob.ScanPending(func(e outbox.Entry) error {
			var ev TradeEvent
			require.NoError(t, json.Unmarshal(e.Payload, &ev))
			ids = append(ids, ev.TradeID)
			return nil
		}))
		return ids
	}

	w, err := wal.Open(wal.Config{Dir: walDir})
	require.NoError(t, err)
	ob, err := outbox.Open(obDir)
	require.NoError(t, err)
	svc := NewOrderService(zap.NewNop(), matching.NewEngine(), sequence.New(0), w, ob)

	_, err = svc.PlaceOrder(ctx, "bond-A", "u2", matching.Sell, d("1000"), d("5"))
	require.NoError(t, err)
	_, err = svc.PlaceOrder(ctx, "bond-A", "u3", matching.Sell, d("1001"), d("5"))
	require.NoError(t, err)
	buy, err := svc.PlaceOrder(ctx, "bond-A", "u1", matching.Buy, d("1005"), d("10"))
	require.NoError(t, err)
	require.Len(t, buy.Result.Trades, 2)

	staged := tradeIDs(ob)
	require.Len(t, staged, 2)

	// Crash before the broadcaster drains anything.
	require.NoError(t, w.Close())
	require.NoError(t, ob.Close())

	w, err = wal.Open(wal.Config{Dir: walDir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	ob, err = outbox.Open(obDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ob.Close() })

	engine := matching.NewEngine()
	seq := sequence.New(0)
	require.NoError(t, Restore(zap.NewNop(), engine, seq, walDir, t.TempDir()))
	svc = NewOrderService(zap.NewNop(), engine, seq, w, ob)

	_, err = svc.PlaceOrder(ctx, "bond-A", "u4", matching.Sell, d("1000"), d("2"))
	require.NoError(t, err)
	post, err := svc.PlaceOrder(ctx, "bond-A", "u5", matching.Buy, d("1005"), d("2"))
	require.NoError(t, err)
	require.Len(t, post.Result.Trades, 1)

	// The pre-crash events are still pending alongside the new one; the
	// restart must not have overwritten them.
	after := tradeIDs(ob)
	require.Len(t, after, 3)
	assert.Contains(t, after, staged[0])
	assert.Contains(t, after, staged[1])
	assert.Contains(t, after, post.Result.Trades[0].ID)
}

func TestSnapshotOnceCoversAppliedWrites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.PlaceOrder(ctx, "bond-A", "u2", matching.Sell, d("1000"), d("10"))
	require.NoError(t, err)
	_, err = env.svc.PlaceOrder(ctx, "bond-A", "u1", matching.Buy, d("990"), d("3"))
	require.NoError(t, err)

	w := &snapshot.Writer{Dir: env.snapDir}
	require.NoError(t, env.svc.snapshotOnce(w))

	_, err = env.svc.PlaceOrder(ctx, "bond-A", "u3", matching.Buy, d("985"), d("2"))
	require.NoError(t, err)

	engine := matching.NewEngine()
	require.NoError(t, Restore(zap.NewNop(), engine, sequence.New(0), env.walDir, env.snapDir))

	book := engine.TopOfBook("bond-A", 10)
	assert.Len(t, book.Asks, 1)
	assert.Len(t, book.Bids, 2)
}

type failingStager struct{}

func (failingStager) Put([]byte) (uint64, error) {
	return 0, errors.New("stage: disk full")
}

// A trade that executed cannot be un-executed; a staging failure after the
// match must not surface as a rejected order.
func TestPlaceOrderSurvivesStagingFailure(t *testing.T) {
	w, err := wal.Open(wal.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	svc := NewOrderService(zap.NewNop(), matching.NewEngine(), sequence.New(0), w, failingStager{})
	ctx := context.Background()

	_, err = svc.PlaceOrder(ctx, "bond-A", "u2", matching.Sell, d("1000"), d("10"))
	require.NoError(t, err)
	buy, err := svc.PlaceOrder(ctx, "bond-A", "u1", matching.Buy, d("1005"), d("4"))
	require.NoError(t, err)
	require.Len(t, buy.Result.Trades, 1)
	assert.Equal(t, matching.Filled, buy.Status)

	// The fill is reflected on the book despite the staging failure.
	book := svc.TopOfBook("bond-A", 10)
	require.Len(t, book.Asks, 1)
	assert.True(t, book.Asks[0].Qty.Equal(d("6")))
}
