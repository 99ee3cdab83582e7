package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bondbook/domain/matching"
	"bondbook/infra/outbox"
	"bondbook/infra/sequence"
	"bondbook/infra/wal"
)

func BenchmarkPlaceOrder(b *testing.B) {
	w, _ := wal.Open(wal.Config{Dir: b.TempDir(), SegmentSize: 64 << 20})
	ob, _ := outbox.Open(b.TempDir())
	defer w.Close()
	defer ob.Close()

	svc := NewOrderService(zap.NewNop(), matching.NewEngine(), sequence.New(0), w, ob)
	ctx := context.Background()
	price := decimal.NewFromInt(100)
	qty := decimal.NewFromInt(1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		side := matching.Buy
		if i%2 == 0 {
			side = matching.Sell
		}
		_, _ = svc.PlaceOrder(ctx, "bond-A", "u1", side, price, qty)
	}
}
