package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bondbook/domain/matching"
	"bondbook/infra/sequence"
	"bondbook/infra/wal"
)

/*
OrderService is the ONLY write entry point into the system.

All coordination between:
- domain (matching engine)
- infra (wal, outbox, sequence)
- snapshot
happens here. The engine itself stays a pure in-memory decision function;
validation, durability and publication live at this layer.
*/

var (
	ErrInvalidInstrument = errors.New("service: instrument must not be empty")
	ErrInvalidPrice      = errors.New("service: price must be positive")
	ErrInvalidQty        = errors.New("service: quantity must be positive")
)

// TradeStager is the slice of the outbox the write path needs.
type TradeStager interface {
	Put(payload []byte) (uint64, error)
}

type OrderService struct {
	log    *zap.Logger
	engine *matching.Engine
	seq    *sequence.Sequencer
	wal    *wal.WAL
	outbox TradeStager

	// writeMu makes sequence assignment, the WAL append and the engine
	// call one atomic step. Without it, concurrent handlers could append
	// sequences out of order and replay would refuse the log.
	writeMu sync.Mutex

	now func() time.Time
}

// NewOrderService wires all dependencies. No globals.
func NewOrderService(
	log *zap.Logger,
	engine *matching.Engine,
	seq *sequence.Sequencer,
	w *wal.WAL,
	ob TradeStager,
) *OrderService {
	return &OrderService{
		log:    log,
		engine: engine,
		seq:    seq,
		wal:    w,
		outbox: ob,
		now:    time.Now,
	}
}

// PlaceResult is everything a caller needs to persist after one submission.
type PlaceResult struct {
	OrderID string
	Seq     uint64
	Status  matching.Status
	Result  matching.MatchResult
}

// PlaceOrder validates, logs, matches and publishes one order.
//
// The command hits the WAL before the book is mutated; the engine call is
// synchronous and bounded; resulting trades are staged in the outbox within
// the same call, so an acknowledged order can never lose its trades.
func (s *OrderService) PlaceOrder(
	ctx context.Context,
	instrument string,
	userID string,
	side matching.Side,
	price decimal.Decimal,
	qty decimal.Decimal,
) (*PlaceResult, error) {
	// The engine would drop bad input silently; the API contract is an
	// explicit rejection, so validate here.
	if instrument == "" {
		return nil, ErrInvalidInstrument
	}
	if !price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	if !qty.IsPositive() {
		return nil, ErrInvalidQty
	}

	order := &matching.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Side:      side,
		Price:     price,
		Qty:       qty,
		CreatedAt: s.now(),
	}

	payload, err := encodePlace(instrument, order)
	if err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	seq := s.seq.Next()
	if err := s.wal.Append(wal.NewRecord(wal.RecordPlace, seq, payload)); err != nil {
		s.writeMu.Unlock()
		return nil, err
	}
	res := s.engine.Submit(instrument, order)

	// Once Submit returns the book has executed; a staging failure must
	// not read as a rejection. The WAL record keeps the command durable,
	// so log the failure and keep going. Staging stays inside the
	// critical section so outbox order follows execution order.
	for _, trade := range res.Trades {
		event, err := encodeTradeEvent(trade)
		if err != nil {
			s.log.Error("encode trade event",
				zap.String("trade_id", trade.ID), zap.Error(err))
			continue
		}
		if _, err := s.outbox.Put(event); err != nil {
			s.log.Error("stage trade",
				zap.String("trade_id", trade.ID), zap.Error(err))
		}
	}
	s.writeMu.Unlock()

	s.log.Info("order placed",
		zap.String("instrument", instrument),
		zap.String("order_id", order.ID),
		zap.Stringer("side", side),
		zap.String("price", price.String()),
		zap.String("qty", qty.String()),
		zap.Uint64("seq", seq),
		zap.Int("trades", len(res.Trades)),
	)

	return &PlaceResult{
		OrderID: order.ID,
		Seq:     seq,
		Status:  order.Status(),
		Result:  res,
	}, nil
}

// CancelResult reports the outcome of a withdrawal.
type CancelResult struct {
	OrderID string
	Found   bool
	Status  matching.Status
}

// CancelOrder withdraws a resting order. Cancelling an order that was
// already filled (or never existed) is not an error; Found reports whether
// anything was actually removed.
func (s *OrderService) CancelOrder(ctx context.Context, instrument, orderID string) (*CancelResult, error) {
	if instrument == "" {
		return nil, ErrInvalidInstrument
	}

	payload, err := encodeCancel(instrument, orderID)
	if err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	seq := s.seq.Next()
	if err := s.wal.Append(wal.NewRecord(wal.RecordCancel, seq, payload)); err != nil {
		s.writeMu.Unlock()
		return nil, err
	}
	removed := s.engine.Remove(instrument, orderID)
	s.writeMu.Unlock()

	res := &CancelResult{OrderID: orderID, Found: removed != nil}
	if removed != nil {
		res.Status = matching.Cancelled
	}

	s.log.Info("order cancelled",
		zap.String("instrument", instrument),
		zap.String("order_id", orderID),
		zap.Bool("found", res.Found),
		zap.Uint64("seq", seq),
	)
	return res, nil
}

// BestBidAsk returns the top prices for an instrument; nil means the side
// is empty.
func (s *OrderService) BestBidAsk(instrument string) (bid, ask *decimal.Decimal) {
	return s.engine.BestBidAsk(instrument)
}

// TopOfBook returns a depth-limited book snapshot, one row per resting
// order.
func (s *OrderService) TopOfBook(instrument string, depth int) matching.BookSnapshot {
	return s.engine.TopOfBook(instrument, depth)
}

// Instruments lists instruments with a live book.
func (s *OrderService) Instruments() []string {
	return s.engine.Instruments()
}
