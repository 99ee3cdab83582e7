package service

import (
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"bondbook/domain/matching"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// placeCommand is the WAL payload for an order submission. Prices and
// quantities travel as decimal strings so replay reconstructs the exact
// values the engine matched on.
type placeCommand struct {
	Instrument string `json:"instrument"`
	OrderID    string `json:"order_id"`
	UserID     string `json:"user_id"`
	Side       string `json:"side"`
	Price      string `json:"price"`
	Qty        string `json:"qty"`
	CreatedAt  int64  `json:"created_at"` // unix nanos, time priority key
}

type cancelCommand struct {
	Instrument string `json:"instrument"`
	OrderID    string `json:"order_id"`
}

func encodePlace(instrument string, o *matching.Order) ([]byte, error) {
	b, err := json.Marshal(placeCommand{
		Instrument: instrument,
		OrderID:    o.ID,
		UserID:     o.UserID,
		Side:       o.Side.String(),
		Price:      o.Price.String(),
		Qty:        o.Qty.String(),
		CreatedAt:  o.CreatedAt.UnixNano(),
	})
	return b, errors.Wrap(err, "service: encode place")
}

func decodePlace(data []byte) (string, *matching.Order, error) {
	var cmd placeCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return "", nil, errors.Wrap(err, "service: decode place")
	}
	side, ok := matching.ParseSide(cmd.Side)
	if !ok {
		return "", nil, errors.Errorf("service: unknown side %q", cmd.Side)
	}
	price, err := decimal.NewFromString(cmd.Price)
	if err != nil {
		return "", nil, errors.Wrap(err, "service: decode price")
	}
	qty, err := decimal.NewFromString(cmd.Qty)
	if err != nil {
		return "", nil, errors.Wrap(err, "service: decode qty")
	}
	return cmd.Instrument, &matching.Order{
		ID:        cmd.OrderID,
		UserID:    cmd.UserID,
		Side:      side,
		Price:     price,
		Qty:       qty,
		CreatedAt: time.Unix(0, cmd.CreatedAt),
	}, nil
}

func encodeCancel(instrument, orderID string) ([]byte, error) {
	b, err := json.Marshal(cancelCommand{Instrument: instrument, OrderID: orderID})
	return b, errors.Wrap(err, "service: encode cancel")
}

func decodeCancel(data []byte) (instrument, orderID string, err error) {
	var cmd cancelCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return "", "", errors.Wrap(err, "service: decode cancel")
	}
	return cmd.Instrument, cmd.OrderID, nil
}

// TradeEvent is the outbox/Kafka payload for one executed trade.
type TradeEvent struct {
	V           int    `json:"v"`
	TradeID     string `json:"trade_id"`
	Instrument  string `json:"instrument"`
	BuyOrderID  string `json:"buy_order_id"`
	SellOrderID string `json:"sell_order_id"`
	Price       string `json:"price"`
	Qty         string `json:"qty"`
	ExecutedAt  int64  `json:"executed_at"`
}

func encodeTradeEvent(t matching.Trade) ([]byte, error) {
	b, err := json.Marshal(TradeEvent{
		V:           1,
		TradeID:     t.ID,
		Instrument:  t.Instrument,
		BuyOrderID:  t.BuyOrderID,
		SellOrderID: t.SellOrderID,
		Price:       t.Price.String(),
		Qty:         t.Qty.String(),
		ExecutedAt:  t.ExecutedAt.UnixNano(),
	})
	return b, errors.Wrap(err, "service: encode trade event")
}
