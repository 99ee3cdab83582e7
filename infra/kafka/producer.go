package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// QuoteProducer publishes market-data snapshots. Quotes are keyed by
// instrument so consumers see per-instrument ordering, and delivery is
// fire-and-forget: a missed quote is superseded by the next tick anyway.
type QuoteProducer struct {
	writer *kafka.Writer
}

func NewQuoteProducer(brokers []string, topic string) *QuoteProducer {
	return &QuoteProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *QuoteProducer) Publish(ctx context.Context, instrument string, payload []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(instrument),
		Value: payload,
	})
}

func (p *QuoteProducer) Close() error {
	return p.writer.Close()
}
