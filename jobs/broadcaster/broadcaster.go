package broadcaster

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"bondbook/infra/outbox"
)

// Broadcaster drains the trade outbox to Kafka. Delivery is at-least-once:
// an entry is marked SENT before the publish and ACKED only on broker
// confirmation, so a crash between the two replays the trade. Consumers
// deduplicate on trade ID.
type Broadcaster struct {
	log      *zap.Logger
	outbox   *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
}

func New(
	log *zap.Logger,
	ob *outbox.Outbox,
	brokers []string,
	topic string,
	interval time.Duration,
) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "broadcaster: producer")
	}

	return &Broadcaster{
		log:      log,
		outbox:   ob,
		producer: producer,
		topic:    topic,
		interval: interval,
	}, nil
}

// Start runs the drain loop until ctx is cancelled.
func (b *Broadcaster) Start(ctx context.Context) {
	b.log.Info("broadcaster started", zap.String("topic", b.topic))

	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.drainOnce()
			}
		}
	}()
}

func (b *Broadcaster) drainOnce() {
	err := b.outbox.ScanPending(func(e outbox.Entry) error {
		if err := b.outbox.MarkSent(e.Seq); err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Value: sarama.ByteEncoder(e.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			// Left in SENT; the next tick retries it.
			b.log.Warn("trade publish failed",
				zap.Uint64("seq", e.Seq), zap.Error(err))
			return nil
		}

		return b.outbox.MarkAcked(e.Seq)
	})
	if err != nil {
		b.log.Warn("outbox drain failed", zap.Error(err))
		return
	}

	if err := b.outbox.DeleteAcked(); err != nil {
		b.log.Warn("outbox gc failed", zap.Error(err))
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
