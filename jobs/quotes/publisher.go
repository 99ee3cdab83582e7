package quotes

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"bondbook/domain/matching"
	"bondbook/infra/kafka"
	"bondbook/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Quote is the market-data payload published per instrument: best bid and
// ask plus a depth-limited view of both sides. One row per resting order.
type Quote struct {
	V          int       `json:"v"`
	Instrument string    `json:"instrument"`
	BestBid    *string   `json:"best_bid"`
	BestAsk    *string   `json:"best_ask"`
	Bids       []BookRow `json:"bids"`
	Asks       []BookRow `json:"asks"`
	At         int64     `json:"at"`
}

type BookRow struct {
	Price string `json:"price"`
	Qty   string `json:"qty"`
}

// Publisher ticks over every live instrument and pushes its top of book to
// the quotes topic.
type Publisher struct {
	log      *zap.Logger
	svc      *service.OrderService
	producer *kafka.QuoteProducer
	depth    int
	interval time.Duration
}

func New(
	log *zap.Logger,
	svc *service.OrderService,
	producer *kafka.QuoteProducer,
	depth int,
	interval time.Duration,
) *Publisher {
	return &Publisher{
		log:      log,
		svc:      svc,
		producer: producer,
		depth:    depth,
		interval: interval,
	}
}

func (p *Publisher) Start(ctx context.Context) {
	p.log.Info("quote publisher started", zap.Int("depth", p.depth))

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.publishAll(ctx)
			}
		}
	}()
}

func (p *Publisher) publishAll(ctx context.Context) {
	for _, instrument := range p.svc.Instruments() {
		payload, err := json.Marshal(p.quote(instrument))
		if err != nil {
			p.log.Warn("quote encode failed",
				zap.String("instrument", instrument), zap.Error(err))
			continue
		}
		if err := p.producer.Publish(ctx, instrument, payload); err != nil {
			p.log.Warn("quote publish failed",
				zap.String("instrument", instrument), zap.Error(err))
		}
	}
}

func (p *Publisher) quote(instrument string) Quote {
	bid, ask := p.svc.BestBidAsk(instrument)
	snap := p.svc.TopOfBook(instrument, p.depth)

	toRow := func(r matching.BookRow, _ int) BookRow {
		return BookRow{Price: r.Price.String(), Qty: r.Qty.String()}
	}
	q := Quote{
		V:          1,
		Instrument: instrument,
		Bids:       lo.Map(snap.Bids, toRow),
		Asks:       lo.Map(snap.Asks, toRow),
		At:         time.Now().UnixNano(),
	}
	if bid != nil {
		s := bid.String()
		q.BestBid = &s
	}
	if ask != nil {
		s := ask.String()
		q.BestAsk = &s
	}
	return q
}
