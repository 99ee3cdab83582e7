package grpcapi

import (
	"context"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"bondbook/domain/matching"
	"bondbook/service"
)

const defaultDepth = 5

// Server adapts OrderService to gRPC.
type Server struct {
	log *zap.Logger
	svc *service.OrderService
}

func NewServer(log *zap.Logger, svc *service.OrderService) *Server {
	return &Server{log: log, svc: svc}
}

// -------------------- Commands --------------------

func (s *Server) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	side, ok := matching.ParseSide(req.Side)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "side must be BUY or SELL, got %q", req.Side)
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad price %q", req.Price)
	}
	qty, err := decimal.NewFromString(req.Qty)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad qty %q", req.Qty)
	}

	res, err := s.svc.PlaceOrder(ctx, req.Instrument, req.UserID, side, price, qty)
	if err != nil {
		switch err {
		case service.ErrInvalidInstrument, service.ErrInvalidPrice, service.ErrInvalidQty:
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		s.log.Error("place order failed", zap.Error(err))
		return nil, status.Error(codes.Internal, "order not accepted")
	}

	return &PlaceOrderResponse{
		OrderID: res.OrderID,
		Seq:     res.Seq,
		Status:  res.Status.String(),
		Trades: lo.Map(res.Result.Trades, func(t matching.Trade, _ int) Trade {
			return Trade{
				TradeID:     t.ID,
				BuyOrderID:  t.BuyOrderID,
				SellOrderID: t.SellOrderID,
				Price:       t.Price.String(),
				Qty:         t.Qty.String(),
				ExecutedAt:  t.ExecutedAt.UnixNano(),
			}
		}),
		Updates: lo.Map(res.Result.Updates, func(u matching.OrderUpdate, _ int) OrderUpdate {
			return OrderUpdate{
				OrderID: u.OrderID,
				Filled:  u.Filled.String(),
				Status:  u.Status.String(),
			}
		}),
	}, nil
}

func (s *Server) CancelOrder(ctx context.Context, req *CancelOrderRequest) (*CancelOrderResponse, error) {
	res, err := s.svc.CancelOrder(ctx, req.Instrument, req.OrderID)
	if err != nil {
		if err == service.ErrInvalidInstrument {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		s.log.Error("cancel order failed", zap.Error(err))
		return nil, status.Error(codes.Internal, "cancel not accepted")
	}

	resp := &CancelOrderResponse{OrderID: res.OrderID, Found: res.Found}
	if res.Found {
		resp.Status = res.Status.String()
	}
	return resp, nil
}

// -------------------- Queries --------------------

func (s *Server) BestBidAsk(ctx context.Context, req *BestBidAskRequest) (*BestBidAskResponse, error) {
	bid, ask := s.svc.BestBidAsk(req.Instrument)
	resp := &BestBidAskResponse{}
	if bid != nil {
		v := bid.String()
		resp.BestBid = &v
	}
	if ask != nil {
		v := ask.String()
		resp.BestAsk = &v
	}
	return resp, nil
}

func (s *Server) TopOfBook(ctx context.Context, req *TopOfBookRequest) (*TopOfBookResponse, error) {
	depth := req.Depth
	if depth <= 0 {
		depth = defaultDepth
	}
	snap := s.svc.TopOfBook(req.Instrument, depth)

	toRow := func(r matching.BookRow, _ int) BookRow {
		return BookRow{Price: r.Price.String(), Qty: r.Qty.String()}
	}
	return &TopOfBookResponse{
		Bids: lo.Map(snap.Bids, toRow),
		Asks: lo.Map(snap.Asks, toRow),
	}, nil
}
