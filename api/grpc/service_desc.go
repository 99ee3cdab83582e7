package grpcapi

import (
	"context"

	"google.golang.org/grpc"
)

// OrderAPIServer is the transport-facing surface of the trading service.
type OrderAPIServer interface {
	PlaceOrder(context.Context, *PlaceOrderRequest) (*PlaceOrderResponse, error)
	CancelOrder(context.Context, *CancelOrderRequest) (*CancelOrderResponse, error)
	BestBidAsk(context.Context, *BestBidAskRequest) (*BestBidAskResponse, error)
	TopOfBook(context.Context, *TopOfBookRequest) (*TopOfBookResponse, error)
}

func RegisterOrderAPIServer(s *grpc.Server, srv OrderAPIServer) {
	s.RegisterService(&orderAPIServiceDesc, srv)
}

// The service descriptor is maintained by hand; messages are plain structs
// carried by the json codec, so there is no generated registration code.
var orderAPIServiceDesc = grpc.ServiceDesc{
	ServiceName: "bondbook.OrderAPI",
	HandlerType: (*OrderAPIServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PlaceOrder", Handler: placeOrderHandler},
		{MethodName: "CancelOrder", Handler: cancelOrderHandler},
		{MethodName: "BestBidAsk", Handler: bestBidAskHandler},
		{MethodName: "TopOfBook", Handler: topOfBookHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/grpc",
}

func placeOrderHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PlaceOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderAPIServer).PlaceOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/bondbook.OrderAPI/PlaceOrder"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderAPIServer).PlaceOrder(ctx, req.(*PlaceOrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func cancelOrderHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CancelOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderAPIServer).CancelOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/bondbook.OrderAPI/CancelOrder"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderAPIServer).CancelOrder(ctx, req.(*CancelOrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func bestBidAskHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(BestBidAskRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderAPIServer).BestBidAsk(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/bondbook.OrderAPI/BestBidAsk"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderAPIServer).BestBidAsk(ctx, req.(*BestBidAskRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func topOfBookHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(TopOfBookRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderAPIServer).TopOfBook(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/bondbook.OrderAPI/TopOfBook"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderAPIServer).TopOfBook(ctx, req.(*TopOfBookRequest))
	}
	return interceptor(ctx, in, info, handler)
}
