package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "wealthwise.valuation.v1.ValuationService"

// Method names
const (
	MethodGetPortfolioHistory     = "GetPortfolioHistory"
	MethodGetCoverage             = "GetCoverage"
	MethodGetNetWorth             = "GetNetWorth"
	MethodRecordNetWorthMilestone = "RecordNetWorthMilestone"
	MethodValidateConsistency     = "ValidateConsistency"
	MethodRefreshQuotes           = "RefreshQuotes"
	MethodGetAllocation           = "GetAllocation"
)

// FullMethod returns the "/service/method" path used on the wire
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// ValuationServiceServer is the server API of the valuation service.
// Requests and responses are google.protobuf.Struct messages.
type ValuationServiceServer interface {
	GetPortfolioHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCoverage(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetNetWorth(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecordNetWorthMilestone(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ValidateConsistency(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RefreshQuotes(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAllocation(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterValuationServiceServer registers srv on s
func RegisterValuationServiceServer(s grpc.ServiceRegistrar, srv ValuationServiceServer) {
	s.RegisterService(&ValuationServiceDesc, srv)
}

// unaryHandler adapts one ValuationServiceServer method to a grpc.MethodDesc handler
func unaryHandler(method string, call func(ValuationServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ValuationServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ValuationServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ValuationServiceDesc describes the valuation service for grpc.Server.RegisterService
var ValuationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ValuationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodGetPortfolioHistory, Handler: unaryHandler(MethodGetPortfolioHistory, ValuationServiceServer.GetPortfolioHistory)},
		{MethodName: MethodGetCoverage, Handler: unaryHandler(MethodGetCoverage, ValuationServiceServer.GetCoverage)},
		{MethodName: MethodGetNetWorth, Handler: unaryHandler(MethodGetNetWorth, ValuationServiceServer.GetNetWorth)},
		{MethodName: MethodRecordNetWorthMilestone, Handler: unaryHandler(MethodRecordNetWorthMilestone, ValuationServiceServer.RecordNetWorthMilestone)},
		{MethodName: MethodValidateConsistency, Handler: unaryHandler(MethodValidateConsistency, ValuationServiceServer.ValidateConsistency)},
		{MethodName: MethodRefreshQuotes, Handler: unaryHandler(MethodRefreshQuotes, ValuationServiceServer.RefreshQuotes)},
		{MethodName: MethodGetAllocation, Handler: unaryHandler(MethodGetAllocation, ValuationServiceServer.GetAllocation)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wealthwise/valuation/v1/valuation.proto",
}

// Invoke calls a valuation method over conn with Struct request and response
func Invoke(ctx context.Context, conn grpc.ClientConnInterface, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
