package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "wealthflow.valuation.v1.ValuationService"

// ValuationServiceServer is the server API of the valuation service.
// Requests and responses are google.protobuf.Struct messages.
type ValuationServiceServer interface {
	GetValueSeries(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetGraph(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMissingRanges(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOverview(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(ValuationServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ValuationServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + serviceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ValuationServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ValuationServiceDesc describes the valuation service for grpc.Server.RegisterService
var ValuationServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ValuationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("GetValueSeries", ValuationServiceServer.GetValueSeries),
		unaryMethod("GetGraph", ValuationServiceServer.GetGraph),
		unaryMethod("GetMissingRanges", ValuationServiceServer.GetMissingRanges),
		unaryMethod("ResetSession", ValuationServiceServer.ResetSession),
		unaryMethod("GetOverview", ValuationServiceServer.GetOverview),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wealthflow/valuation/v1/valuation.proto",
}

// RegisterValuationServiceServer registers srv on s
func RegisterValuationServiceServer(s grpc.ServiceRegistrar, srv ValuationServiceServer) {
	s.RegisterService(&ValuationServiceDesc, srv)
}

// ValuationServiceClient calls the valuation service
type ValuationServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewValuationServiceClient creates a client on an established connection
func NewValuationServiceClient(cc grpc.ClientConnInterface) *ValuationServiceClient {
	return &ValuationServiceClient{cc: cc}
}

// Call invokes the named method of the service
func (c *ValuationServiceClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
