package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/Additional-Code/orderdesk/internal/entity"
	serviceorder "github.com/Additional-Code/orderdesk/internal/service/order"
)

// OrdersServiceName is the fully-qualified gRPC service name.
const OrdersServiceName = "orderdesk.v1.Orders"

// OrdersServer is the read-only order surface served over gRPC.
// Messages are protobuf well-known types so no generated code is needed.
type OrdersServer interface {
	Count(context.Context, *emptypb.Empty) (*wrapperspb.Int64Value, error)
	ContentHash(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	Get(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
}

// Orders adapts the order operations to OrdersServer.
type Orders struct {
	ops serviceorder.Operations
}

// NewOrders wraps ops for gRPC.
func NewOrders(ops serviceorder.Operations) *Orders {
	return &Orders{ops: ops}
}

func (o *Orders) Count(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int64Value, error) {
	n, err := o.ops.Count(ctx)
	if err != nil {
		return nil, err
	}
	return wrapperspb.Int64(int64(n)), nil
}

func (o *Orders) ContentHash(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	sum, err := o.ops.ContentHash(ctx)
	if err != nil {
		return nil, err
	}
	return wrapperspb.String(sum), nil
}

// Get returns the order with the JSON field names the HTTP API uses.
func (o *Orders) Get(ctx context.Context, in *wrapperspb.Int64Value) (*structpb.Struct, error) {
	order, err := o.ops.Get(ctx, in.GetValue())
	if err != nil {
		return nil, err
	}
	return orderStruct(order)
}

func orderStruct(o entity.Order) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":               o.ID,
		"cliente_id":       o.CustomerID,
		"valor_total":      o.TotalValue,
		"data":             entity.FormatTimestamp(o.Timestamp),
		"quantidade_itens": o.ItemCount,
	})
}

// RegisterOrdersServer attaches srv to s under OrdersServiceName.
func RegisterOrdersServer(s grpc.ServiceRegistrar, srv OrdersServer) {
	s.RegisterService(&ordersServiceDesc, srv)
}

var ordersServiceDesc = grpc.ServiceDesc{
	ServiceName: OrdersServiceName,
	HandlerType: (*OrdersServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Count",
			Handler: unaryHandler("Count", func(srv OrdersServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return srv.Count(ctx, in)
			}),
		},
		{
			MethodName: "ContentHash",
			Handler: unaryHandler("ContentHash", func(srv OrdersServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return srv.ContentHash(ctx, in)
			}),
		},
		{
			MethodName: "Get",
			Handler: unaryHandler("Get", func(srv OrdersServer, ctx context.Context, in *wrapperspb.Int64Value) (any, error) {
				return srv.Get(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orderdesk/v1/orders.proto",
}

// unaryHandler decodes the request into a fresh Req and routes it through the interceptor chain.
func unaryHandler[Req any](method string, call func(OrdersServer, context.Context, *Req) (any, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + OrdersServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(OrdersServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(OrdersServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
