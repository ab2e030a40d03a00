package handler

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// The order service is described by hand and carried as JSON, so clients
// need no generated stubs. Callers pass grpc.CallContentSubtype(CodecName),
// which OrderServiceClient does for them.

const (
	CodecName   = "json"
	ServiceName = "orders.v1.OrderService"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

type OrderServiceServer interface {
	CreateOrder(context.Context, *CreateOrderRequest) (*OrderIDResponse, error)
	AddItem(context.Context, *AddItemRequest) (*OrderIDResponse, error)
	GetOrder(context.Context, *GetOrderRequest) (*OrderResponse, error)
	DeleteOrder(context.Context, *DeleteOrderRequest) (*OrderIDResponse, error)
}

func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&OrderServiceDesc, srv)
}

var OrderServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method("CreateOrder", func(srv OrderServiceServer, ctx context.Context, req *CreateOrderRequest) (any, error) {
			return srv.CreateOrder(ctx, req)
		}),
		method("AddItem", func(srv OrderServiceServer, ctx context.Context, req *AddItemRequest) (any, error) {
			return srv.AddItem(ctx, req)
		}),
		method("GetOrder", func(srv OrderServiceServer, ctx context.Context, req *GetOrderRequest) (any, error) {
			return srv.GetOrder(ctx, req)
		}),
		method("DeleteOrder", func(srv OrderServiceServer, ctx context.Context, req *DeleteOrderRequest) (any, error) {
			return srv.DeleteOrder(ctx, req)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orders/v1/orders.json",
}

// method adapts a typed unary call to grpc's handler shape.
func method[Req any](name string, call func(OrderServiceServer, context.Context, *Req) (any, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	handler := func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(OrderServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(OrderServiceServer), ctx, req.(*Req))
		})
	}
	return grpc.MethodDesc{MethodName: name, Handler: handler}
}

type OrderServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderServiceClient(cc grpc.ClientConnInterface) *OrderServiceClient {
	return &OrderServiceClient{cc: cc}
}

func (c *OrderServiceClient) CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*OrderIDResponse, error) {
	out := new(OrderIDResponse)
	return out, c.invoke(ctx, "CreateOrder", in, out, opts)
}

func (c *OrderServiceClient) AddItem(ctx context.Context, in *AddItemRequest, opts ...grpc.CallOption) (*OrderIDResponse, error) {
	out := new(OrderIDResponse)
	return out, c.invoke(ctx, "AddItem", in, out, opts)
}

func (c *OrderServiceClient) GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*OrderResponse, error) {
	out := new(OrderResponse)
	return out, c.invoke(ctx, "GetOrder", in, out, opts)
}

func (c *OrderServiceClient) DeleteOrder(ctx context.Context, in *DeleteOrderRequest, opts ...grpc.CallOption) (*OrderIDResponse, error) {
	out := new(OrderIDResponse)
	return out, c.invoke(ctx, "DeleteOrder", in, out, opts)
}

func (c *OrderServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}
