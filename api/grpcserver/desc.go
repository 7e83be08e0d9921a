package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The query API is built from well-known types only, so no generated code
// is needed on either side.

const serviceName = "lobfeed.v1.BookQuery"

// BookQueryServer is the server API for lobfeed.v1.BookQuery.
type BookQueryServer interface {
	GetBook(context.Context, *wrapperspb.UInt32Value) (*structpb.Struct, error)
	ListBooks(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetSubaccount(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

func RegisterBookQueryServer(s grpc.ServiceRegistrar, srv BookQueryServer) {
	s.RegisterService(&BookQueryServiceDesc, srv)
}

var BookQueryServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*BookQueryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetBook", Handler: getBookHandler},
		{MethodName: "ListBooks", Handler: listBooksHandler},
		{MethodName: "GetSubaccount", Handler: getSubaccountHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lobfeed/v1/book_query.proto",
}

func getBookHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.UInt32Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookQueryServer).GetBook(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetBook"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BookQueryServer).GetBook(ctx, req.(*wrapperspb.UInt32Value))
	}
	return interceptor(ctx, in, info, handler)
}

func listBooksHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookQueryServer).ListBooks(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ListBooks"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BookQueryServer).ListBooks(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getSubaccountHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookQueryServer).GetSubaccount(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetSubaccount"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BookQueryServer).GetSubaccount(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// BookQueryClient calls lobfeed.v1.BookQuery.
type BookQueryClient struct {
	cc grpc.ClientConnInterface
}

func NewBookQueryClient(cc grpc.ClientConnInterface) *BookQueryClient {
	return &BookQueryClient{cc: cc}
}

func (c *BookQueryClient) GetBook(ctx context.Context, clobPairID uint32, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, "/"+serviceName+"/GetBook", wrapperspb.UInt32(clobPairID), out, opts...)
	return out, err
}

func (c *BookQueryClient) ListBooks(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, "/"+serviceName+"/ListBooks", &emptypb.Empty{}, out, opts...)
	return out, err
}

func (c *BookQueryClient) GetSubaccount(ctx context.Context, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, "/"+serviceName+"/GetSubaccount", wrapperspb.String(id), out, opts...)
	return out, err
}
