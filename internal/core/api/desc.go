package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "docupdate.v1.DocumentService"

// Full method names, as seen by interceptors.
const (
	MethodCreateDocument  = "/" + ServiceName + "/CreateDocument"
	MethodGetDocument     = "/" + ServiceName + "/GetDocument"
	MethodUpdateDocument  = "/" + ServiceName + "/UpdateDocument"
	MethodDeleteDocument  = "/" + ServiceName + "/DeleteDocument"
	MethodMergeOperations = "/" + ServiceName + "/MergeOperations"
)

// DocumentServiceServer is the server API for DocumentService.
//
// Messages are google.protobuf.Struct values: documents and operators are
// schemaless, so a typed message would only wrap a Struct field anyway.
type DocumentServiceServer interface {
	CreateDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MergeOperations(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterDocumentServiceServer registers srv with s.
func RegisterDocumentServiceServer(s grpc.ServiceRegistrar, srv DocumentServiceServer) {
	s.RegisterService(&DocumentServiceDesc, srv)
}

type unaryMethod func(DocumentServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DocumentServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DocumentServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// DocumentServiceDesc describes DocumentService for grpc.Server.
var DocumentServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DocumentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateDocument", Handler: unaryHandler(MethodCreateDocument, DocumentServiceServer.CreateDocument)},
		{MethodName: "GetDocument", Handler: unaryHandler(MethodGetDocument, DocumentServiceServer.GetDocument)},
		{MethodName: "UpdateDocument", Handler: unaryHandler(MethodUpdateDocument, DocumentServiceServer.UpdateDocument)},
		{MethodName: "DeleteDocument", Handler: unaryHandler(MethodDeleteDocument, DocumentServiceServer.DeleteDocument)},
		{MethodName: "MergeOperations", Handler: unaryHandler(MethodMergeOperations, DocumentServiceServer.MergeOperations)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "docupdate/v1/document_service.proto",
}

// DocumentServiceClient calls DocumentService over a client connection.
type DocumentServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewDocumentServiceClient creates a client on cc.
func NewDocumentServiceClient(cc grpc.ClientConnInterface) *DocumentServiceClient {
	return &DocumentServiceClient{cc: cc}
}

func (c *DocumentServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DocumentServiceClient) CreateDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodCreateDocument, in, opts...)
}

func (c *DocumentServiceClient) GetDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetDocument, in, opts...)
}

func (c *DocumentServiceClient) UpdateDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodUpdateDocument, in, opts...)
}

func (c *DocumentServiceClient) DeleteDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodDeleteDocument, in, opts...)
}

func (c *DocumentServiceClient) MergeOperations(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodMergeOperations, in, opts...)
}
