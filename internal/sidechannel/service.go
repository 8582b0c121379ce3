package sidechannel

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #region constants
const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "arena.v1.ArenaParameters"

	pushMethod    = "/" + ServiceName + "/Push"
	channelHeader = "x-channel-id"
)

// ChannelID identifies the arena parameters channel. Messages carrying any
// other id are rejected.
var ChannelID = uuid.MustParse("9c36c837-cad5-498a-b675-bc19c9370072")

// #endregion constants

// #region client-api

// ParametersClient is the client API for the ArenaParameters service.
type ParametersClient interface {
	Push(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
}

type parametersClient struct {
	cc grpc.ClientConnInterface
}

// NewParametersClient binds the service to a connection.
func NewParametersClient(cc grpc.ClientConnInterface) ParametersClient {
	return &parametersClient{cc: cc}
}

func (c *parametersClient) Push(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, pushMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion client-api

// #region server-api

// ParametersServer is the server API for the ArenaParameters service.
type ParametersServer interface {
	Push(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
}

func pushHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ParametersServer).Push(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: pushMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ParametersServer).Push(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ParametersServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Push", Handler: pushHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "arena/v1/parameters.proto",
}

// #endregion server-api
