package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const statusService = servicePrefix + "StatusService"

// StatusServer is the server API for StatusService.
type StatusServer interface {
	GetStatus(context.Context, *GetStatusRequest) (*GetStatusResponse, error)
}

var StatusServiceDesc = grpc.ServiceDesc{
	ServiceName: statusService,
	HandlerType: (*StatusServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(statusService, "GetStatus", func(srv any, ctx context.Context, req *GetStatusRequest) (*GetStatusResponse, error) {
			return srv.(StatusServer).GetStatus(ctx, req)
		}),
	},
	Metadata: "collab/v1/status",
}

func RegisterStatusServer(s grpc.ServiceRegistrar, srv StatusServer) {
	s.RegisterService(&StatusServiceDesc, srv)
}

// StatusClient is the client API for StatusService.
type StatusClient interface {
	GetStatus(ctx context.Context, in *GetStatusRequest, opts ...grpc.CallOption) (*GetStatusResponse, error)
}

type statusClient struct {
	cc grpc.ClientConnInterface
}

func NewStatusClient(cc grpc.ClientConnInterface) StatusClient {
	return &statusClient{cc: cc}
}

func (c *statusClient) GetStatus(ctx context.Context, in *GetStatusRequest, opts ...grpc.CallOption) (*GetStatusResponse, error) {
	return invoke[GetStatusResponse](ctx, c.cc, "/"+statusService+"/GetStatus", in, opts...)
}
