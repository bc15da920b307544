package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const directoryService = servicePrefix + "DirectoryService"

// DirectoryServer is the server API for DirectoryService.
type DirectoryServer interface {
	Search(context.Context, *SearchRequest) (*SearchResponse, error)
	PutUser(context.Context, *PutUserRequest) (*PutUserResponse, error)
	SeedDemoUsers(context.Context, *SeedDemoUsersRequest) (*SeedDemoUsersResponse, error)
}

var DirectoryServiceDesc = grpc.ServiceDesc{
	ServiceName: directoryService,
	HandlerType: (*DirectoryServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(directoryService, "Search", func(srv any, ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
			return srv.(DirectoryServer).Search(ctx, req)
		}),
		unary(directoryService, "PutUser", func(srv any, ctx context.Context, req *PutUserRequest) (*PutUserResponse, error) {
			return srv.(DirectoryServer).PutUser(ctx, req)
		}),
		unary(directoryService, "SeedDemoUsers", func(srv any, ctx context.Context, req *SeedDemoUsersRequest) (*SeedDemoUsersResponse, error) {
			return srv.(DirectoryServer).SeedDemoUsers(ctx, req)
		}),
	},
	Metadata: "collab/v1/directory",
}

func RegisterDirectoryServer(s grpc.ServiceRegistrar, srv DirectoryServer) {
	s.RegisterService(&DirectoryServiceDesc, srv)
}

// DirectoryClient is the client API for DirectoryService.
type DirectoryClient interface {
	Search(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error)
	PutUser(ctx context.Context, in *PutUserRequest, opts ...grpc.CallOption) (*PutUserResponse, error)
	SeedDemoUsers(ctx context.Context, in *SeedDemoUsersRequest, opts ...grpc.CallOption) (*SeedDemoUsersResponse, error)
}

type directoryClient struct {
	cc grpc.ClientConnInterface
}

func NewDirectoryClient(cc grpc.ClientConnInterface) DirectoryClient {
	return &directoryClient{cc: cc}
}

func (c *directoryClient) Search(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error) {
	return invoke[SearchResponse](ctx, c.cc, "/"+directoryService+"/Search", in, opts...)
}

func (c *directoryClient) PutUser(ctx context.Context, in *PutUserRequest, opts ...grpc.CallOption) (*PutUserResponse, error) {
	return invoke[PutUserResponse](ctx, c.cc, "/"+directoryService+"/PutUser", in, opts...)
}

func (c *directoryClient) SeedDemoUsers(ctx context.Context, in *SeedDemoUsersRequest, opts ...grpc.CallOption) (*SeedDemoUsersResponse, error) {
	return invoke[SeedDemoUsersResponse](ctx, c.cc, "/"+directoryService+"/SeedDemoUsers", in, opts...)
}
