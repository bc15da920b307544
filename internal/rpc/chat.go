package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const chatService = servicePrefix + "ChatService"

// ChatServer is the server API for ChatService.
type ChatServer interface {
	GetOrCreateChat(context.Context, *GetOrCreateChatRequest) (*GetOrCreateChatResponse, error)
	GetChat(context.Context, *GetChatRequest) (*GetChatResponse, error)
	ListChats(context.Context, *ListChatsRequest) (*ListChatsResponse, error)
}

var ChatServiceDesc = grpc.ServiceDesc{
	ServiceName: chatService,
	HandlerType: (*ChatServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(chatService, "GetOrCreateChat", func(srv any, ctx context.Context, req *GetOrCreateChatRequest) (*GetOrCreateChatResponse, error) {
			return srv.(ChatServer).GetOrCreateChat(ctx, req)
		}),
		unary(chatService, "GetChat", func(srv any, ctx context.Context, req *GetChatRequest) (*GetChatResponse, error) {
			return srv.(ChatServer).GetChat(ctx, req)
		}),
		unary(chatService, "ListChats", func(srv any, ctx context.Context, req *ListChatsRequest) (*ListChatsResponse, error) {
			return srv.(ChatServer).ListChats(ctx, req)
		}),
	},
	Metadata: "collab/v1/chat",
}

func RegisterChatServer(s grpc.ServiceRegistrar, srv ChatServer) {
	s.RegisterService(&ChatServiceDesc, srv)
}

// ChatClient is the client API for ChatService.
type ChatClient interface {
	GetOrCreateChat(ctx context.Context, in *GetOrCreateChatRequest, opts ...grpc.CallOption) (*GetOrCreateChatResponse, error)
	GetChat(ctx context.Context, in *GetChatRequest, opts ...grpc.CallOption) (*GetChatResponse, error)
	ListChats(ctx context.Context, in *ListChatsRequest, opts ...grpc.CallOption) (*ListChatsResponse, error)
}

type chatClient struct {
	cc grpc.ClientConnInterface
}

func NewChatClient(cc grpc.ClientConnInterface) ChatClient {
	return &chatClient{cc: cc}
}

func (c *chatClient) GetOrCreateChat(ctx context.Context, in *GetOrCreateChatRequest, opts ...grpc.CallOption) (*GetOrCreateChatResponse, error) {
	return invoke[GetOrCreateChatResponse](ctx, c.cc, "/"+chatService+"/GetOrCreateChat", in, opts...)
}

func (c *chatClient) GetChat(ctx context.Context, in *GetChatRequest, opts ...grpc.CallOption) (*GetChatResponse, error) {
	return invoke[GetChatResponse](ctx, c.cc, "/"+chatService+"/GetChat", in, opts...)
}

func (c *chatClient) ListChats(ctx context.Context, in *ListChatsRequest, opts ...grpc.CallOption) (*ListChatsResponse, error) {
	return invoke[ListChatsResponse](ctx, c.cc, "/"+chatService+"/ListChats", in, opts...)
}
