package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const messageService = servicePrefix + "MessageService"

// MessageServer is the server API for MessageService.
type MessageServer interface {
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
	MarkRead(context.Context, *MarkReadRequest) (*MarkReadResponse, error)
	WatchMessages(*WatchMessagesRequest, grpc.ServerStreamingServer[MessageSnapshot]) error
}

var MessageServiceDesc = grpc.ServiceDesc{
	ServiceName: messageService,
	HandlerType: (*MessageServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(messageService, "SendMessage", func(srv any, ctx context.Context, req *SendMessageRequest) (*SendMessageResponse, error) {
			return srv.(MessageServer).SendMessage(ctx, req)
		}),
		unary(messageService, "ListMessages", func(srv any, ctx context.Context, req *ListMessagesRequest) (*ListMessagesResponse, error) {
			return srv.(MessageServer).ListMessages(ctx, req)
		}),
		unary(messageService, "MarkRead", func(srv any, ctx context.Context, req *MarkReadRequest) (*MarkReadResponse, error) {
			return srv.(MessageServer).MarkRead(ctx, req)
		}),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchMessages",
			Handler:       watchMessagesHandler,
			ServerStreams: true,
		},
	},
	Metadata: "collab/v1/message",
}

func watchMessagesHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchMessagesRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(MessageServer).WatchMessages(in, &grpc.GenericServerStream[WatchMessagesRequest, MessageSnapshot]{ServerStream: stream})
}

func RegisterMessageServer(s grpc.ServiceRegistrar, srv MessageServer) {
	s.RegisterService(&MessageServiceDesc, srv)
}

// MessageClient is the client API for MessageService.
type MessageClient interface {
	SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error)
	ListMessages(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*ListMessagesResponse, error)
	MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error)
	WatchMessages(ctx context.Context, in *WatchMessagesRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[MessageSnapshot], error)
}

type messageClient struct {
	cc grpc.ClientConnInterface
}

func NewMessageClient(cc grpc.ClientConnInterface) MessageClient {
	return &messageClient{cc: cc}
}

func (c *messageClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	return invoke[SendMessageResponse](ctx, c.cc, "/"+messageService+"/SendMessage", in, opts...)
}

func (c *messageClient) ListMessages(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*ListMessagesResponse, error) {
	return invoke[ListMessagesResponse](ctx, c.cc, "/"+messageService+"/ListMessages", in, opts...)
}

func (c *messageClient) MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error) {
	return invoke[MarkReadResponse](ctx, c.cc, "/"+messageService+"/MarkRead", in, opts...)
}

func (c *messageClient) WatchMessages(ctx context.Context, in *WatchMessagesRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[MessageSnapshot], error) {
	stream, err := c.cc.NewStream(ctx, &MessageServiceDesc.Streams[0], "/"+messageService+"/WatchMessages", opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[WatchMessagesRequest, MessageSnapshot]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
