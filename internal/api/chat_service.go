package api

import (
	"context"

	"github.com/matheus3301/collab/internal/resolver"
	"github.com/matheus3301/collab/internal/rpc"
)

// ChatService implements the ChatService gRPC service.
type ChatService struct {
	resolver *resolver.Resolver
}

func NewChatService(r *resolver.Resolver) *ChatService {
	return &ChatService{resolver: r}
}

func (s *ChatService) GetOrCreateChat(ctx context.Context, req *rpc.GetOrCreateChatRequest) (*rpc.GetOrCreateChatResponse, error) {
	id, err := s.resolver.GetOrCreate(ctx, req.UserA, req.UserB)
	if err != nil {
		return nil, toStatus("get or create chat", err)
	}
	return &rpc.GetOrCreateChatResponse{ChatID: id}, nil
}

func (s *ChatService) GetChat(ctx context.Context, req *rpc.GetChatRequest) (*rpc.GetChatResponse, error) {
	c, err := s.resolver.Get(ctx, req.ChatID)
	if err != nil {
		return nil, toStatus("get chat", err)
	}
	return &rpc.GetChatResponse{Chat: rpc.FromChat(*c)}, nil
}

func (s *ChatService) ListChats(ctx context.Context, req *rpc.ListChatsRequest) (*rpc.ListChatsResponse, error) {
	limit := 50
	if req.Limit > 0 {
		limit = req.Limit
	}
	chats, err := s.resolver.List(ctx, req.UserID, limit)
	if err != nil {
		return nil, toStatus("list chats", err)
	}
	return &rpc.ListChatsResponse{Chats: rpc.FromChats(chats)}, nil
}
