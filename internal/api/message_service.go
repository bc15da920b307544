package api

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/matheus3301/collab/internal/channel"
	"github.com/matheus3301/collab/internal/rpc"
	"github.com/matheus3301/collab/internal/store"
)

// MessageService implements the MessageService gRPC service.
type MessageService struct {
	channel *channel.Channel
	logger  *zap.Logger
}

func NewMessageService(ch *channel.Channel, logger *zap.Logger) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{channel: ch, logger: logger}
}

// SendMessage reports validation and unknown-chat failures in the response
// body. Backend failures are returned as Unavailable.
func (s *MessageService) SendMessage(ctx context.Context, req *rpc.SendMessageRequest) (*rpc.SendMessageResponse, error) {
	msg, err := s.channel.Send(ctx, req.ChatID, req.SenderID, req.Content)
	switch {
	case err == nil:
		out := rpc.FromMessage(*msg)
		return &rpc.SendMessageResponse{Success: true, Message: &out}, nil
	case errors.Is(err, channel.ErrInvalidMessage), errors.Is(err, channel.ErrChatNotFound):
		return &rpc.SendMessageResponse{Success: false, Error: err.Error()}, nil
	default:
		return nil, toStatus("send message", err)
	}
}

func (s *MessageService) ListMessages(ctx context.Context, req *rpc.ListMessagesRequest) (*rpc.ListMessagesResponse, error) {
	msgs, err := s.channel.History(ctx, req.ChatID)
	if err != nil {
		return nil, toStatus("list messages", err)
	}
	return &rpc.ListMessagesResponse{Messages: rpc.FromMessages(msgs)}, nil
}

func (s *MessageService) MarkRead(ctx context.Context, req *rpc.MarkReadRequest) (*rpc.MarkReadResponse, error) {
	n, err := s.channel.MarkRead(ctx, req.ChatID, req.ReaderID)
	if err != nil {
		return nil, toStatus("mark read", err)
	}
	return &rpc.MarkReadResponse{Updated: n}, nil
}

// WatchMessages streams a full snapshot of the chat on subscribe and after
// every change. A slow client only ever receives the newest snapshot.
func (s *MessageService) WatchMessages(req *rpc.WatchMessagesRequest, stream grpc.ServerStreamingServer[rpc.MessageSnapshot]) error {
	ctx := stream.Context()
	if _, err := s.channel.History(ctx, req.ChatID); err != nil {
		return toStatus("watch messages", err)
	}

	latest := make(chan []store.Message, 1)
	sub, err := s.channel.Subscribe(ctx, req.ChatID, func(msgs []store.Message) {
		select {
		case <-latest:
		default:
		}
		latest <- msgs
	})
	if err != nil {
		return toStatus("watch messages", err)
	}
	defer sub.Unsubscribe()
	s.logger.Debug("watch started", zap.String("chat_id", req.ChatID))

	var seq int64
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("watch ended", zap.String("chat_id", req.ChatID))
			return nil
		case msgs := <-latest:
			seq++
			if err := stream.Send(&rpc.MessageSnapshot{
				ChatID:   req.ChatID,
				Seq:      seq,
				Messages: rpc.FromMessages(msgs),
			}); err != nil {
				return err
			}
		}
	}
}
