package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/matheus3301/collab/internal/channel"
	"github.com/matheus3301/collab/internal/directory"
	"github.com/matheus3301/collab/internal/resolver"
)

// toStatus maps core errors onto gRPC codes: validation failures become
// InvalidArgument, missing rows NotFound and anything else Unavailable.
func toStatus(op string, err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, channel.ErrInvalidMessage),
		errors.Is(err, channel.ErrNotParticipant),
		errors.Is(err, resolver.ErrMissingParticipant),
		errors.Is(err, resolver.ErrSameParticipant),
		errors.Is(err, directory.ErrInvalidUser):
		code = codes.InvalidArgument
	case errors.Is(err, channel.ErrChatNotFound),
		errors.Is(err, resolver.ErrNotFound),
		errors.Is(err, resolver.ErrUnknownParticipants):
		code = codes.NotFound
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		code = codes.Unavailable
	}
	return grpcstatus.Errorf(code, "%s: %v", op, err)
}
