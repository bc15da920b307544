package api

import (
	"context"

	"github.com/matheus3301/collab/internal/directory"
	"github.com/matheus3301/collab/internal/rpc"
)

// DirectoryService implements the DirectoryService gRPC service.
type DirectoryService struct {
	dir *directory.Service
}

func NewDirectoryService(dir *directory.Service) *DirectoryService {
	return &DirectoryService{dir: dir}
}

// Search never fails: backend problems degrade to an empty list.
func (s *DirectoryService) Search(ctx context.Context, req *rpc.SearchRequest) (*rpc.SearchResponse, error) {
	users := s.dir.Search(ctx, req.Query, req.CallerID)
	return &rpc.SearchResponse{Users: rpc.FromUsers(users)}, nil
}

func (s *DirectoryService) PutUser(ctx context.Context, req *rpc.PutUserRequest) (*rpc.PutUserResponse, error) {
	in := req.User.ToStore()
	u, err := s.dir.PutUser(ctx, &in)
	if err != nil {
		return nil, toStatus("put user", err)
	}
	return &rpc.PutUserResponse{User: rpc.FromUser(*u)}, nil
}

func (s *DirectoryService) SeedDemoUsers(ctx context.Context, _ *rpc.SeedDemoUsersRequest) (*rpc.SeedDemoUsersResponse, error) {
	n, err := s.dir.SeedDemoUsers(ctx)
	if err != nil {
		return nil, toStatus("seed demo users", err)
	}
	return &rpc.SeedDemoUsersResponse{Created: n}, nil
}
