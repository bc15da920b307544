package api

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/collab/internal/rpc"
	"github.com/matheus3301/collab/internal/status"
	"github.com/matheus3301/collab/internal/store"
)

// StatsSource reports row counts.
type StatsSource interface {
	Stats(ctx context.Context) (*store.Stats, error)
	Driver() string
}

// StatusInfo describes the optional components a daemon runs.
type StatusInfo struct {
	Profile string
	Relay   bool
	Bridge  bool
}

// StatusService implements the StatusService gRPC service.
type StatusService struct {
	info      StatusInfo
	startedAt time.Time
	machine   *status.Machine
	stats     StatsSource
	logger    *zap.Logger
}

func NewStatusService(info StatusInfo, machine *status.Machine, stats StatsSource, logger *zap.Logger) *StatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusService{
		info:      info,
		startedAt: time.Now(),
		machine:   machine,
		stats:     stats,
		logger:    logger,
	}
}

func (s *StatusService) GetStatus(ctx context.Context, _ *rpc.GetStatusRequest) (*rpc.GetStatusResponse, error) {
	state, _, reason := s.machine.Snapshot()
	resp := &rpc.GetStatusResponse{
		Profile:  s.info.Profile,
		State:    string(state),
		Reason:   reason,
		UptimeMs: time.Since(s.startedAt).Milliseconds(),
		Relay:    s.info.Relay,
		Bridge:   s.info.Bridge,
	}

	// Counts are informational; a failing store still reports the state.
	if s.stats != nil {
		resp.Driver = s.stats.Driver()
		if st, err := s.stats.Stats(ctx); err == nil {
			resp.Users = st.Users
			resp.Chats = st.Chats
			resp.Messages = st.Messages
			resp.PendingOutbox = st.PendingOutbox
		} else {
			s.logger.Warn("status counts unavailable", zap.Error(err))
		}
	}
	return resp, nil
}
