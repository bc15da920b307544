// Package directory finds conversation partners and keeps the user
// directory in sync with the identity provider.
package directory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/collab/internal/metrics"
	"github.com/matheus3301/collab/internal/store"
)

// ErrInvalidUser is returned by PutUser for entries without a username.
var ErrInvalidUser = errors.New("invalid user")

// Store is the slice of the row store the directory reads and writes.
type Store interface {
	ListVisibleUsers(ctx context.Context, excludeID string) ([]store.User, error)
	PutUser(ctx context.Context, u *store.User) (*store.User, error)
	InsertUserIfAbsent(ctx context.Context, u *store.User) (bool, error)
}

// Service implements directory search and sync.
type Service struct {
	store   Store
	logger  *zap.Logger
	timeout time.Duration
	limit   int
	metrics *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout bounds every store round trip.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithLimit caps the number of search results. Values outside 1..20 are
// clamped.
func WithLimit(n int) Option {
	return func(s *Service) { s.limit = min(max(n, 1), maxResults) }
}

// WithMetrics records searches on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

const (
	maxResults     = 20
	defaultTimeout = 30 * time.Second
)

// New creates a directory service over st.
func New(st Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:   st,
		logger:  logger.Named("directory"),
		timeout: defaultTimeout,
		limit:   maxResults,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns up to the configured limit of visible users other than
// callerID. A non-empty query filters and ranks by Score; an empty query
// lists the newest users first. Failures are logged and yield an empty
// result.
func (s *Service) Search(ctx context.Context, query, callerID string) []store.User {
	s.metrics.SearchServed()
	if strings.TrimSpace(callerID) == "" {
		s.logger.Warn("search without caller id", zap.String("query", query))
		return []store.User{}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	users, err := s.store.ListVisibleUsers(ctx, callerID)
	if err != nil {
		s.metrics.SearchFailed()
		s.logger.Error("search failed",
			zap.String("op", "search"),
			zap.String("caller", callerID),
			zap.String("query", query),
			zap.Error(err),
		)
		return []store.User{}
	}

	return Rank(users, query, callerID, s.limit)
}

// Rank filters, scores and orders candidates the way Search does, without
// touching the store. Invisible users and callerID are always dropped.
func Rank(users []store.User, query, callerID string, limit int) []store.User {
	q := normalize(query)
	out := make([]store.User, 0, len(users))
	for _, u := range users {
		if !u.IsVisible || u.ID == callerID {
			continue
		}
		if q != "" {
			if !Matches(u, q) {
				continue
			}
			u.MatchScore = Score(u, q)
		}
		out = append(out, u)
	}

	slices.SortStableFunc(out, func(a, b store.User) int {
		if c := cmp.Compare(b.MatchScore, a.MatchScore); c != 0 {
			return c
		}
		if c := cmp.Compare(b.CreatedAt, a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Username, b.Username)
	})

	if limit <= 0 || limit > maxResults {
		limit = maxResults
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// PutUser creates or replaces a directory entry on behalf of the identity
// provider.
func (s *Service) PutUser(ctx context.Context, u *store.User) (*store.User, error) {
	if u == nil || strings.TrimSpace(u.Username) == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidUser)
	}
	in := *u
	in.Username = strings.TrimSpace(in.Username)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.store.PutUser(ctx, &in)
	if err != nil {
		s.logger.Error("put user failed",
			zap.String("op", "put_user"),
			zap.String("id", in.ID),
			zap.String("username", in.Username),
			zap.Error(err),
		)
		return nil, fmt.Errorf("put user %s: %w", in.Username, err)
	}
	s.logger.Info("user stored", zap.String("id", out.ID), zap.String("username", out.Username))
	return out, nil
}

// DemoUsers are the accounts created by SeedDemoUsers.
var DemoUsers = []store.User{
	{
		Username:  "demo_user",
		Email:     "demo@example.com",
		Bio:       "Demo account for testing",
		Avatar:    "https://ui-avatars.com/api/?name=Demo+User",
		Role:      "user",
		IsVisible: true,
	},
	{
		Username:  "influencer1",
		Email:     "influencer1@example.com",
		Bio:       "Fashion and lifestyle blogger",
		Avatar:    "https://ui-avatars.com/api/?name=Fashion+Influencer",
		Role:      "influencer",
		IsVisible: true,
	},
	{
		Username:  "brand1",
		Email:     "brand1@example.com",
		Bio:       "Fashion company",
		Avatar:    "https://ui-avatars.com/api/?name=Brand+Company",
		Role:      "brand",
		IsVisible: true,
	},
}

// SeedDemoUsers inserts the demo accounts that do not exist yet (matched by
// username) and returns how many were created.
func (s *Service) SeedDemoUsers(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	created := 0
	for _, demo := range DemoUsers {
		u := demo
		ok, err := s.store.InsertUserIfAbsent(ctx, &u)
		if err != nil {
			s.logger.Error("seed demo user failed", zap.String("username", u.Username), zap.Error(err))
			return created, fmt.Errorf("seed %s: %w", u.Username, err)
		}
		if ok {
			created++
			s.logger.Info("demo user created", zap.String("username", u.Username))
		}
	}
	return created, nil
}
