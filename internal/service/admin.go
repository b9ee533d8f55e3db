package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"papervault/internal/domain"
)

type UserLister interface {
	List(ctx context.Context, q string, offset, limit int) ([]domain.User, int64, error)
	Count(ctx context.Context) (int64, error)
}

type Counter interface {
	Count(ctx context.Context) (int64, error)
}

type VoteCounter interface {
	CountVotes(ctx context.Context) (int64, error)
}

type Stats struct {
	Users     int64 `json:"users"`
	Papers    int64 `json:"papers"`
	Solutions int64 `json:"solutions"`
	Votes     int64 `json:"votes"`
}

type UserPage struct {
	Total int64         `json:"total"`
	Items []domain.User `json:"items"`
}

type AdminService struct {
	users     UserLister
	papers    Counter
	solutions Counter
	votes     VoteCounter
	log       *zap.Logger
}

func NewAdminService(users UserLister, papers, solutions Counter, votes VoteCounter, l *zap.Logger) *AdminService {
	return &AdminService{users: users, papers: papers, solutions: solutions, votes: votes, log: l}
}

func (s *AdminService) ListUsers(ctx context.Context, q string, offset, limit int) (*UserPage, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	us, total, err := s.users.List(ctx, q, offset, limit)
	if err != nil {
		return nil, storeErr(s.log, "user.list", err)
	}
	if us == nil {
		us = []domain.User{}
	}
	return &UserPage{Total: total, Items: us}, nil
}

func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { st.Users, err = s.users.Count(gctx); return })
	g.Go(func() (err error) { st.Papers, err = s.papers.Count(gctx); return })
	g.Go(func() (err error) { st.Solutions, err = s.solutions.Count(gctx); return })
	g.Go(func() (err error) { st.Votes, err = s.votes.CountVotes(gctx); return })
	if err := g.Wait(); err != nil {
		return nil, storeErr(s.log, "admin.stats", err)
	}
	return &st, nil
}
