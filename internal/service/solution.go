package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"papervault/internal/domain"
	"papervault/pkg/utils"
)

const maxSolutionLen = 20000

type SolutionService struct {
	solutions SolutionStore
	papers    PaperStore
	users     UserStore
	log       *zap.Logger
	now       func() time.Time
}

func NewSolutionService(solutions SolutionStore, papers PaperStore, users UserStore, l *zap.Logger) *SolutionService {
	return &SolutionService{solutions: solutions, papers: papers, users: users, log: l, now: utcNow}
}

func (s *SolutionService) requirePaper(ctx context.Context, paperID string) (*domain.Paper, error) {
	p, err := s.papers.FindByID(ctx, paperID)
	if err != nil {
		return nil, storeErr(s.log, "paper.find", err)
	}
	if p == nil {
		return nil, domain.NotFound("paper not found")
	}
	return p, nil
}

func (s *SolutionService) ListForPaper(ctx context.Context, paperID string) ([]domain.SolutionView, error) {
	if _, err := s.requirePaper(ctx, paperID); err != nil {
		return nil, err
	}
	ss, err := s.solutions.ListByPaper(ctx, paperID)
	if err != nil {
		return nil, storeErr(s.log, "solution.list_by_paper", err)
	}
	return s.withAuthors(ctx, ss)
}

func (s *SolutionService) withAuthors(ctx context.Context, ss []domain.Solution) ([]domain.SolutionView, error) {
	out := make([]domain.SolutionView, 0, len(ss))
	ids := make([]string, len(ss))
	for i, sol := range ss {
		ids[i] = sol.AuthorID
	}
	authors, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr(s.log, "user.find_by_ids", err)
	}
	for _, sol := range ss {
		v := domain.SolutionView{Solution: sol}
		if a, ok := authors[sol.AuthorID]; ok {
			v.Author = a.Public()
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *SolutionService) AddSolution(ctx context.Context, authorID, paperID, content string) (*domain.SolutionView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.Validation("content is required")
	}
	if len(content) > maxSolutionLen {
		return nil, domain.Validation("content is too long")
	}
	if _, err := s.requirePaper(ctx, paperID); err != nil {
		return nil, err
	}
	author, err := s.users.FindByID(ctx, authorID)
	if err != nil {
		return nil, storeErr(s.log, "user.find_by_id", err)
	}
	if author == nil {
		return nil, domain.NotFound("author not found")
	}
	sol := &domain.Solution{
		ID:        utils.NewID(),
		PaperID:   paperID,
		Content:   content,
		AuthorID:  authorID,
		CreatedAt: s.now(),
	}
	if err := s.solutions.Create(ctx, sol); err != nil {
		return nil, storeErr(s.log, "solution.create", err)
	}
	sol.Upvotes, sol.Downvotes = []string{}, []string{}
	return &domain.SolutionView{Solution: *sol, Author: author.Public()}, nil
}

// ToggleVote 只校验解答存在，不再校验所属试卷
func (s *SolutionService) ToggleVote(ctx context.Context, userID, solutionID string, kind domain.VoteKind) (domain.VoteSets, error) {
	if !kind.Valid() {
		return domain.VoteSets{}, domain.Validation("unknown vote kind")
	}
	sets, err := s.solutions.ToggleVote(ctx, solutionID, userID, kind, s.now())
	if err != nil {
		return domain.VoteSets{}, storeErr(s.log, "solution.toggle_vote", err)
	}
	return sets, nil
}

// ListByAuthor 附带试卷摘要；试卷已删除时 paper 为 null
func (s *SolutionService) ListByAuthor(ctx context.Context, authorID string) ([]domain.SolutionView, error) {
	ss, err := s.solutions.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, storeErr(s.log, "solution.list_by_author", err)
	}
	pids := make([]string, len(ss))
	for i, sol := range ss {
		pids[i] = sol.PaperID
	}
	papers, err := s.papers.FindByIDs(ctx, pids)
	if err != nil {
		return nil, storeErr(s.log, "paper.find_by_ids", err)
	}
	out := make([]domain.SolutionView, 0, len(ss))
	for _, sol := range ss {
		v := domain.SolutionView{Solution: sol}
		if p, ok := papers[sol.PaperID]; ok {
			v.Paper = &domain.PaperSummary{ID: p.ID, Title: p.Title, Subject: p.Subject, Semester: p.Semester, Year: p.Year}
		}
		out = append(out, v)
	}
	return out, nil
}
