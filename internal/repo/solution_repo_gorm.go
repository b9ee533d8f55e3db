package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"papervault/internal/domain"
)

type SolutionRepo struct{ db *gorm.DB }

func NewSolutionRepo(db *gorm.DB) *SolutionRepo { return &SolutionRepo{db: db} }

func (r *SolutionRepo) Create(ctx context.Context, s *domain.Solution) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return err
	}
	s.Upvotes, s.Downvotes = []string{}, []string{}
	return nil
}

func (r *SolutionRepo) FindByID(ctx context.Context, id string) (*domain.Solution, error) {
	var s domain.Solution
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := attachVotes(ctx, r.db, []*domain.Solution{&s}); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByPaper 按创建时间倒序，带投票集合
func (r *SolutionRepo) ListByPaper(ctx context.Context, paperID string) ([]domain.Solution, error) {
	return r.list(ctx, "paper_id = ?", paperID)
}

func (r *SolutionRepo) ListByAuthor(ctx context.Context, authorID string) ([]domain.Solution, error) {
	return r.list(ctx, "author_id = ?", authorID)
}

func (r *SolutionRepo) list(ctx context.Context, where string, arg any) ([]domain.Solution, error) {
	var ss []domain.Solution
	if err := r.db.WithContext(ctx).
		Where(where, arg).
		Order("created_at DESC").Order("id DESC").
		Find(&ss).Error; err != nil {
		return nil, err
	}
	ptrs := make([]*domain.Solution, len(ss))
	for i := range ss {
		ptrs[i] = &ss[i]
	}
	if err := attachVotes(ctx, r.db, ptrs); err != nil {
		return nil, err
	}
	return ss, nil
}

// CountByPapers 一次分组统计；没有解答的试卷不在 map 中
func (r *SolutionRepo) CountByPapers(ctx context.Context, paperIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(paperIDs))
	paperIDs = uniq(paperIDs)
	if len(paperIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		PaperID string
		N       int64
	}
	if err := r.db.WithContext(ctx).Model(&domain.Solution{}).
		Select("paper_id, COUNT(*) AS n").
		Where("paper_id IN ?", paperIDs).
		Group("paper_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PaperID] = row.N
	}
	return out, nil
}

func (r *SolutionRepo) CountByPaper(ctx context.Context, paperID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Solution{}).Where("paper_id = ?", paperID).Count(&n).Error
	return n, err
}

func (r *SolutionRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Solution{}).Count(&n).Error
	return n, err
}

func (r *SolutionRepo) CountVotes(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.SolutionVote{}).Count(&n).Error
	return n, err
}

// ToggleVote 同类再投即取消；异类则切换；行锁 + 复合主键保证用户至多在一个集合里
func (r *SolutionRepo) ToggleVote(ctx context.Context, solutionID, userID string, kind domain.VoteKind, now time.Time) (domain.VoteSets, error) {
	var sets domain.VoteSets
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lock := tx
		if tx.Dialector.Name() != dialectSQLite {
			lock = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var s domain.Solution
		if err := lock.Select("id").First(&s, "id = ?", solutionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("solution not found")
			}
			return err
		}

		var v domain.SolutionVote
		err := tx.Where("solution_id = ? AND user_id = ?", solutionID, userID).Take(&v).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&domain.SolutionVote{
				SolutionID: solutionID, UserID: userID, Kind: kind, CreatedAt: now,
			}).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		case v.Kind == kind:
			if err := tx.Where("solution_id = ? AND user_id = ?", solutionID, userID).
				Delete(&domain.SolutionVote{}).Error; err != nil {
				return err
			}
		default:
			if err := tx.Model(&domain.SolutionVote{}).
				Where("solution_id = ? AND user_id = ?", solutionID, userID).
				Updates(map[string]any{"kind": kind, "created_at": now}).Error; err != nil {
				return err
			}
		}

		votes, err := loadVotes(tx, []string{solutionID})
		if err != nil {
			return err
		}
		sets = votes[solutionID]
		return nil
	})
	if err != nil {
		return domain.VoteSets{}, err
	}
	return sets, nil
}

// loadVotes 每个 id 都有非 nil 的两个集合；集合内按投票时间
func loadVotes(db *gorm.DB, ids []string) (map[string]domain.VoteSets, error) {
	out := make(map[string]domain.VoteSets, len(ids))
	for _, id := range ids {
		out[id] = domain.VoteSets{Upvotes: []string{}, Downvotes: []string{}}
	}
	ids = uniq(ids)
	if len(ids) == 0 {
		return out, nil
	}
	var vs []domain.SolutionVote
	if err := db.Where("solution_id IN ?", ids).
		Order("created_at ASC").Order("user_id ASC").
		Find(&vs).Error; err != nil {
		return nil, err
	}
	for _, v := range vs {
		set := out[v.SolutionID]
		if v.Kind == domain.Upvote {
			set.Upvotes = append(set.Upvotes, v.UserID)
		} else {
			set.Downvotes = append(set.Downvotes, v.UserID)
		}
		out[v.SolutionID] = set
	}
	return out, nil
}

func attachVotes(ctx context.Context, db *gorm.DB, ss []*domain.Solution) error {
	ids := make([]string, len(ss))
	for i, s := range ss {
		ids[i] = s.ID
	}
	votes, err := loadVotes(db.WithContext(ctx), ids)
	if err != nil {
		return err
	}
	for _, s := range ss {
		set := votes[s.ID]
		s.Upvotes, s.Downvotes = set.Upvotes, set.Downvotes
	}
	return nil
}
