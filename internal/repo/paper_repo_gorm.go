package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"gorm.io/gorm"

	"papervault/internal/domain"
)

type PaperRepo struct{ db *gorm.DB }

func NewPaperRepo(db *gorm.DB) *PaperRepo { return &PaperRepo{db: db} }

func (r *PaperRepo) Create(ctx context.Context, p *domain.Paper) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaperRepo) FindByID(ctx context.Context, id string) (*domain.Paper, error) {
	var p domain.Paper
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByIDs 解答列表里的试卷摘要；已删除的试卷不在结果中
func (r *PaperRepo) FindByIDs(ctx context.Context, ids []string) (map[string]*domain.Paper, error) {
	out := make(map[string]*domain.Paper, len(ids))
	ids = uniq(ids)
	if len(ids) == 0 {
		return out, nil
	}
	var ps []domain.Paper
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&ps).Error; err != nil {
		return nil, err
	}
	for i := range ps {
		out[ps[i].ID] = &ps[i]
	}
	return out, nil
}

// List 条件之间 AND；结果按创建时间倒序
func (r *PaperRepo) List(ctx context.Context, f domain.PaperFilter) ([]domain.Paper, error) {
	q := r.db.WithContext(ctx).Model(&domain.Paper{})
	for _, c := range []struct {
		col string
		val *string
	}{
		{"subject", f.Subject},
		{"semester", f.Semester},
		{"year", f.Year},
		{"subject_code", f.SubjectCode},
		{"college_name", f.CollegeName},
	} {
		if v, ok := domain.Opt(c.val); ok {
			q = q.Where(c.col+" = ?", v)
		}
	}
	if s, ok := domain.Opt(f.Search); ok {
		terms := SearchTerms(s)
		if len(terms) == 0 {
			return []domain.Paper{}, nil
		}
		sql, args := searchClause(r.db.Dialector.Name(), terms)
		q = q.Where(sql, args...)
	}
	var ps []domain.Paper
	if err := q.Order("created_at DESC").Order("id DESC").Find(&ps).Error; err != nil {
		return nil, err
	}
	return ps, nil
}

// Related 同科目、排除自身
func (r *PaperRepo) Related(ctx context.Context, subject, excludeID string, limit int) ([]domain.Paper, error) {
	var ps []domain.Paper
	err := r.db.WithContext(ctx).
		Where("subject = ? AND id <> ?", subject, excludeID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&ps).Error
	return ps, err
}

func (r *PaperRepo) ListByAuthor(ctx context.Context, authorID string) ([]domain.Paper, error) {
	var ps []domain.Paper
	err := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").Order("id DESC").
		Find(&ps).Error
	return ps, err
}

// Delete 返回是否删除了记录
func (r *PaperRepo) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Paper{})
	return res.RowsAffected > 0, res.Error
}

var distinctColumns = map[string]struct{}{
	"subject": {}, "semester": {}, "year": {}, "subject_code": {}, "college_name": {},
}

// Distinct 某列去重后升序
func (r *PaperRepo) Distinct(ctx context.Context, col string) ([]string, error) {
	if _, ok := distinctColumns[col]; !ok {
		return nil, fmt.Errorf("distinct: unknown column %q", col)
	}
	out := []string{}
	err := r.db.WithContext(ctx).Model(&domain.Paper{}).
		Distinct(col).
		Where(col + " <> ''").
		Order(col + " ASC").
		Pluck(col, &out).Error
	return out, err
}

func (r *PaperRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Paper{}).Count(&n).Error
	return n, err
}

// SearchTerms 只保留字母数字，小写去重
func SearchTerms(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return uniq(fields)
}

// searchClause 任一词命中即可
func searchClause(dialect string, terms []string) (string, []any) {
	if dialect == dialectPostgres {
		return paperSearchDoc + " @@ to_tsquery('simple', ?)", []any{strings.Join(terms, " | ")}
	}
	parts := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms)*3)
	for _, t := range terms {
		like := "%" + t + "%"
		parts = append(parts, "(LOWER(title) LIKE ? OR LOWER(subject) LIKE ? OR LOWER(description) LIKE ?)")
		args = append(args, like, like, like)
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}
