package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"papervault/internal/domain"
)

type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error)
	UpdateProfile(ctx context.Context, id string, p domain.ProfileUpdate, at time.Time) error
	UpdatePassword(ctx context.Context, id, hash string, at time.Time) error
}

type PaperStore interface {
	Create(ctx context.Context, p *domain.Paper) error
	FindByID(ctx context.Context, id string) (*domain.Paper, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*domain.Paper, error)
	List(ctx context.Context, f domain.PaperFilter) ([]domain.Paper, error)
	Related(ctx context.Context, subject, excludeID string, limit int) ([]domain.Paper, error)
	ListByAuthor(ctx context.Context, authorID string) ([]domain.Paper, error)
	Delete(ctx context.Context, id string) (bool, error)
	Distinct(ctx context.Context, col string) ([]string, error)
}

type SolutionStore interface {
	Create(ctx context.Context, s *domain.Solution) error
	ListByPaper(ctx context.Context, paperID string) ([]domain.Solution, error)
	ListByAuthor(ctx context.Context, authorID string) ([]domain.Solution, error)
	CountByPapers(ctx context.Context, paperIDs []string) (map[string]int64, error)
	CountByPaper(ctx context.Context, paperID string) (int64, error)
	ToggleVote(ctx context.Context, solutionID, userID string, kind domain.VoteKind, now time.Time) (domain.VoteSets, error)
}

func utcNow() time.Time { return time.Now().UTC() }

// storeErr 业务错误原样返回；驱动错误记日志后转成 StoreUnavailable
func storeErr(l *zap.Logger, op string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	l.Error("store failed", zap.String("op", op), zap.Error(err))
	return domain.Unavailable(err)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if n := strings.Split(f.Tag.Get("json"), ",")[0]; n != "" && n != "-" {
			return n
		}
		return lowerFirst(f.Name)
	})
	return v
}

// validate 把第一条校验失败转成可读信息
func validate(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return domain.Validation(err.Error())
	}
	fe := ves[0]
	switch fe.Tag() {
	case "required":
		return domain.Validation(fe.Field() + " is required")
	case "email":
		return domain.Validation(fe.Field() + " must be a valid email")
	case "min":
		return domain.Validation(fe.Field() + " must be at least " + fe.Param() + " characters")
	case "max":
		return domain.Validation(fe.Field() + " must be at most " + fe.Param() + " characters")
	default:
		return domain.Validation(fe.Field() + " is invalid")
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
