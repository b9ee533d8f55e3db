package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"papervault/internal/core/auth"
	"papervault/internal/domain"
	"papervault/pkg/utils"
)

type RegisterInput struct {
	Name     string `json:"name"     validate:"required,max=64"`
	Email    string `json:"email"    validate:"required,email,max=191"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type ProfileInput struct {
	Name   *string `json:"name"   validate:"omitnil,min=1,max=64"`
	Email  *string `json:"email"  validate:"omitnil,email,max=191"`
	Bio    *string `json:"bio"    validate:"omitempty,max=2000"`
	Avatar *string `json:"avatar" validate:"omitempty,max=512"`
}

type AuthResult struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// Identity 已校验会话的主体
type Identity struct {
	UserID string
	Role   string
}

type AuthService struct {
	users UserStore
	jwt   *auth.JWTer
	log   *zap.Logger
	v     *validator.Validate
	now   func() time.Time
}

func NewAuthService(users UserStore, jwt *auth.JWTer, l *zap.Logger) *AuthService {
	return &AuthService{users: users, jwt: jwt, log: l, v: newValidator(), now: utcNow}
}

var errBadLogin = domain.E(domain.ErrInvalidCredentials, "invalid email or password")

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normEmail(in.Email)
	if err := validate(s.v, in); err != nil {
		return nil, err
	}
	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, storeErr(s.log, "user.find_by_email", err)
	}
	if existing != nil {
		return nil, domain.E(domain.ErrDuplicateEmail, "email already registered")
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, domain.Validation("password must be at most 72 bytes")
		}
		return nil, err
	}
	now := s.now()
	u := &domain.User{
		ID:           utils.NewID(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// 并发注册同一邮箱：唯一约束兜底
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.E(domain.ErrDuplicateEmail, "email already registered")
		}
		return nil, storeErr(s.log, "user.create", err)
	}
	tok, err := s.jwt.Issue(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("uid", u.ID))
	return &AuthResult{User: u, Token: tok}, nil
}

// Login 邮箱不存在与密码错误返回同一错误
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.users.FindByEmail(ctx, normEmail(email))
	if err != nil {
		return nil, storeErr(s.log, "user.find_by_email", err)
	}
	if u == nil || !utils.CheckPassword(password, u.PasswordHash) {
		return nil, errBadLogin
	}
	tok, err := s.jwt.Issue(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u, Token: tok}, nil
}

func (s *AuthService) VerifySession(token string) (Identity, error) {
	c, err := s.jwt.Parse(token)
	if err != nil {
		return Identity{}, domain.E(domain.ErrInvalidToken, "invalid or expired token")
	}
	return Identity{UserID: c.UID, Role: c.Role}, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(s.log, "user.find_by_id", err)
	}
	if u == nil {
		return nil, domain.NotFound("user not found")
	}
	return u, nil
}

// UpdateProfile 只覆盖传入的字段
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*domain.User, error) {
	if in.Name != nil {
		n := strings.TrimSpace(*in.Name)
		in.Name = &n
	}
	if in.Email != nil {
		e := normEmail(*in.Email)
		in.Email = &e
	}
	if err := validate(s.v, in); err != nil {
		return nil, err
	}
	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	upd := domain.ProfileUpdate{Name: in.Name, Bio: in.Bio}
	if in.Email != nil && *in.Email != u.Email {
		other, err := s.users.FindByEmail(ctx, *in.Email)
		if err != nil {
			return nil, storeErr(s.log, "user.find_by_email", err)
		}
		if other != nil && other.ID != u.ID {
			return nil, domain.E(domain.ErrDuplicateEmail, "email already in use")
		}
		upd.Email = in.Email
	}
	if in.Avatar != nil {
		a := strings.TrimSpace(*in.Avatar)
		upd.Avatar = &a
	}
	if err := s.users.UpdateProfile(ctx, u.ID, upd, s.now()); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.E(domain.ErrDuplicateEmail, "email already in use")
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("user not found")
		}
		return nil, storeErr(s.log, "user.update_profile", err)
	}
	// 重新读取，返回库里的最新状态
	return s.Me(ctx, u.ID)
}

func (s *AuthService) UpdatePassword(ctx context.Context, userID, current, next string) error {
	if l := len(next); l < 6 || l > 72 {
		return domain.Validation("new password must be 6 to 72 characters")
	}
	u, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(current, u.PasswordHash) {
		return domain.E(domain.ErrInvalidCredentials, "current password is incorrect")
	}
	hash, err := utils.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash, s.now()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFound("user not found")
		}
		return storeErr(s.log, "user.update_password", err)
	}
	return nil
}
