package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"papervault/internal/domain"
	"papervault/pkg/utils"
)

type SeedUser struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// DefaultSeedUsers 本地开发用的两个账号
var DefaultSeedUsers = []SeedUser{
	{Name: "Admin", Email: "admin@example.com", Password: "admin123", Role: domain.RoleAdmin},
	{Name: "User", Email: "user@example.com", Password: "user123", Role: domain.RoleUser},
}

// Seed 已存在的邮箱跳过（角色不一致时改回）；返回新建数量
func (a *App) Seed(ctx context.Context, users []SeedUser) (int, error) {
	created := 0
	for _, su := range users {
		existing, err := a.UserRepo.FindByEmail(ctx, su.Email)
		if err != nil {
			return created, fmt.Errorf("find %s: %w", su.Email, err)
		}
		if existing != nil {
			if existing.Role != su.Role {
				if err := a.UserRepo.SetRole(ctx, existing.ID, su.Role, time.Now().UTC()); err != nil {
					return created, fmt.Errorf("set role %s: %w", su.Email, err)
				}
				a.Log.Info("seed user role reset", zap.String("email", su.Email), zap.String("role", su.Role))
				continue
			}
			a.Log.Info("seed user exists", zap.String("email", su.Email))
			continue
		}
		hash, err := utils.HashPassword(su.Password)
		if err != nil {
			return created, err
		}
		now := time.Now().UTC()
		u := &domain.User{
			ID: utils.NewID(), Email: su.Email, Name: su.Name,
			PasswordHash: hash, Role: su.Role, CreatedAt: now, UpdatedAt: now,
		}
		if err := a.UserRepo.Create(ctx, u); err != nil {
			if errors.Is(err, domain.ErrDuplicateEmail) {
				continue
			}
			return created, fmt.Errorf("create %s: %w", su.Email, err)
		}
		created++
		a.Log.Info("seed user created", zap.String("email", su.Email), zap.String("role", su.Role))
	}
	return created, nil
}
