package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"papervault/internal/core/auth"
	"papervault/internal/core/cache"
	"papervault/internal/core/config"
	"papervault/internal/core/database"
	"papervault/internal/core/logger"
	"papervault/internal/core/storage"
	"papervault/internal/repo"
	"papervault/internal/service"
)

// App 进程内共享的依赖；api/admin/seed 三个入口共用
type App struct {
	Cfg   *config.Config
	Log   *zap.Logger
	DB    *gorm.DB
	Cache *cache.Cache
	Store storage.Store

	UserRepo     *repo.UserRepo
	PaperRepo    *repo.PaperRepo
	SolutionRepo *repo.SolutionRepo

	Auth      *service.AuthService
	Papers    *service.PaperService
	Solutions *service.SolutionService
	Chat      *service.ChatService
	Admin     *service.AdminService
}

// NewLogger 按配置决定是否写文件并切割
func NewLogger(cfg *config.Config) (*zap.Logger, func()) {
	f := cfg.Log.File
	return logger.Build(logger.Options{
		Level:       cfg.Log.Level,
		JSON:        cfg.Log.JSON,
		AddCaller:   true,
		Development: !cfg.Log.JSON,
		Rotate: logger.FileRotate{
			Enable:     f.Enable,
			Filename:   f.Filename,
			MaxSizeMB:  f.MaxSizeMB,
			MaxBackups: f.MaxBackups,
			MaxAgeDays: f.MaxAgeDays,
			Compress:   f.Compress,
		},
	})
}

func New(ctx context.Context, cfg *config.Config, l *zap.Logger) (*App, error) {
	a := &App{Cfg: cfg, Log: l}

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Logger:             l,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a.DB = db
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := repo.Migrate(db); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		l.Info("automigrate done")
	}

	// Redis 可选；连不上时降级为直连 DB
	if cfg.Redis.Enable {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := c.Ping(pctx)
		cancel()
		if err != nil {
			l.Warn("redis unavailable, cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = c.Close()
		} else {
			a.Cache = c
			l.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
		}
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store
	l.Info("blob store ready", zap.String("driver", cfg.Storage.Driver))

	a.UserRepo = repo.NewUserRepo(db)
	a.PaperRepo = repo.NewPaperRepo(db)
	a.SolutionRepo = repo.NewSolutionRepo(db)

	jwter := auth.NewJWTer(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.AccessTokenTTLMin)*time.Minute)
	a.Auth = service.NewAuthService(a.UserRepo, jwter, l)
	a.Papers = service.NewPaperService(service.PaperDeps{
		Papers:    a.PaperRepo,
		Solutions: a.SolutionRepo,
		Users:     a.UserRepo,
		Gate:      service.NewUploadGate(store, cfg.MaxUploadBytes(), cfg.Upload.URLPrefix, l),
		Store:     store,
		Cache:     a.Cache,
		CacheTTL:  time.Duration(cfg.Cache.FilterOptionsTTLSec) * time.Second,
		Log:       l,
	})
	a.Solutions = service.NewSolutionService(a.SolutionRepo, a.PaperRepo, a.UserRepo, l)
	a.Chat = service.NewChatService(service.ChatOpts{
		Endpoint: cfg.Chat.Endpoint,
		Model:    cfg.Chat.Model,
		APIKey:   cfg.Chat.APIKey,
		Timeout:  time.Duration(cfg.Chat.TimeoutSec) * time.Second,
	}, l)
	a.Admin = service.NewAdminService(a.UserRepo, a.PaperRepo, a.SolutionRepo, a.SolutionRepo, l)
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "", "local":
		s, err := storage.NewLocal(cfg.Upload.Dir)
		if err != nil {
			return nil, fmt.Errorf("local store: %w", err)
		}
		return s, nil
	case "minio":
		m := cfg.Storage.Minio
		s, err := storage.NewMinio(ctx, storage.MinioOpts{
			Endpoint: m.Endpoint, AccessKey: m.AccessKey, SecretKey: m.SecretKey,
			Bucket: m.Bucket, UseSSL: m.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("minio store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

// Close 释放 DB 与 Redis 连接
func (a *App) Close() {
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
