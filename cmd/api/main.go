package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"papervault/internal/app"
	"papervault/internal/core/config"
	"papervault/internal/core/logger"
	"papervault/internal/core/server"
	"papervault/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := app.NewLogger(cfg)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	if cfg.App.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	// gin 自身的调试/错误输出也走 zap
	gin.DefaultWriter = logger.ToWriter(log, zapcore.DebugLevel)
	gin.DefaultErrorWriter = logger.ToWriter(log, zapcore.ErrorLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer a.Close()

	// 路由（用户端）
	r := router.NewAPIEngine(router.APIDeps{
		Log: log, DB: a.DB, Cache: a.Cache, Cfg: cfg,
		Auth: a.Auth, Papers: a.Papers, Solutions: a.Solutions, Chat: a.Chat,
	})

	h := cfg.App.HTTP
	opts := server.Options{
		Name:         "user api",
		Addr:         server.Addr(h.Host, h.Port),
		ReadTimeout:  time.Duration(h.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(h.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(h.IdleTimeoutSec) * time.Second,
	}
	baseURL := server.HumanURL(h.Host, h.Port)
	log.Info("user api starting",
		zap.String("addr", opts.Addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("api_v1", baseURL+"/api/v1"),
	)

	if err := server.Run(ctx, server.BuildServer(opts, r, log), opts, log); err != nil {
		log.Error("user api FAILED", zap.Error(err))
	}
}
