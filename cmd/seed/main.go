package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"papervault/internal/app"
	"papervault/internal/core/config"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := app.NewLogger(cfg)
	defer cleanup()

	// 种子数据依赖表结构，强制迁移
	cfg.DB.AutoMigrate = true
	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer a.Close()

	n, err := a.Seed(context.Background(), app.DefaultSeedUsers)
	if err != nil {
		log.Error("seed failed", zap.Error(err))
		return
	}
	log.Info("seed done", zap.Int("created", n))
}
