package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"papervault/internal/core/cache"
	"papervault/internal/core/config"
	"papervault/internal/service"
	"papervault/internal/transport/http/handler"
	mdw "papervault/internal/transport/http/middleware"
)

type APIDeps struct {
	Log   *zap.Logger
	DB    *gorm.DB
	Cache *cache.Cache // 可为 nil
	Cfg   *config.Config

	Auth      *service.AuthService
	Papers    *service.PaperService
	Solutions *service.SolutionService
	Chat      *service.ChatService
}

func NewAPIEngine(d APIDeps) *gin.Engine {
	r := gin.New()
	r.Use(baseMiddlewares(d.Log, d.Cfg.Limits)...)
	r.Use(corsMiddleware(d.Cfg.CORS))

	// 健康检查 / 指标
	r.GET("/health", health(d.DB, d.Cache))
	r.GET("/metrics", mdw.MetricsHandler())

	guard := mdw.AuthJWT(d.Auth, "")
	reg := NewRegistry(
		handler.NewAuthHandler(d.Auth, guard, d.Log),
		handler.NewPaperHandler(d.Papers, guard, d.Log),
		handler.NewSolutionHandler(d.Solutions, guard, d.Log),
		handler.NewChatHandler(d.Chat, d.Cfg.Chat.RPS, d.Cfg.Chat.Burst, d.Log),
		handler.NewUploadHandler(d.Papers, d.Cfg.Upload.URLPrefix, d.Log),
	)

	reg.MountAllRoot(&r.RouterGroup)
	reg.MountAllAPI(r.Group("/api/v1"))
	return r
}
