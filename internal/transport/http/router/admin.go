package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"papervault/internal/core/config"
	"papervault/internal/domain"
	"papervault/internal/service"
	"papervault/internal/transport/http/handler"
	mdw "papervault/internal/transport/http/middleware"
)

type AdminDeps struct {
	Log    *zap.Logger
	DB     *gorm.DB
	Limits config.Limits
	Auth   *service.AuthService
	Admin  *service.AdminService
}

func NewAdminEngine(d AdminDeps) *gin.Engine {
	r := gin.New()
	r.Use(baseMiddlewares(d.Log, d.Limits)...)

	// 健康检查
	r.GET("/health", health(d.DB, nil))
	r.GET("/metrics", mdw.MetricsHandler())

	// 管理端 v1（统一要求 admin 角色）
	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(d.Auth, domain.RoleAdmin))

	NewRegistry(handler.NewAdminHandler(d.Admin, d.Log)).MountAllAdmin(admin)
	return r
}
