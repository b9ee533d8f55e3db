package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"papervault/internal/domain"
	"papervault/internal/service"
	"papervault/internal/transport/http/ez"
)

type AdminHandler struct {
	svc *service.AdminService
	log *zap.Logger
}

func NewAdminHandler(svc *service.AdminService, l *zap.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, log: l}
}

type listQ struct {
	Offset int    `form:"offset,default=0"`
	Limit  int    `form:"limit,default=20"`
	Q      string `form:"q"` // 按 email/name 模糊搜
}

// MountAdmin 分组已走 AuthJWT(admin)，这里再按角色校验一次
func (h *AdminHandler) MountAdmin(admin *gin.RouterGroup) {
	e := ez.New(admin, h.log)
	roles := []string{domain.RoleAdmin}

	ez.RegisterAction(e, ez.Action[listQ, *service.UserPage]{
		Method: http.MethodGet, Path: "/users", Binder: ez.BindQuery, Auth: true, Roles: roles,
		Handler: func(c *gin.Context, in *listQ) (*service.UserPage, error) {
			return h.svc.ListUsers(c.Request.Context(), in.Q, in.Offset, in.Limit)
		},
	})
	ez.RegisterAction(e, ez.Action[struct{}, *service.Stats]{
		Method: http.MethodGet, Path: "/stats", Binder: ez.BindNone, Auth: true, Roles: roles,
		Handler: func(c *gin.Context, _ *struct{}) (*service.Stats, error) {
			return h.svc.Stats(c.Request.Context())
		},
	})
}
