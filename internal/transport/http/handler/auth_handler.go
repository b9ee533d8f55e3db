package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"papervault/internal/domain"
	"papervault/internal/service"
	"papervault/internal/transport/http/ez"
	mdw "papervault/internal/transport/http/middleware"
)

type AuthHandler struct {
	svc   *service.AuthService
	guard gin.HandlerFunc
	log   *zap.Logger
}

func NewAuthHandler(svc *service.AuthService, guard gin.HandlerFunc, l *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, guard: guard, log: l}
}

func (h *AuthHandler) Priority() int { return 10 }

type loginIn struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

type passwordIn struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword"     binding:"required"`
}

func (h *AuthHandler) MountAPI(api *gin.RouterGroup) {
	pub := ez.New(api.Group("/auth"), h.log)
	priv := pub.Group("", h.guard)

	ez.RegisterAction(pub, ez.Action[service.RegisterInput, *service.AuthResult]{
		Method: http.MethodPost, Path: "/register", Binder: ez.BindJSON, Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *service.RegisterInput) (*service.AuthResult, error) {
			return h.svc.Register(c.Request.Context(), *in)
		},
	})
	ez.RegisterAction(pub, ez.Action[loginIn, *service.AuthResult]{
		Method: http.MethodPost, Path: "/login", Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (*service.AuthResult, error) {
			return h.svc.Login(c.Request.Context(), in.Email, in.Password)
		},
	})

	ez.RegisterAction(priv, ez.Action[struct{}, *domain.User]{
		Method: http.MethodGet, Path: "/me", Binder: ez.BindNone, Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			return h.svc.Me(c.Request.Context(), mdw.UserID(c))
		},
	})
	ez.RegisterAction(priv, ez.Action[service.ProfileInput, *domain.User]{
		Method: http.MethodPut, Path: "/profile", Binder: ez.BindJSON, Auth: true,
		Handler: func(c *gin.Context, in *service.ProfileInput) (*domain.User, error) {
			return h.svc.UpdateProfile(c.Request.Context(), mdw.UserID(c), *in)
		},
	})
	ez.RegisterAction(priv, ez.Action[passwordIn, gin.H]{
		Method: http.MethodPut, Path: "/password", Binder: ez.BindJSON, Auth: true,
		Handler: func(c *gin.Context, in *passwordIn) (gin.H, error) {
			if err := h.svc.UpdatePassword(c.Request.Context(), mdw.UserID(c), in.CurrentPassword, in.NewPassword); err != nil {
				return nil, err
			}
			return gin.H{"message": "password updated"}, nil
		},
	})
}
