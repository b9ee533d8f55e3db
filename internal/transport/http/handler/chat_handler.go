package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"papervault/internal/service"
	"papervault/internal/transport/http/ez"
	mdw "papervault/internal/transport/http/middleware"
)

type ChatHandler struct {
	svc   *service.ChatService
	rps   rate.Limit
	burst int
	log   *zap.Logger
}

func NewChatHandler(svc *service.ChatService, rps float64, burst int, l *zap.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, rps: rate.Limit(rps), burst: burst, log: l}
}

func (h *ChatHandler) Priority() int { return 90 }

func (h *ChatHandler) MountAPI(api *gin.RouterGroup) {
	e := ez.New(api.Group("/chat", mdw.RateLimitPerIP(h.rps, h.burst)), h.log)
	ez.RegisterAction(e, ez.Action[service.ChatRequest, *service.ChatReply]{
		Method: http.MethodPost, Path: "", Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.ChatRequest) (*service.ChatReply, error) {
			return h.svc.Ask(c.Request.Context(), *in)
		},
	})
}
