package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"papervault/internal/core/cache"
	"papervault/internal/core/config"
	"papervault/internal/core/database"
	mdw "papervault/internal/transport/http/middleware"
	resp "papervault/internal/transport/http/response"
)

// baseMiddlewares 两个 engine 共用的中间件栈
func baseMiddlewares(l *zap.Logger, lim config.Limits) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		mdw.RequestID(),
		mdw.Metrics(),
		mdw.AccessLog(l),
		mdw.Recovery(l),
		mdw.RateLimit(rate.Limit(lim.RPS), lim.Burst),
		mdw.ConcurrencyLimit(lim.MaxConcurrent),
		mdw.MaxBodyBytes(lim.MaxBodyMB << 20),
		mdw.Timeout(time.Duration(lim.RequestTimeout) * time.Second),
	}
}

func corsMiddleware(c config.CORS) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", mdw.KeyRequestID},
		ExposeHeaders:    []string{"Content-Disposition", mdw.KeyRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(c.AllowOrigins) == 0 {
		cc.AllowAllOrigins = true
		cc.AllowCredentials = false
	} else {
		cc.AllowOrigins = c.AllowOrigins
	}
	return cors.New(cc)
}

// health 数据库必须可用；缓存只报告状态
func health(db *gorm.DB, c *cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		pctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		if err := database.Ping(pctx, db); err != nil {
			resp.Abort(ctx, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		out := gin.H{"ok": 1}
		if c.Enabled() {
			out["cache"] = "up"
			if err := c.Ping(pctx); err != nil {
				out["cache"] = "down"
			}
		}
		ctx.JSON(http.StatusOK, resp.OK(out))
	}
}
