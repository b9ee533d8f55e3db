package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"papervault/internal/service"
	resp "papervault/internal/transport/http/response"
)

const (
	KeyUserID = "userId"
	KeyRole   = "role"
)

// SessionVerifier 由 AuthService 实现
type SessionVerifier interface {
	VerifySession(token string) (service.Identity, error)
}

// AuthJWT 校验 Bearer token；requireRole 非空时还校验角色
func AuthJWT(v SessionVerifier, requireRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		tok, ok := strings.CutPrefix(ah, "Bearer ")
		if !ok || strings.TrimSpace(tok) == "" {
			resp.Abort(c, http.StatusUnauthorized, "missing token")
			return
		}
		id, err := v.VerifySession(strings.TrimSpace(tok))
		if err != nil {
			resp.Abort(c, http.StatusUnauthorized, "invalid token")
			return
		}
		if requireRole != "" && id.Role != requireRole {
			resp.Abort(c, http.StatusForbidden, "forbidden")
			return
		}
		c.Set(KeyUserID, id.UserID)
		c.Set(KeyRole, id.Role)
		c.Next()
	}
}

// UserID 取当前登录用户；未经过 AuthJWT 时为空
func UserID(c *gin.Context) string { return c.GetString(KeyUserID) }
