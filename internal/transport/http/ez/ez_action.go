package ez

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	mdw "papervault/internal/transport/http/middleware"
	resp "papervault/internal/transport/http/response"
)

func init() {
	// binding 报错里的字段名用 json/form tag
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				if n := strings.Split(f.Tag.Get(tag), ",")[0]; n != "" && n != "-" {
					return n
				}
			}
			return f.Name
		})
	}
}

type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ { return EZ{g: g, log: l} }

// Group 子分组，可附带中间件
func (e EZ) Group(path string, h ...gin.HandlerFunc) EZ {
	return EZ{g: e.g.Group(path, h...), log: e.log}
}

// Raw 注册自行写响应的 handler（文件流等）
func (e EZ) Raw(method, path string, h gin.HandlerFunc) {
	e.g.Handle(strings.ToUpper(method), path, h)
}

// Fail 写出错误响应
func (e EZ) Fail(c *gin.Context, err error) { Fail(c, e.log, err) }

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindForm  Binder = "form"  // multipart / urlencoded 表单
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string   // "GET" | "POST" | "PUT" | "DELETE"
	Path    string   // 例："/auth/login"、"/papers/:id"
	Binder  Binder   // 绑定方式
	Auth    bool     // 是否要求登录（检查 userId）
	Roles   []string // 限定角色（可选）
	Status  int      // 成功状态码，默认 200
	Handler func(c *gin.Context, in *I) (O, error)
}

// RegisterAction 在当前 EZ 下注册动作接口
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}
	h := func(c *gin.Context) {
		// 1) 鉴权/角色
		if a.Auth {
			if mdw.UserID(c) == "" {
				resp.Abort(c, http.StatusUnauthorized, "unauthorized")
				return
			}
			if len(a.Roles) > 0 && !hasRole(c.GetString(mdw.KeyRole), a.Roles) {
				resp.Abort(c, http.StatusForbidden, "forbidden")
				return
			}
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		case BindForm:
			bindErr = c.ShouldBindWith(&in, binding.FormMultipart)
		default: // BindNone: 不绑定
		}
		if bindErr != nil {
			e.Fail(c, bindError(bindErr))
			return
		}

		// 3) 执行 + 统一错误映射
		out, err := a.Handler(c, &in)
		if err != nil {
			e.Fail(c, err)
			return
		}
		c.JSON(status, resp.OK(out))
	}

	e.Raw(a.Method, a.Path, h)
}

func hasRole(role string, roles []string) bool {
	for _, r := range roles {
		if role == r {
			return true
		}
	}
	return false
}
