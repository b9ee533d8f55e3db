package ez

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"papervault/internal/domain"
	mdw "papervault/internal/transport/http/middleware"
	resp "papervault/internal/transport/http/response"
)

// 统一错误对象（传输层自身的错误，如缺参数）
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error { return &AErr{Code: http.StatusBadRequest, Msg: msg} }
func NotFound(msg string) error   { return &AErr{Code: http.StatusNotFound, Msg: msg} }

// 领域错误种类 → HTTP 状态
var kindStatus = []struct {
	kind   error
	status int
}{
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrUnauthenticated, http.StatusUnauthorized},
	{domain.ErrInvalidToken, http.StatusUnauthorized},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized},
	{domain.ErrDuplicateEmail, http.StatusBadRequest},
	{domain.ErrMissingFile, http.StatusBadRequest},
	{domain.ErrUnsupportedFileType, http.StatusBadRequest},
	{domain.ErrFileTooLarge, http.StatusBadRequest},
	{domain.ErrValidation, http.StatusBadRequest},
	{domain.ErrUpstream, http.StatusBadGateway},
}

// StatusOf 错误 → (状态码, 对外信息)；未知错误只给通用信息
func StatusOf(err error) (int, string) {
	var ae *AErr
	if errors.As(err, &ae) {
		return ae.Code, ae.Error()
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge, "request body too large"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "timeout"
	}
	for _, ks := range kindStatus {
		if errors.Is(err, ks.kind) {
			return ks.status, domain.Message(err)
		}
	}
	return http.StatusInternalServerError, "internal error"
}

// Fail 5xx 记录原始错误后写出信封
func Fail(c *gin.Context, l *zap.Logger, err error) {
	status, msg := StatusOf(err)
	if status >= http.StatusInternalServerError && l != nil {
		fields := []zap.Field{
			zap.String("rid", c.GetString(mdw.KeyRequestID)),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		}
		// domain.Error 的 Error() 只有对外信息，根因单独记
		var de *domain.Error
		if errors.As(err, &de) && de.Cause != nil {
			fields = append(fields, zap.NamedError("cause", de.Cause))
		}
		l.Error("request failed", fields...)
	}
	resp.Abort(c, status, msg)
}

// bindError 把绑定/校验错误转成 400 的可读信息
func bindError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return err
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe := ves[0]
		var msg string
		switch fe.Tag() {
		case "required":
			msg = fe.Field() + " is required"
		case "email":
			msg = fe.Field() + " must be a valid email"
		case "min", "max", "oneof":
			msg = fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
		default:
			msg = fe.Field() + " is invalid"
		}
		return BadRequest(msg)
	}
	if errors.Is(err, io.EOF) {
		return BadRequest("request body is empty")
	}
	return &AErr{Code: http.StatusBadRequest, Msg: "malformed request", Err: err}
}
