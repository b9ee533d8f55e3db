package domain

import "errors"

// 错误种类；用 errors.Is 判断
var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidToken        = errors.New("invalid token")
	ErrMissingFile         = errors.New("missing file")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
	ErrValidation          = errors.New("validation failed")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrUpstream            = errors.New("upstream unavailable")
)

// Error 带可读信息的业务错误，Unwrap 到种类
type Error struct {
	Kind  error
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func E(kind error, msg string) error { return &Error{Kind: kind, Msg: msg} }

func NotFound(msg string) error   { return E(ErrNotFound, msg) }
func Forbidden(msg string) error  { return E(ErrForbidden, msg) }
func Validation(msg string) error { return E(ErrValidation, msg) }

// Unavailable 包装存储层故障；对外只暴露通用信息
func Unavailable(cause error) error {
	return &Error{Kind: ErrStoreUnavailable, Msg: "storage unavailable", Cause: cause}
}

// Message 取面向用户的短信息
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}
