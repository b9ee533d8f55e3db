package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"papervault/internal/core/logger"
)

type Options struct {
	Name         string
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// 优雅关闭的最长等待
	ShutdownTimeout time.Duration
}

// BuildServer net/http 自身的错误日志也进 zap
func BuildServer(o Options, handler http.Handler, l *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:              o.Addr,
		Handler:           handler,
		ReadTimeout:       o.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      o.WriteTimeout,
		IdleTimeout:       o.IdleTimeout,
		MaxHeaderBytes:    1 << 20, // 1MB
	}
	if std, err := logger.ToStdLogger(l.With(zap.String("server", o.Name)), zapcore.WarnLevel); err == nil {
		srv.ErrorLog = std
	}
	return srv
}

// Run 监听直到 ctx 结束，然后优雅关闭
func Run(ctx context.Context, srv *http.Server, o Options, l *zap.Logger) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("%s listen %s: %w", o.Name, srv.Addr, err)
	}
	l.Info("http starting", zap.String("name", o.Name), zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := o.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("%s shutdown: %w", o.Name, err)
	}
	l.Info("http stopped gracefully", zap.String("name", o.Name))
	return nil
}

func Addr(host string, port int) string { return net.JoinHostPort(host, fmt.Sprint(port)) }

// HumanURL 启动日志里可点击的地址
func HumanURL(host string, port int) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + Addr(host, port)
}
