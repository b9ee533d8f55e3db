package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAddr(t *testing.T) {
	assert.Equal(t, "0.0.0.0:8080", Addr("0.0.0.0", 8080))
	assert.Equal(t, "[::1]:80", Addr("::1", 80))
	assert.Equal(t, "http://127.0.0.1:8080", HumanURL("0.0.0.0", 8080))
	assert.Equal(t, "http://example.com:9", HumanURL("example.com", 9))
}

func TestRun_GracefulShutdown(t *testing.T) {
	o := Options{Name: "test", Addr: "127.0.0.1:0", ShutdownTimeout: time.Second}
	srv := BuildServer(o, http.NotFoundHandler(), zap.NewNop())
	require.NotNil(t, srv.ErrorLog)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, srv, o, zap.NewNop()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRun_ListenError(t *testing.T) {
	o := Options{Name: "bad", Addr: "256.0.0.1:1"}
	err := Run(context.Background(), BuildServer(o, http.NotFoundHandler(), zap.NewNop()), o, zap.NewNop())
	assert.Error(t, err)
}
