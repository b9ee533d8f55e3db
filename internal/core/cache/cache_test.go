package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type opts struct {
	Subjects []string `json:"subjects"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewWithClient(rdb, "pv:"), mr
}

func TestGetOrLoadJSON_CachesAndInvalidates(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	var calls int32
	load := func(context.Context) (*opts, error) {
		atomic.AddInt32(&calls, 1)
		return &opts{Subjects: []string{"CS"}}, nil
	}

	got, err := GetOrLoadJSON(c, ctx, "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, []string{"CS"}, got.Subjects)
	assert.True(t, mr.Exists("pv:k"))

	_, err = GetOrLoadJSON(c, ctx, "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	require.NoError(t, c.Invalidate(ctx, "k"))
	assert.False(t, mr.Exists("pv:k"))
	_, err = GetOrLoadJSON(c, ctx, "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetOrLoad_TTL(t *testing.T) {
	c, mr := newTestCache(t)
	_, err := c.GetOrLoad(context.Background(), "ttl", 30*time.Second, func(context.Context) ([]byte, error) {
		return []byte("x"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, mr.TTL("pv:ttl"))
}

func TestGetOrLoad_LoadError(t *testing.T) {
	c, mr := newTestCache(t)
	boom := errors.New("boom")
	_, err := c.GetOrLoad(context.Background(), "e", time.Minute, func(context.Context) ([]byte, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("pv:e"))
}

func TestGetOrLoad_RedisDownFallsBack(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()
	b, err := c.GetOrLoad(context.Background(), "k", time.Minute, func(context.Context) ([]byte, error) {
		return []byte("v"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "v", string(b))
}

func TestNilCache(t *testing.T) {
	ctx := context.Background()
	for _, c := range []*Cache{nil, NewWithClient(nil, "")} {
		assert.False(t, c.Enabled())
		assert.NoError(t, c.Ping(ctx))
		assert.NoError(t, c.Invalidate(ctx, "k"))
		got, err := GetOrLoadJSON(c, ctx, "k", time.Minute, func(context.Context) (*opts, error) {
			return &opts{Subjects: []string{"a"}}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, got.Subjects)
	}
}

func TestGetOrLoad_Singleflight(t *testing.T) {
	c := NewWithClient(nil, "")
	var calls int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.GetOrLoad(context.Background(), "same", time.Minute, func(context.Context) ([]byte, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return []byte("v"), nil
			})
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetOrLoad_InvalidateDuringLoadSkipsSet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	var calls int32
	load := func(context.Context) ([]byte, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			// 回源已读到旧数据时写入方提交并失效
			require.NoError(t, c.Invalidate(ctx, "k"))
			return []byte("stale"), nil
		}
		return []byte("fresh"), nil
	}

	b, err := c.GetOrLoad(ctx, "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, "stale", string(b))
	assert.False(t, mr.Exists("pv:k"))

	b, err = c.GetOrLoad(ctx, "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(b))
	got, err := mr.Get("pv:k")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
}

func TestGetOrLoad_CancelledWaiterDoesNotFailOthers(t *testing.T) {
	c := NewWithClient(nil, "")
	started := make(chan struct{})
	release := make(chan struct{})
	var loadErr atomic.Value
	var once sync.Once
	load := func(ctx context.Context) ([]byte, error) {
		once.Do(func() { close(started) })
		<-release
		loadErr.Store(fmt.Sprint(ctx.Err()))
		return []byte("v"), nil
	}

	ctx1, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := c.GetOrLoad(ctx1, "k", time.Minute, load)
		first <- err
	}()
	<-started

	second := make(chan []byte, 1)
	go func() {
		b, _ := c.GetOrLoad(context.Background(), "k", time.Minute, load)
		second <- b
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)
	close(release)
	assert.Equal(t, "v", string(<-second))
	assert.Equal(t, "<nil>", loadErr.Load())
}
