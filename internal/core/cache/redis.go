package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache RDB 为 nil 时降级为直连回源（仍合并并发回源）
type Cache struct {
	RDB         *redis.Client
	Prefix      string
	LoadTimeout time.Duration // 0 取 DefaultLoadTimeout
	sf          singleflight.Group
}

func New(addr, pass string, db int) *Cache {
	return &Cache{
		RDB: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
	}
}

// NewWithClient 测试里注入 miniredis 客户端；client 可为 nil
func NewWithClient(client *redis.Client, prefix string) *Cache {
	return &Cache{RDB: client, Prefix: prefix}
}

func (c *Cache) key(k string) string { return c.Prefix + k }

func (c *Cache) Enabled() bool { return c != nil && c.RDB != nil }

func (c *Cache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.RDB.Ping(ctx).Err()
}

// DefaultLoadTimeout 合并回源的上限；回源不跟随单个调用方取消
const DefaultLoadTimeout = 10 * time.Second

// 失效计数器的 key 后缀
const genSuffix = ":gen"

func (c *Cache) loadTimeout() time.Duration {
	if c.LoadTimeout > 0 {
		return c.LoadTimeout
	}
	return DefaultLoadTimeout
}

func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	if c == nil {
		return load(ctx)
	}
	k := c.key(key)
	// 先读缓存；redis 故障按未命中处理
	if c.Enabled() {
		if b, err := c.RDB.Get(ctx, k).Bytes(); err == nil {
			return b, nil
		}
	}
	// single flight 合并回源；调用方取消只影响自己
	ch := c.sf.DoChan(k, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout())
		defer cancel()
		gen, genOK := c.generation(lctx, k)
		b, e := load(lctx)
		if e != nil {
			return nil, e
		}
		if genOK {
			c.setIfCurrent(lctx, k, gen, b, ttl)
		}
		return b, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]byte), nil
	}
}

// generation 读取 key 的失效计数；未启用或读失败时 ok=false
func (c *Cache) generation(ctx context.Context, k string) (string, bool) {
	if !c.Enabled() {
		return "", false
	}
	g, err := c.RDB.Get(ctx, k+genSuffix).Result()
	if errors.Is(err, redis.Nil) {
		return "", true
	}
	return g, err == nil
}

// setIfCurrent 回源期间发生过 Invalidate 则不写入
func (c *Cache) setIfCurrent(ctx context.Context, k, gen string, b []byte, ttl time.Duration) {
	gk := k + genSuffix
	_ = c.RDB.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, k, b, ttl)
			return nil
		})
		return err
	}, gk)
}

// Invalidate 删除若干 key 并推进其失效计数；未启用时为空操作
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}
	_, err := c.RDB.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			p.Incr(ctx, c.key(k)+genSuffix)
			p.Del(ctx, c.key(k))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.RDB.Close()
}
