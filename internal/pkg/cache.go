package pkg

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheItem struct {
	data      []byte
	expiresAt time.Time
}

// LocalCache 进程内 LRU 缓存，未配置 redis 时使用
type LocalCache struct {
	lruCache *lru.Cache[string, cacheItem]
	now      func() time.Time

	mu       sync.Mutex
	versions map[string]int64
}

func NewLocalCache(size int) (*LocalCache, error) {
	if size <= 0 {
		size = 128
	}
	l, err := lru.New[string, cacheItem](size)
	if err != nil {
		return nil, err
	}
	return &LocalCache{lruCache: l, now: time.Now, versions: map[string]int64{}}, nil
}

// Get 不存在或已过期返回 false
func (c *LocalCache) Get(_ context.Context, key string) ([]byte, bool) {
	item, ok := c.lruCache.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().After(item.expiresAt) {
		c.lruCache.Remove(key)
		return nil, false
	}
	return item.data, true
}

func (c *LocalCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) {
	c.lruCache.Add(key, cacheItem{data: val, expiresAt: c.now().Add(ttl)})
}

func (c *LocalCache) Delete(_ context.Context, key string) {
	c.lruCache.Remove(key)
}

// Version 当前失效版本号，从未失效过为 0
func (c *LocalCache) Version(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[key], nil
}

// SetIfVersion 版本号未变才写入；回源期间发生过失效则丢弃结果
func (c *LocalCache) SetIfVersion(_ context.Context, key string, val []byte, ttl time.Duration, version int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[key] != version {
		return false
	}
	c.lruCache.Add(key, cacheItem{data: val, expiresAt: c.now().Add(ttl)})
	return true
}

// Invalidate 版本号 +1 并删除缓存值
func (c *LocalCache) Invalidate(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[key]++
	c.lruCache.Remove(key)
}
