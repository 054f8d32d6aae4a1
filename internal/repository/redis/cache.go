package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	CacheKeyPrefix   = "feed:cache:"
	VersionKeyPrefix = "feed:cachever:"
	LockKeyPrefix    = "feed:lock:"
	LockTTL          = 3 * time.Second
)

// Cache 基于 redis 的字节缓存，读失败一律按未命中处理
type Cache struct {
	RDB *redis.Client
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.RDB.Get(ctx, CacheKeyPrefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *Cache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	_ = c.RDB.Set(ctx, CacheKeyPrefix+key, val, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) {
	_ = c.RDB.Del(ctx, CacheKeyPrefix+key).Err()
}

// Version 读取失效版本号，key 不存在视为 0
func (c *Cache) Version(ctx context.Context, key string) (int64, error) {
	v, err := c.RDB.Get(ctx, VersionKeyPrefix+key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Join(ErrRedisUnavailable, err)
	}
	return v, nil
}

var setIfVersionScript = redis.NewScript(`
local v = redis.call("get", KEYS[2])
if not v then v = "0" end
if v ~= ARGV[2] then
  return 0
end
redis.call("set", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1`)

// SetIfVersion 用lua保证比较版本与写入是原子的
func (c *Cache) SetIfVersion(ctx context.Context, key string, val []byte, ttl time.Duration, version int64) bool {
	n, err := setIfVersionScript.Run(ctx, c.RDB,
		[]string{CacheKeyPrefix + key, VersionKeyPrefix + key},
		val, version, ttl.Milliseconds()).Int()
	return err == nil && n == 1
}

var invalidateScript = redis.NewScript(`
redis.call("incr", KEYS[2])
redis.call("del", KEYS[1])
return 1`)

// Invalidate 版本号 +1 并删除缓存值
func (c *Cache) Invalidate(ctx context.Context, key string) {
	_ = invalidateScript.Run(ctx, c.RDB, []string{CacheKeyPrefix + key, VersionKeyPrefix + key}).Err()
}

// DistLock 防止缓存失效瞬间多个实例同时回源
type DistLock struct {
	RDB *redis.Client
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// Acquire 请求加分布式锁
func (l *DistLock) Acquire(ctx context.Context, key, token string) (bool, error) {
	return l.RDB.SetNX(ctx, LockKeyPrefix+key, token, LockTTL).Result()
}

// Release 用lua保证只释放自己持有的锁
func (l *DistLock) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, l.RDB, []string{LockKeyPrefix + key}, token).Err()
}
