package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

const keyPrefix = "aiteammate:"

// EmployeeKey 员工详情（含最近评价）
func EmployeeKey(id uint) string {
	return keyPrefix + "employee:detail:" + strconv.FormatUint(uint64(id), 10)
}

// 回源结果为空时不写缓存，避免把后来才创建的记录挡成 404
var errNoValue = errors.New("cache: no value")

// GetOrLoadJSON load 返回 (nil, nil) 表示记录不存在，原样透传
func GetOrLoadJSON[T any](
	c *Cache,
	ctx context.Context,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (*T, error),
) (*T, error) {
	if c == nil {
		return load(ctx)
	}
	b, err := c.GetOrLoad(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, e := load(ctx)
		if e != nil {
			return nil, e
		}
		if v == nil {
			return nil, errNoValue
		}
		return json.Marshal(v)
	})
	switch {
	case errors.Is(err, errNoValue):
		return nil, nil
	case err != nil:
		return nil, err
	}

	var out T
	if e := json.Unmarshal(b, &out); e != nil {
		// 结构变更后的旧缓存：删掉直接回源
		_ = c.Invalidate(ctx, key)
		return load(ctx)
	}
	return &out, nil
}
