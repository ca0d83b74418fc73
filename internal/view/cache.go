package view

import (
	"context"
	"encoding/json"
	"time"

	"github.com/CarLeaseHub/CarLeaseHub/internal/common/logger"
	"github.com/CarLeaseHub/CarLeaseHub/internal/common/middleware"
	"github.com/CarLeaseHub/CarLeaseHub/internal/fleet"
	"github.com/redis/go-redis/v9"
)

const (
	availableCarsKey = "view:cars:idle"
	availableCarsTTL = 60 * time.Second
)

// CarCache 空闲车辆列表的 Redis 缓存。
// Redis 故障时经熔断器降级：缓存失效不影响读接口，直接回源数据库。
type CarCache struct {
	client  *redis.Client
	breaker *middleware.CircuitBreaker
	log     logger.Logger
}

func NewCarCache(client *redis.Client, log logger.Logger) *CarCache {
	if client == nil {
		return nil
	}
	return &CarCache{
		client:  client,
		breaker: middleware.NewCircuitBreaker("view-cache", 5, 30*time.Second),
		log:     log,
	}
}

// warnf 缓存只降级不报错，logger 缺省时静默。
func (c *CarCache) warnf(format string, args ...interface{}) {
	if c == nil || c.log == nil {
		return
	}
	c.log.Warnf(format, args...)
}

// GetAvailable 读取缓存的空闲车辆列表；未命中或 Redis 不可用返回 (nil, false)。
func (c *CarCache) GetAvailable(ctx context.Context) ([]fleet.Car, bool) {
	if c == nil {
		return nil, false
	}

	var raw string
	err := c.breaker.Call(ctx, func() error {
		var err error
		raw, err = c.client.Get(ctx, availableCarsKey).Result()
		if err == redis.Nil {
			raw = ""
			return nil
		}
		return err
	})
	if err != nil {
		if err != middleware.ErrCircuitOpen {
			c.warnf("car cache get failed: %v", err)
		}
		return nil, false
	}
	if raw == "" {
		return nil, false
	}

	var cars []fleet.Car
	if err := json.Unmarshal([]byte(raw), &cars); err != nil {
		c.warnf("car cache decode failed, dropping entry: %v", err)
		c.Invalidate(ctx)
		return nil, false
	}
	return cars, true
}

// SetAvailable 写入空闲车辆列表，带 TTL 兜底过期。
func (c *CarCache) SetAvailable(ctx context.Context, cars []fleet.Car) {
	if c == nil {
		return
	}

	raw, err := json.Marshal(cars)
	if err != nil {
		c.warnf("car cache encode failed: %v", err)
		return
	}

	err = c.breaker.Call(ctx, func() error {
		return c.client.Set(ctx, availableCarsKey, raw, availableCarsTTL).Err()
	})
	if err != nil && err != middleware.ErrCircuitOpen {
		c.warnf("car cache set failed: %v", err)
	}
}

// Invalidate 删除缓存条目；车辆集合或租约状态变化后调用。
func (c *CarCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}

	err := c.breaker.Call(ctx, func() error {
		return c.client.Del(ctx, availableCarsKey).Err()
	})
	if err != nil && err != middleware.ErrCircuitOpen {
		c.warnf("car cache invalidate failed: %v", err)
	}
}
