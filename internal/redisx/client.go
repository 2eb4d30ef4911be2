package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	TTLSession    = 24 * time.Hour
	TTLOrderCache = 5 * time.Minute
	TTLDedup      = 48 * time.Hour
)

func New(addr string) *redis.Client {
	r := redis.NewClient(&redis.Options{Addr: addr})
	_ = r.WithTimeout(2 * time.Second)
	return r
}

func Exists(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}
