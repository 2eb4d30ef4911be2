package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fikriandhika/go-storefront/internal/redisx"
)

// RedisSessions stores session tokens in Redis with a TTL, so sign-ins
// expire on their own and sign-out is a single DEL.
type RedisSessions struct{ RDB *redis.Client }

func (s *RedisSessions) Create(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	key := fmt.Sprintf(redisx.KeySession, token)
	if err := s.RDB.Set(ctx, key, userID, redisx.TTLSession).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (s *RedisSessions) Lookup(ctx context.Context, token string) (string, error) {
	key := fmt.Sprintf(redisx.KeySession, token)
	userID, err := s.RDB.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	return userID, err
}

func (s *RedisSessions) Destroy(ctx context.Context, token string) error {
	return s.RDB.Del(ctx, fmt.Sprintf(redisx.KeySession, token)).Err()
}
