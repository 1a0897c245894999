package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrTokenNotFound    = errors.New("token not found")
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const (
	UserTokenPrefix = "login:user:token"
	UserTokenExpire = 30 * time.Minute
)

// TokenStore 每个用户只保留最近一次登录的 access token
type TokenStore struct {
	RDB *redis.Client
	TTL time.Duration
}

func NewTokenStore(rdb *redis.Client) *TokenStore {
	return &TokenStore{RDB: rdb, TTL: UserTokenExpire}
}

func tokenKey(userID string) string {
	return fmt.Sprintf("%s:%s", UserTokenPrefix, userID)
}

func (s *TokenStore) Set(ctx context.Context, userID, token string) error {
	if err := s.RDB.Set(ctx, tokenKey(userID), token, s.TTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *TokenStore) Get(ctx context.Context, userID string) (string, error) {
	token, err := s.RDB.Get(ctx, tokenKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return token, nil
}

// Extend 校验通过后续期
func (s *TokenStore) Extend(ctx context.Context, userID string) error {
	if err := s.RDB.Expire(ctx, tokenKey(userID), s.TTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *TokenStore) Delete(ctx context.Context, userID string) error {
	if err := s.RDB.Del(ctx, tokenKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
