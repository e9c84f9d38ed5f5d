package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

func revokedKey(jti string) string {
	return fmt.Sprintf("session:revoked:%s", jti)
}

// RevokeToken puts a token id on the revocation list. The TTL should be
// the token's remaining validity; after that the list entry is useless
// anyway because the signature check rejects the token first.
func (r *RedisRepo) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	const op = "storage.redis.RevokeToken"

	if ttl <= 0 {
		return nil
	}

	err := r.client.Set(ctx, revokedKey(jti), "revoked", ttl).Err()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// IsRevoked checks the revocation list for a token id.
func (r *RedisRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	const op = "storage.redis.IsRevoked"

	n, err := r.client.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n > 0, nil
}

func (r *RedisRepo) Close() {
	r.client.Close()
}
