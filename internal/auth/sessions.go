package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "code-to-content/internal/errors"
)

// Sessions stores session tokens in Redis with a TTL. A session maps a random
// token to the user's external id.
type Sessions struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSessions connects to Redis and verifies the connection.
func NewSessions(redisURL string, ttl time.Duration) (*Sessions, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewSessionsWithClient(client, ttl), nil
}

// NewSessionsWithClient wraps an existing Redis client.
func NewSessionsWithClient(client *redis.Client, ttl time.Duration) *Sessions {
	return &Sessions{
		client: client,
		prefix: "session:",
		ttl:    ttl,
	}
}

func (s *Sessions) key(token string) string {
	return s.prefix + token
}

// Create issues a new session token for the given external user id.
func (s *Sessions) Create(ctx context.Context, externalID string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := s.client.Set(ctx, s.key(token), externalID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return token, nil
}

// Lookup resolves a session token to the external user id.
func (s *Sessions) Lookup(ctx context.Context, token string) (string, error) {
	externalID, err := s.client.Get(ctx, s.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", apperrors.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup session: %w", err)
	}
	return externalID, nil
}

// Revoke deletes a session token.
func (s *Sessions) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *Sessions) Close() error {
	return s.client.Close()
}
