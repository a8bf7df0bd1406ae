package linkcenter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound is returned when a verification token is unknown or has
// expired.
var ErrTokenNotFound = errors.New("link token not found or expired")

// TokenStore keeps time-boxed account-link verification tokens. Tokens are
// single-use: Consume deletes on success.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore builds a store with the configured token lifetime.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

func tokenKey(code string) string {
	return "link:token:" + code
}

// Put registers a token for a user id.
func (s *TokenStore) Put(ctx context.Context, code, userID string) error {
	if err := s.client.Set(ctx, tokenKey(code), userID, s.ttl).Err(); err != nil {
		return fmt.Errorf("store link token: %w", err)
	}
	return nil
}

// Consume resolves a token to its user id and invalidates it.
func (s *TokenStore) Consume(ctx context.Context, code string) (string, error) {
	userID, err := s.client.GetDel(ctx, tokenKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("consume link token: %w", err)
	}
	return userID, nil
}
