package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps refresh tokens in Redis. Each token maps to its user
// with a TTL equal to the refresh window; a per-user index set supports
// revoking every session at once when the account is deleted.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a SessionStore with the given refresh-token TTL.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// NewRedis opens a Redis client for the given URL and verifies connectivity.
func NewRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	opt.DialTimeout = 5 * time.Second
	opt.MinIdleConns = 2
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return client, nil
}

func sessionKey(token string) string { return "refresh:" + token }
func userIndexKey(userID string) string { return "user_sessions:" + userID }

// Create mints a new refresh token for the user and stores it with the
// configured TTL.
func (s *SessionStore) Create(ctx context.Context, userID string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := s.client.Set(ctx, sessionKey(token), userID, s.ttl).Err(); err != nil {
		return "", err
	}
	if err := s.client.SAdd(ctx, userIndexKey(userID), token).Err(); err != nil {
		return "", err
	}
	// The index must not outlive the youngest token in it; refresh its
	// expiry alongside every insert so stale members age out with it.
	if err := s.client.Expire(ctx, userIndexKey(userID), s.ttl).Err(); err != nil {
		return "", err
	}

	return token, nil
}

// Resolve returns the user ID a refresh token belongs to. Expired tokens
// age out of Redis and resolve as not found.
func (s *SessionStore) Resolve(ctx context.Context, token string) (string, error) {
	userID, err := s.client.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrSessionNotFound
		}
		return "", err
	}
	return userID, nil
}

// Revoke deletes a single refresh token and its index entry.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	userID, err := s.client.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		return err
	}

	if err := s.client.SRem(ctx, userIndexKey(userID), token).Err(); err != nil {
		return err
	}
	return s.client.Del(ctx, sessionKey(token)).Err()
}

// RevokeAll deletes every refresh token held by the user.
func (s *SessionStore) RevokeAll(ctx context.Context, userID string) error {
	tokens, err := s.client.SMembers(ctx, userIndexKey(userID)).Result()
	if err != nil {
		return err
	}

	if len(tokens) > 0 {
		keys := make([]string, len(tokens))
		for i, t := range tokens {
			keys[i] = sessionKey(t)
		}
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return err
		}
	}

	return s.client.Del(ctx, userIndexKey(userID)).Err()
}
