// Package session provides the redis-backed login session store.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is the lifetime of a plain login session.
	DefaultTTL = 24 * time.Hour
	// RememberTTL is used when the user checks "remember me".
	RememberTTL = 30 * 24 * time.Hour

	sessionPrefix = "session:"
	statePrefix   = "oauthstate:"
)

// Store maps opaque session tokens to user ids in redis. It also keeps the
// short-lived CSRF state for the Discord OAuth round trip, bound to the
// session that initiated it.
type Store struct {
	client *redis.Client
}

// NewStore connects to redis and verifies the connection.
func NewStore(redisURL string) (*Store, error) {
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

	return &Store{client: client}, nil
}

// NewStoreWithClient wraps an existing redis client (used in tests).
func NewStoreWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Create mints a fresh session token for the user.
func (s *Store) Create(ctx context.Context, userID int64, remember bool) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	ttl := DefaultTTL
	if remember {
		ttl = RememberTTL
	}

	if err := s.client.Set(ctx, sessionPrefix+token, userID, ttl).Err(); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return token, nil
}

// Lookup resolves a session token to the user id. Missing or expired
// sessions return (0, false, nil).
func (s *Store) Lookup(ctx context.Context, token string) (int64, bool, error) {
	val, err := s.client.Get(ctx, sessionPrefix+token).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup session: %w", err)
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt session value: %w", err)
	}
	return id, true, nil
}

// Destroy revokes a session token.
func (s *Store) Destroy(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionPrefix+token).Err()
}

// SetOAuthState binds an OAuth CSRF state value to a session for 10 minutes.
func (s *Store) SetOAuthState(ctx context.Context, sessionToken, state string) error {
	return s.client.Set(ctx, statePrefix+sessionToken, state, 10*time.Minute).Err()
}

// CheckOAuthState verifies the round-tripped state and consumes it.
func (s *Store) CheckOAuthState(ctx context.Context, sessionToken, state string) (bool, error) {
	val, err := s.client.Get(ctx, statePrefix+sessionToken).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup oauth state: %w", err)
	}
	_ = s.client.Del(ctx, statePrefix+sessionToken).Err()
	return val == state, nil
}

// Close closes the redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
