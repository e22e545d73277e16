// Package credstore persists the installation's identity credentials.
package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"account-service/app/domain"
)

const keyPrefix = "account-service:credentials:"

// RedisStore implements port.CredentialStore on a Redis string key.
type RedisStore struct {
	client *redis.Client
	key    string
	logger *slog.Logger
	now    func() time.Time
}

// NewRedisStoreWithURL creates a Redis credential store from a URL.
func NewRedisStoreWithURL(url, installationID string, logger *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return NewRedisStore(redis.NewClient(opts), installationID, logger), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, installationID string, logger *slog.Logger) *RedisStore {
	if installationID == "" {
		installationID = "default"
	}
	return &RedisStore{
		client: client,
		key:    keyPrefix + installationID,
		logger: logger.With("component", "credential_store", "backend", "redis"),
		now:    time.Now,
	}
}

// Save stores the record, expiring it together with the session when an expiry is known.
func (s *RedisStore) Save(ctx context.Context, record domain.CredentialRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	var ttl time.Duration
	if !record.ExpiresAt.IsZero() {
		ttl = record.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return s.Clear(ctx)
		}
	}

	if err := s.client.Set(ctx, s.key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	s.logger.Debug("credentials saved", "scope", record.Scope, "ttl", ttl)
	return nil
}

// Load returns the stored record, or false when nothing is stored.
func (s *RedisStore) Load(ctx context.Context) (domain.CredentialRecord, bool, error) {
	payload, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.CredentialRecord{}, false, nil
	}
	if err != nil {
		return domain.CredentialRecord{}, false, fmt.Errorf("failed to load credentials: %w", err)
	}

	var record domain.CredentialRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		s.logger.Warn("discarding unreadable credentials", "error", err)
		return domain.CredentialRecord{}, false, s.Clear(ctx)
	}
	return record, true, nil
}

// Clear removes the stored record.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// Ping checks if Redis is available.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
