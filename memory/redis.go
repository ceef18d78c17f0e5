package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/convocore/convocore/core"
)

// RedisStore persists session-memory snapshots in Redis as JSON values,
// letting callers resume verified sessions across process restarts and
// across the voice/text adapters of separate instances.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// RedisStoreOptions configures a RedisStore.
type RedisStoreOptions struct {
	// KeyPrefix defaults to "convocore:memory:".
	KeyPrefix string
	// TTL bounds snapshot lifetime; zero means no expiry.
	TTL time.Duration
}

// NewRedisStore creates a store over an existing Redis client.
func NewRedisStore(client redis.UniversalClient, optFns ...func(o *RedisStoreOptions)) *RedisStore {
	opts := RedisStoreOptions{KeyPrefix: "convocore:memory:"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RedisStore{client: client, keyPrefix: opts.KeyPrefix, ttl: opts.TTL}
}

func (s *RedisStore) key(sessionID string) string { return s.keyPrefix + sessionID }

// Save stores a snapshot, overwriting any previous one.
func (s *RedisStore) Save(ctx context.Context, sessionID string, mem core.SessionMemory) error {
	data, err := json.Marshal(mem)
	if err != nil {
		return fmt.Errorf("failed to encode memory snapshot for %s: %w", sessionID, err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save memory snapshot for %s: %w", sessionID, err)
	}
	return nil
}

// Load returns the stored snapshot and whether one exists.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (core.SessionMemory, bool, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.SessionMemory{}, false, nil
	}
	if err != nil {
		return core.SessionMemory{}, false, fmt.Errorf("failed to load memory snapshot for %s: %w", sessionID, err)
	}
	var mem core.SessionMemory
	if err := json.Unmarshal(data, &mem); err != nil {
		return core.SessionMemory{}, false, fmt.Errorf("malformed memory snapshot for %s: %w", sessionID, err)
	}
	return mem, true, nil
}

// Delete removes a snapshot; deleting an absent id is a no-op.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete memory snapshot for %s: %w", sessionID, err)
	}
	return nil
}

// Interface compliance (compile-time assertions)
var (
	_ Store = (*InMemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)
