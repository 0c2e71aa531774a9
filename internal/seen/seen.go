// Package seen tracks the identities of already-delivered posts in Redis.
// The set is global across destinations: once an identity is marked, it is
// never delivered again anywhere. Every mutation is durable before the call
// returns.
package seen

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// hashKey is the Redis key of the id -> mark-time hash.
const hashKey = "fblstner:seen"

// Store is the seen-set consumed by the fan-out engine.
type Store interface {
	IsSeen(ctx context.Context, id string) (bool, error)
	MarkSeen(ctx context.Context, id string) error
	MarkSeenBatch(ctx context.Context, ids []string) error
	Expire(ctx context.Context, retention time.Duration) (int, error)
	Trim(ctx context.Context, keep int) (int, error)
	Count(ctx context.Context) (int, error)
}

// RedisStore persists the seen-set as a flat Redis hash of
// id -> RFC3339 mark time.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a seen-set store backed by the given Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// IsSeen reports whether an identity has been marked.
func (s *RedisStore) IsSeen(ctx context.Context, id string) (bool, error) {
	seen, err := s.client.HExists(ctx, hashKey, id).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check seen id: %w", err)
	}
	return seen, nil
}

// MarkSeen marks an identity with the current time. Marking an already-seen
// identity is a no-op and preserves the original mark time.
func (s *RedisStore) MarkSeen(ctx context.Context, id string) error {
	ts := s.now().UTC().Format(time.RFC3339)
	if err := s.client.HSetNX(ctx, hashKey, id, ts).Err(); err != nil {
		return fmt.Errorf("failed to mark seen id: %w", err)
	}
	return nil
}

// MarkSeenBatch marks several identities in one round trip.
func (s *RedisStore) MarkSeenBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	ts := s.now().UTC().Format(time.RFC3339)
	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.HSetNX(ctx, hashKey, id, ts)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark seen batch: %w", err)
	}
	return nil
}

// Expire removes identities whose mark time is older than the retention
// window and reports how many were removed. Entries with unparseable mark
// times are removed as well.
func (s *RedisStore) Expire(ctx context.Context, retention time.Duration) (int, error) {
	entries, err := s.client.HGetAll(ctx, hashKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to load seen set: %w", err)
	}

	cutoff := s.now().UTC().Add(-retention)
	var expired []string
	for id, raw := range entries {
		markedAt, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil || markedAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}

	if len(expired) == 0 {
		return 0, nil
	}
	if err := s.client.HDel(ctx, hashKey, expired...).Err(); err != nil {
		return 0, fmt.Errorf("failed to delete expired ids: %w", err)
	}
	return len(expired), nil
}

// Trim keeps only the most recently marked keep identities, removing the
// oldest, and reports how many were removed. A keep of zero or less clears
// nothing.
func (s *RedisStore) Trim(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	entries, err := s.client.HGetAll(ctx, hashKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to load seen set: %w", err)
	}
	if len(entries) <= keep {
		return 0, nil
	}

	type mark struct {
		id string
		at time.Time
	}
	marks := make([]mark, 0, len(entries))
	for id, raw := range entries {
		markedAt, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			markedAt = time.Time{}
		}
		marks = append(marks, mark{id: id, at: markedAt})
	}

	sort.Slice(marks, func(i, j int) bool {
		if marks[i].at.Equal(marks[j].at) {
			return marks[i].id < marks[j].id
		}
		return marks[i].at.After(marks[j].at)
	})

	removed := make([]string, 0, len(marks)-keep)
	for _, m := range marks[keep:] {
		removed = append(removed, m.id)
	}
	if err := s.client.HDel(ctx, hashKey, removed...).Err(); err != nil {
		return 0, fmt.Errorf("failed to trim seen set: %w", err)
	}
	return len(removed), nil
}

// Count returns the number of marked identities.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.HLen(ctx, hashKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count seen set: %w", err)
	}
	return int(n), nil
}
