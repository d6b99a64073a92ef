package blocking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fraudwatch/sovereign-core/pkg/model"
)

// RedisIndex stores each (entity_type, strategy, key) bucket as a
// Redis set of entity id strings, so multiple core instances share one
// blocking index instead of each rebuilding its own in-process copy.
type RedisIndex struct {
	client *redis.Client
}

func NewRedisIndex(client *redis.Client) *RedisIndex {
	return &RedisIndex{client: client}
}

func redisKey(entityType model.EntityType, strategy Strategy, key string) string {
	return fmt.Sprintf("blocking:%s:%s:%s", entityType, strategy, key)
}

func (r *RedisIndex) Add(ctx context.Context, entityType model.EntityType, strategy Strategy, key string, entity uuid.UUID) error {
	return r.client.SAdd(ctx, redisKey(entityType, strategy, key), entity.String()).Err()
}

func (r *RedisIndex) Remove(ctx context.Context, entityType model.EntityType, strategy Strategy, key string, entity uuid.UUID) error {
	return r.client.SRem(ctx, redisKey(entityType, strategy, key), entity.String()).Err()
}

func (r *RedisIndex) Members(ctx context.Context, entityType model.EntityType, strategy Strategy, key string) ([]uuid.UUID, error) {
	members, err := r.client.SMembers(ctx, redisKey(entityType, strategy, key)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// NewIndex returns a RedisIndex backed by cfg when enabled, otherwise
// an in-process MemIndex. This is the single place that decides which
// Index implementation the rest of the core depends on.
func NewIndex(addr, password string, db int, enabled bool) Index {
	if !enabled {
		return NewMemIndex()
	}
	return NewRedisIndex(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}))
}
