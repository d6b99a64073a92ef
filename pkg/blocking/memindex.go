package blocking

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/fraudwatch/sovereign-core/pkg/model"
)

// MemIndex is an in-process Index backed by sync.Map, used when no
// Redis is configured (local/test mode). Each (entity_type, strategy,
// key) bucket is its own map[uuid.UUID]struct{} guarded by a mutex;
// sync.Map gives lock-free reads across the many distinct buckets
// that accumulate over a run.
type MemIndex struct {
	buckets sync.Map // indexKey -> *bucket
}

type bucket struct {
	mu      sync.Mutex
	members map[uuid.UUID]struct{}
}

func NewMemIndex() *MemIndex {
	return &MemIndex{}
}

func indexKey(entityType model.EntityType, strategy Strategy, key string) string {
	return string(entityType) + "\x00" + string(strategy) + "\x00" + key
}

func (m *MemIndex) bucketFor(entityType model.EntityType, strategy Strategy, key string) *bucket {
	k := indexKey(entityType, strategy, key)
	v, _ := m.buckets.LoadOrStore(k, &bucket{members: make(map[uuid.UUID]struct{})})
	return v.(*bucket)
}

func (m *MemIndex) Add(_ context.Context, entityType model.EntityType, strategy Strategy, key string, entity uuid.UUID) error {
	b := m.bucketFor(entityType, strategy, key)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.members[entity] = struct{}{}
	return nil
}

func (m *MemIndex) Remove(_ context.Context, entityType model.EntityType, strategy Strategy, key string, entity uuid.UUID) error {
	b := m.bucketFor(entityType, strategy, key)
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.members, entity)
	return nil
}

func (m *MemIndex) Members(_ context.Context, entityType model.EntityType, strategy Strategy, key string) ([]uuid.UUID, error) {
	b := m.bucketFor(entityType, strategy, key)
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]uuid.UUID, 0, len(b.members))
	for id := range b.members {
		out = append(out, id)
	}
	return out, nil
}
