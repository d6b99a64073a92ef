package subgraph

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/fraudwatch/sovereign-core/pkg/model"
	storepkg "github.com/fraudwatch/sovereign-core/pkg/store"
)

type fakeSubgraphStore struct {
	entities  map[uuid.UUID]model.Entity
	neighbors map[uuid.UUID][]uuid.UUID
}

func (f *fakeSubgraphStore) GetEntity(ctx context.Context, id uuid.UUID) (model.Entity, error) {
	e, ok := f.entities[id]
	if !ok {
		return model.Entity{}, context.DeadlineExceeded
	}
	return e, nil
}

func (f *fakeSubgraphStore) Neighbors(ctx context.Context, entity uuid.UUID, predicates []model.Predicate, direction storepkg.NeighborDirection, limit int) ([]uuid.UUID, error) {
	return f.neighbors[entity], nil
}

func TestExpandStopsAtDepth(t *testing.T) {
	seed, a, b, c := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	st := &fakeSubgraphStore{
		entities: map[uuid.UUID]model.Entity{
			seed: {ID: seed}, a: {ID: a}, b: {ID: b}, c: {ID: c},
		},
		neighbors: map[uuid.UUID][]uuid.UUID{
			seed: {a},
			a:    {b},
			b:    {c},
		},
	}

	result, err := Expand(context.Background(), st, seed, 2, nil, 0)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(result.Nodes) != 3 {
		t.Errorf("Nodes = %d, want 3 (seed, a, b reached within depth 2)", len(result.Nodes))
	}
	for _, n := range result.Nodes {
		if n.ID == c {
			t.Errorf("Nodes contains %v beyond configured depth", c)
		}
	}
}

func TestExpandStopsAtMaxNodes(t *testing.T) {
	seed, a, b := uuid.New(), uuid.New(), uuid.New()
	st := &fakeSubgraphStore{
		entities:  map[uuid.UUID]model.Entity{seed: {ID: seed}, a: {ID: a}, b: {ID: b}},
		neighbors: map[uuid.UUID][]uuid.UUID{seed: {a, b}},
	}

	result, err := Expand(context.Background(), st, seed, 2, nil, 2)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(result.Nodes) > 2 {
		t.Errorf("Nodes = %d, want at most maxNodes=2", len(result.Nodes))
	}
}
