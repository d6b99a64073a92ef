// Package subgraph answers the query boundary's get_relationships
// operation (spec §6): a bounded breadth-first expansion from a seed
// entity over current RELATIONSHIP facts, returned as a node/edge list
// rather than a live graph-database handle, per the "Graph backend as
// a plug-in" redesign note.
package subgraph

import (
	"context"

	"github.com/google/uuid"

	"github.com/fraudwatch/sovereign-core/pkg/model"
	storepkg "github.com/fraudwatch/sovereign-core/pkg/store"
)

// Store is the subset of *store.Store a subgraph expansion depends on.
type Store interface {
	GetEntity(ctx context.Context, id uuid.UUID) (model.Entity, error)
	Neighbors(ctx context.Context, entity uuid.UUID, predicates []model.Predicate, direction storepkg.NeighborDirection, limit int) ([]uuid.UUID, error)
}

// Edge is one traversed hop.
type Edge struct {
	From uuid.UUID
	To   uuid.UUID
}

// Result is the subgraph rooted at the seed entity.
type Result struct {
	Nodes []model.Entity
	Edges []Edge
}

const defaultMaxNodes = 500

// Expand performs a bounded BFS of at most depth hops from seed,
// restricted to predicates (all predicates if empty), stopping once
// maxNodes distinct entities have been visited. A cancelled context
// stops expansion and returns whatever was gathered so far.
func Expand(ctx context.Context, st Store, seed uuid.UUID, depth int, predicates []model.Predicate, maxNodes int) (Result, error) {
	if depth <= 0 {
		depth = 2
	}
	if maxNodes <= 0 {
		maxNodes = defaultMaxNodes
	}

	seedEntity, err := st.GetEntity(ctx, seed)
	if err != nil {
		return Result{}, err
	}

	visited := map[uuid.UUID]model.Entity{seed: seedEntity}
	var edges []Edge
	frontier := []uuid.UUID{seed}

	for hop := 0; hop < depth && len(frontier) > 0 && len(visited) < maxNodes; hop++ {
		select {
		case <-ctx.Done():
			return toResult(visited, edges), ctx.Err()
		default:
		}

		var next []uuid.UUID
		for _, id := range frontier {
			neighbors, err := st.Neighbors(ctx, id, predicates, storepkg.DirectionBoth, maxNodes)
			if err != nil {
				continue
			}
			for _, n := range neighbors {
				edges = append(edges, Edge{From: id, To: n})
				if _, seen := visited[n]; seen {
					continue
				}
				if len(visited) >= maxNodes {
					break
				}
				entity, err := st.GetEntity(ctx, n)
				if err != nil {
					continue
				}
				visited[n] = entity
				next = append(next, n)
			}
		}
		frontier = next
	}

	return toResult(visited, edges), nil
}

func toResult(visited map[uuid.UUID]model.Entity, edges []Edge) Result {
	nodes := make([]model.Entity, 0, len(visited))
	for _, e := range visited {
		nodes = append(nodes, e)
	}
	return Result{Nodes: nodes, Edges: edges}
}
