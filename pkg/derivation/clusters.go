package derivation

import (
	"context"

	"github.com/google/uuid"

	"github.com/fraudwatch/sovereign-core/pkg/model"
	storepkg "github.com/fraudwatch/sovereign-core/pkg/store"
)

var clusterPredicates = []model.Predicate{model.PredicateDirectorOf, model.PredicateShareholderOf, model.PredicateRegisteredAt}

type unionFind struct {
	parent map[uuid.UUID]uuid.UUID
}

func newUnionFind() *unionFind {
	return &unionFind{parent: map[uuid.UUID]uuid.UUID{}}
}

func (u *unionFind) find(x uuid.UUID) uuid.UUID {
	p, ok := u.parent[x]
	if !ok {
		u.parent[x] = x
		return x
	}
	if p == x {
		return x
	}
	root := u.find(p)
	u.parent[x] = root
	return root
}

func (u *unionFind) union(a, b uuid.UUID) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	// canonical root is always the smaller id, per spec's "component
	// id = canonicalized smallest member id".
	if smallerUUID(rb, ra) {
		u.parent[ra] = rb
	} else {
		u.parent[rb] = ra
	}
}

func smallerUUID(a, b uuid.UUID) bool {
	return a.String() < b.String()
}

// DeriveClusters computes connected components over the multigraph
// restricted to DIRECTOR_OF ∪ SHAREHOLDER_OF ∪ REGISTERED_AT (spec
// §4.7) and writes a NETWORK_CLUSTER attribute fact per member, valued
// with the canonicalized smallest member id as a string.
func (e *Engine) DeriveClusters(ctx context.Context, persons, companies, addresses []uuid.UUID) (int, error) {
	uf := newUnionFind()
	allMembers := map[uuid.UUID]bool{}
	for _, group := range [][]uuid.UUID{persons, companies, addresses} {
		for _, id := range group {
			allMembers[id] = true
			uf.find(id)
		}
	}

	for member := range allMembers {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
		neighbors, err := e.store.Neighbors(ctx, member, clusterPredicates, storepkg.DirectionBoth, 0)
		if err != nil {
			continue
		}
		for _, n := range neighbors {
			if allMembers[n] {
				uf.union(member, n)
			}
		}
	}

	written := 0
	for member := range allMembers {
		root := uf.find(member)
		changed, err := e.writeDerived(ctx, member, model.PredicateNetworkCluster, model.StringValue(root.String()), []uuid.UUID{member})
		if err != nil {
			e.log.WithError(err).WithField("entity", member.String()).Warn("failed to write network cluster")
			continue
		}
		if changed {
			written++
		}
	}
	return written, nil
}
