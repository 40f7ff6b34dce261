package authz

import (
	"context"
	"time"

	"marketplace-service/internal/model"

	"go.uber.org/zap"
)

// maxChainDepth bounds authorization chain traversal. The graph is a DAG
// rooted at manufacturers with bounded-depth rule lookups, so anything deeper
// is treated as a gap rather than walked indefinitely.
const maxChainDepth = 6

// BuildChain finds the ordered actor path from the manufacturer to the given
// actor over active edges, using an iterative breadth-first walk with an
// explicit hop counter. The actor being the manufacturer itself yields an
// empty chain. An unreachable actor yields ErrNoApplicableAuthorization.
func (r *Resolver) BuildChain(ctx context.Context, manufacturerID uint, actor model.ActorRef) ([]model.ActorRef, error) {
	root := model.ActorRef{Type: model.ActorTypeManufacturer, ID: manufacturerID}
	if actor == root {
		return nil, nil
	}

	now := time.Now()
	parent := map[model.ActorRef]model.ActorRef{}
	frontier := []model.ActorRef{root}
	visited := map[model.ActorRef]bool{root: true}

	for depth := 0; depth < maxChainDepth && len(frontier) > 0; depth++ {
		var next []model.ActorRef
		for _, from := range frontier {
			// Only manufacturers grant; designers are always terminal nodes.
			if from.Type != model.ActorTypeManufacturer {
				continue
			}
			grantees, err := r.activeGrantees(ctx, from.ID, now)
			if err != nil {
				return nil, err
			}
			for _, to := range grantees {
				if visited[to] {
					continue
				}
				visited[to] = true
				parent[to] = from
				if to == actor {
					return chainFromParents(parent, root, actor), nil
				}
				next = append(next, to)
			}
		}
		frontier = next
	}

	return nil, ErrNoApplicableAuthorization
}

// WouldCreateCycle reports whether granting from the manufacturer to the
// grantee would make the authorization graph cyclic. The check walks upstream
// from the grantor: a manufacturer grantee that is already an ancestor of the
// grantor (or the grantor itself) closes a cycle. Enforced at edge creation so
// resolution never has to handle cyclic graphs.
func (r *Resolver) WouldCreateCycle(ctx context.Context, fromManufacturerID uint, grantee model.ActorRef) (bool, error) {
	if grantee.Type != model.ActorTypeManufacturer {
		// Designers never grant, so a designer edge cannot close a cycle.
		return false, nil
	}
	if grantee.ID == fromManufacturerID {
		return true, nil
	}

	current := []uint{fromManufacturerID}
	seen := map[uint]bool{fromManufacturerID: true}
	for depth := 0; depth < maxChainDepth && len(current) > 0; depth++ {
		var edges []model.AuthorizationEdge
		err := r.db.WithContext(ctx).
			Where("grantee_manufacturer_id IN ? AND status = ?", current, model.AuthorizationStatusActive).
			Find(&edges).Error
		if err != nil {
			return false, err
		}
		var upstream []uint
		for _, e := range edges {
			if e.FromManufacturerID == grantee.ID {
				return true, nil
			}
			if !seen[e.FromManufacturerID] {
				seen[e.FromManufacturerID] = true
				upstream = append(upstream, e.FromManufacturerID)
			}
		}
		current = upstream
	}
	return false, nil
}

// activeGrantees returns the grantee actors of all currently valid outgoing
// edges of a manufacturer.
func (r *Resolver) activeGrantees(ctx context.Context, manufacturerID uint, now time.Time) ([]model.ActorRef, error) {
	var edges []model.AuthorizationEdge
	err := r.db.WithContext(ctx).
		Where("from_manufacturer_id = ? AND status = ?", manufacturerID, model.AuthorizationStatusActive).
		Find(&edges).Error
	if err != nil {
		return nil, err
	}
	var grantees []model.ActorRef
	for i := range edges {
		if !edges[i].IsCurrentlyValid(now) {
			continue
		}
		ref := edges[i].GranteeRef()
		if ref.ID == 0 {
			zap.L().Warn("authorization edge without grantee", zap.Uint("edge_id", edges[i].ID))
			continue
		}
		grantees = append(grantees, ref)
	}
	return grantees, nil
}

// chainFromParents reconstructs the root-to-actor path from the parent map,
// excluding the root itself.
func chainFromParents(parent map[model.ActorRef]model.ActorRef, root, actor model.ActorRef) []model.ActorRef {
	var reversed []model.ActorRef
	for cur := actor; cur != root; cur = parent[cur] {
		reversed = append(reversed, cur)
	}
	chain := make([]model.ActorRef, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		chain = append(chain, reversed[i])
	}
	return chain
}
