package authz

import "errors"

var (
	// ErrNoApplicableAuthorization means the chain between manufacturer and
	// actor has a gap: a hop with no active in-window edge, or an edge whose
	// scope does not cover the product. Resolution fails closed; callers must
	// never fall back to a default discount.
	ErrNoApplicableAuthorization = errors.New("no applicable authorization for actor and product")

	// ErrInvalidScope means an edge declares a scope whose required
	// category/product list is missing or malformed.
	ErrInvalidScope = errors.New("invalid authorization scope")

	// ErrCircularAuthorization means granting the edge would create a cycle in
	// the authorization graph.
	ErrCircularAuthorization = errors.New("authorization would create a cycle")
)
