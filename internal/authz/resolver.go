package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-service/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CommissionShare is one hop's share of the margin between list price and
// discounted price. Rates are applied independently per hop against the
// subtotal attributable to that hop; they are not required to sum to 100% and
// remaining margin accrues to the manufacturer.
type CommissionShare struct {
	Actor          model.ActorRef `json:"actor"`
	Depth          int            `json:"depth"`
	CommissionRate float64        `json:"commission_rate"`
	Source         string         `json:"source"`
}

// Resolution is the effective pricing for one (actor chain, product) pair
type Resolution struct {
	DiscountRate    float64           `json:"discount_rate"`
	CommissionSplit []CommissionShare `json:"commission_split"`
}

// Rate sources reported in CommissionShare.Source
const (
	sourcePartnerRule         = "partner_rule"
	sourceDepthRule           = "depth_rule"
	sourceEdgeRate            = "edge_rate"
	sourceManufacturerDefault = "manufacturer_default"
)

// Resolver walks authorization chains and computes effective discount and
// commission rates. It reads a consistent snapshot at resolution time; callers
// freeze the result into order line subtotals so later rule edits never
// retroactively alter placed orders.
type Resolver struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewResolver creates a resolver backed by the given database handle
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db, log: zap.L().Named("authz")}
}

// rateSet reports whether an edge-level override carries an explicit value.
// Legacy rows store 0 meaning "unset", so zero is never a valid override.
func rateSet(rate *float64) bool {
	return rate != nil && *rate > 0
}

// Resolve computes the effective discount rate and per-hop commission split for
// the ordered actor chain from the manufacturer to the requesting actor. An
// empty chain means the actor is the manufacturer itself: no discount, no
// commission. Any hop without an active, in-window, scope-covering edge fails
// the whole resolution; there are no partial chains.
func (r *Resolver) Resolve(ctx context.Context, manufacturerID uint, chain []model.ActorRef, ref ProductRef) (*Resolution, error) {
	var manufacturer model.Manufacturer
	if err := r.db.WithContext(ctx).First(&manufacturer, manufacturerID).Error; err != nil {
		return nil, fmt.Errorf("load manufacturer %d: %w", manufacturerID, err)
	}

	if len(chain) == 0 {
		return &Resolution{DiscountRate: 0, CommissionSplit: nil}, nil
	}

	now := time.Now()

	// Walk the chain hop by hop, collecting the edge at each hop. Only
	// manufacturer-type actors can grant, so every intermediate hop must be a
	// manufacturer and a designer can only appear at the terminal position.
	edges := make([]*model.AuthorizationEdge, len(chain))
	from := model.ActorRef{Type: model.ActorTypeManufacturer, ID: manufacturerID}
	for i, to := range chain {
		if from.Type != model.ActorTypeManufacturer {
			return nil, ErrNoApplicableAuthorization
		}
		edge, err := r.activeEdge(ctx, from.ID, to, now)
		if err != nil {
			return nil, err
		}
		if !Covers(edge, ref) {
			return nil, ErrNoApplicableAuthorization
		}
		edges[i] = edge
		from = to
	}

	// The terminal hop sets the effective discount; the manufacturer default
	// applies when the edge carries no explicit minimum.
	terminal := edges[len(edges)-1]
	discountRate := manufacturer.DefaultDiscountRate
	if rateSet(terminal.MinDiscountRate) {
		discountRate = *terminal.MinDiscountRate
	}

	ruleSet, err := r.effectiveRuleSet(ctx, manufacturerID, edges[0])
	if err != nil {
		return nil, err
	}

	splits := make([]CommissionShare, len(chain))
	for depth, actor := range chain {
		rate, source := r.commissionForHop(ruleSet, edges[depth], &manufacturer, actor, depth)
		splits[depth] = CommissionShare{
			Actor:          actor,
			Depth:          depth,
			CommissionRate: rate,
			Source:         source,
		}
	}

	return &Resolution{DiscountRate: discountRate, CommissionSplit: splits}, nil
}

// ResolveForActor locates the actor in the manufacturer's authorization graph
// and resolves along the discovered chain. Used by the read-only pricing
// endpoint where the caller supplies only the terminal actor.
func (r *Resolver) ResolveForActor(ctx context.Context, manufacturerID uint, actor model.ActorRef, ref ProductRef) (*Resolution, error) {
	chain, err := r.BuildChain(ctx, manufacturerID, actor)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, manufacturerID, chain, ref)
}

// commissionForHop selects one hop's commission rate in precedence order:
// partner-specific rule, depth rule, edge-level rate, manufacturer default.
func (r *Resolver) commissionForHop(ruleSet *model.TierCommissionRuleSet, edge *model.AuthorizationEdge, manufacturer *model.Manufacturer, actor model.ActorRef, depth int) (float64, string) {
	if ruleSet != nil {
		for _, pr := range ruleSet.PartnerRules {
			if pr.PartnerKey == actor.Key() {
				return pr.CommissionRate, sourcePartnerRule
			}
		}
		for _, rule := range ruleSet.Rules {
			if rule.Depth == depth {
				return rule.CommissionRate, sourceDepthRule
			}
		}
	}
	if rateSet(edge.CommissionRate) {
		return *edge.CommissionRate, sourceEdgeRate
	}
	return manufacturer.DefaultCommissionRate, sourceManufacturerDefault
}

// activeEdge loads the active, in-window edge between two adjacent actors.
// Duplicate active edges for the same pair are a data-quality problem: the most
// recently created one wins and the situation is logged, not silently ignored.
func (r *Resolver) activeEdge(ctx context.Context, fromManufacturerID uint, to model.ActorRef, now time.Time) (*model.AuthorizationEdge, error) {
	query := r.db.WithContext(ctx).
		Where("from_manufacturer_id = ? AND status = ?", fromManufacturerID, model.AuthorizationStatusActive)
	switch to.Type {
	case model.ActorTypeManufacturer:
		query = query.Where("grantee_manufacturer_id = ?", to.ID)
	case model.ActorTypeDesigner:
		query = query.Where("grantee_designer_id = ?", to.ID)
	default:
		return nil, ErrNoApplicableAuthorization
	}

	var candidates []model.AuthorizationEdge
	if err := query.Order("created_at DESC, id DESC").Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("load edges from manufacturer %d to %s: %w", fromManufacturerID, to.Key(), err)
	}

	var valid []*model.AuthorizationEdge
	for i := range candidates {
		if candidates[i].IsCurrentlyValid(now) {
			valid = append(valid, &candidates[i])
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoApplicableAuthorization
	}
	if len(valid) > 1 {
		r.log.Warn("duplicate active authorization edges, using most recent",
			zap.Uint("from_manufacturer_id", fromManufacturerID),
			zap.String("grantee", to.Key()),
			zap.Int("count", len(valid)),
			zap.Uint("winning_edge_id", valid[0].ID))
	}
	return valid[0], nil
}

// effectiveRuleSet picks the single rule set in effect for a resolution: the
// one pinned on the root edge when present, otherwise the manufacturer's most
// recently updated active set. No set at all is fine; the resolver then falls
// through to edge rates and manufacturer defaults.
func (r *Resolver) effectiveRuleSet(ctx context.Context, manufacturerID uint, rootEdge *model.AuthorizationEdge) (*model.TierCommissionRuleSet, error) {
	query := r.db.WithContext(ctx).
		Preload("Rules").
		Preload("PartnerRules")

	var ruleSet model.TierCommissionRuleSet
	if rootEdge.RuleSetID != nil {
		err := query.Where("id = ? AND manufacturer_id = ?", *rootEdge.RuleSetID, manufacturerID).First(&ruleSet).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Warn("edge references missing rule set",
				zap.Uint("edge_id", rootEdge.ID),
				zap.Uint("rule_set_id", *rootEdge.RuleSetID))
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("load rule set %d: %w", *rootEdge.RuleSetID, err)
		}
		return &ruleSet, nil
	}

	err := query.Where("manufacturer_id = ? AND is_active = ?", manufacturerID, true).
		Order("updated_at DESC, id DESC").
		First(&ruleSet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load rule set for manufacturer %d: %w", manufacturerID, err)
	}
	return &ruleSet, nil
}
