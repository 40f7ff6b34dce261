package authz

import (
	"context"
	"fmt"
	"testing"
	"time"

	"marketplace-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&model.Manufacturer{},
		&model.AuthorizationEdge{},
		&model.TierCommissionRuleSet{},
		&model.TierCommissionRule{},
		&model.PartnerCommissionRule{},
		&model.Product{},
	)
	require.NoError(t, err)
	return db
}

func createManufacturer(t *testing.T, db *gorm.DB, code string, discount, commission float64) *model.Manufacturer {
	t.Helper()
	m := &model.Manufacturer{
		Code:                  code,
		Name:                  code,
		DefaultDiscountRate:   discount,
		DefaultCommissionRate: commission,
		IsActive:              true,
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

func designerEdge(from uint, designerID uint) *model.AuthorizationEdge {
	return &model.AuthorizationEdge{
		FromManufacturerID: from,
		GranteeDesignerID:  &designerID,
		AuthorizationType:  model.AuthorizationTypeDesigner,
		Scope:              model.ScopeAll,
		Status:             model.AuthorizationStatusActive,
		ValidFrom:          time.Now().Add(-time.Hour),
	}
}

func manufacturerEdge(from, to uint) *model.AuthorizationEdge {
	return &model.AuthorizationEdge{
		FromManufacturerID:    from,
		GranteeManufacturerID: &to,
		AuthorizationType:     model.AuthorizationTypeManufacturer,
		Scope:                 model.ScopeAll,
		Status:                model.AuthorizationStatusActive,
		ValidFrom:             time.Now().Add(-time.Hour),
	}
}

func ptr(v float64) *float64 { return &v }

func TestResolve_EmptyChain(t *testing.T) {
	db := newTestDB(t)
	m := createManufacturer(t, db, "FAB-A", 85, 10)

	resolver := NewResolver(db)
	res, err := resolver.Resolve(context.Background(), m.ID, nil, ProductRef{ProductID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.DiscountRate)
	assert.Empty(t, res.CommissionSplit)
}

func TestResolve_DiscountRate(t *testing.T) {
	t.Run("Resolve_EdgeMinDiscountWins", func(t *testing.T) {
		db := newTestDB(t)
		m := createManufacturer(t, db, "FAB-A", 90, 10)
		edge := designerEdge(m.ID, 7)
		edge.MinDiscountRate = ptr(85)
		require.NoError(t, db.Create(edge).Error)

		res, err := NewResolver(db).Resolve(context.Background(), m.ID,
			[]model.ActorRef{{Type: model.ActorTypeDesigner, ID: 7}},
			ProductRef{ProductID: "p1"})
		require.NoError(t, err)
		assert.Equal(t, 85.0, res.DiscountRate)
	})

	t.Run("Resolve_UnsetFallsBackToDefault", func(t *testing.T) {
		db := newTestDB(t)
		m := createManufacturer(t, db, "FAB-A", 90, 10)
		require.NoError(t, db.Create(designerEdge(m.ID, 7)).Error)

		res, err := NewResolver(db).Resolve(context.Background(), m.ID,
			[]model.ActorRef{{Type: model.ActorTypeDesigner, ID: 7}},
			ProductRef{ProductID: "p1"})
		require.NoError(t, err)
		assert.Equal(t, 90.0, res.DiscountRate)
	})

	t.Run("Resolve_StoredZeroTreatedAsUnset", func(t *testing.T) {
		// Legacy rows store 0 meaning "unset"; a stored zero must never be
		// mistaken for an explicit zero-rate override.
		db := newTestDB(t)
		m := createManufacturer(t, db, "FAB-A", 90, 10)
		edge := designerEdge(m.ID, 7)
		edge.MinDiscountRate = ptr(0)
		edge.CommissionRate = ptr(0)
		require.NoError(t, db.Create(edge).Error)

		res, err := NewResolver(db).Resolve(context.Background(), m.ID,
			[]model.ActorRef{{Type: model.ActorTypeDesigner, ID: 7}},
			ProductRef{ProductID: "p1"})
		require.NoError(t, err)
		assert.Equal(t, 90.0, res.DiscountRate)
		require.Len(t, res.CommissionSplit, 1)
		assert.Equal(t, 10.0, res.CommissionSplit[0].CommissionRate)
	})
}

func TestResolve_CommissionPrecedence(t *testing.T) {
	db := newTestDB(t)
	m := createManufacturer(t, db, "FAB-A", 85, 5)

	designer := model.ActorRef{Type: model.ActorTypeDesigner, ID: 7}
	edge := designerEdge(m.ID, designer.ID)
	edge.CommissionRate = ptr(8)
	require.NoError(t, db.Create(edge).Error)

	ruleSet := &model.TierCommissionRuleSet{
		ManufacturerID: m.ID,
		Name:           "standard",
		IsActive:       true,
		Rules: []model.TierCommissionRule{
			{Depth: 0, CommissionRate: 10, Description: "direct grantees"},
		},
		PartnerRules: []model.PartnerCommissionRule{
			{PartnerKey: designer.Key(), CommissionRate: 15, Description: "house designer"},
		},
	}
	require.NoError(t, db.Create(ruleSet).Error)

	chain := []model.ActorRef{designer}
	ref := ProductRef{ProductID: "p1"}
	ctx := context.Background()
	resolver := NewResolver(db)

	t.Run("Resolve_PartnerRuleBeatsDepthRule", func(t *testing.T) {
		res, err := resolver.Resolve(ctx, m.ID, chain, ref)
		require.NoError(t, err)
		require.Len(t, res.CommissionSplit, 1)
		assert.Equal(t, 15.0, res.CommissionSplit[0].CommissionRate)
		assert.Equal(t, "partner_rule", res.CommissionSplit[0].Source)
	})

	t.Run("Resolve_DepthRuleBeatsEdgeRate", func(t *testing.T) {
		require.NoError(t, db.Delete(&model.PartnerCommissionRule{}, "rule_set_id = ?", ruleSet.ID).Error)

		res, err := resolver.Resolve(ctx, m.ID, chain, ref)
		require.NoError(t, err)
		require.Len(t, res.CommissionSplit, 1)
		assert.Equal(t, 10.0, res.CommissionSplit[0].CommissionRate)
		assert.Equal(t, "depth_rule", res.CommissionSplit[0].Source)
	})

	t.Run("Resolve_EdgeRateBeatsDefault", func(t *testing.T) {
		require.NoError(t, db.Delete(&model.TierCommissionRule{}, "rule_set_id = ?", ruleSet.ID).Error)

		res, err := resolver.Resolve(ctx, m.ID, chain, ref)
		require.NoError(t, err)
		require.Len(t, res.CommissionSplit, 1)
		assert.Equal(t, 8.0, res.CommissionSplit[0].CommissionRate)
		assert.Equal(t, "edge_rate", res.CommissionSplit[0].Source)
	})

	t.Run("Resolve_DefaultWhenNothingElse", func(t *testing.T) {
		require.NoError(t, db.Model(&model.AuthorizationEdge{}).
			Where("id = ?", edge.ID).
			Update("commission_rate", nil).Error)

		res, err := resolver.Resolve(ctx, m.ID, chain, ref)
		require.NoError(t, err)
		require.Len(t, res.CommissionSplit, 1)
		assert.Equal(t, 5.0, res.CommissionSplit[0].CommissionRate)
		assert.Equal(t, "manufacturer_default", res.CommissionSplit[0].Source)
	})
}

func TestResolve_FailsClosed(t *testing.T) {
	ctx := context.Background()

	t.Run("Resolve_NoEdge", func(t *testing.T) {
		db := newTestDB(t)
		m := createManufacturer(t, db, "FAB-A", 85, 10)

		_, err := NewResolver(db).Resolve(ctx, m.ID,
			[]model.ActorRef{{Type: model.ActorTypeDesigner, ID: 7}},
			ProductRef{ProductID: "p1"})
		assert.ErrorIs(t, err, ErrNoApplicableAuthorization)
	})

	t.Run("Resolve_RevokedEdge", func(t *testing.T) {
		db := newTestDB(t)
		m := createManufacturer(t, db, "FAB-A", 85, 10)
		edge := designerEdge(m.ID, 7)
		edge.Status = model.AuthorizationStatusRevoked
		require.NoError(t, db.Create(edge).Error)

		_, err := NewResolver(db).Resolve(ctx, m.ID,
			[]model.ActorRef{{Type: model.ActorTypeDesigner, ID: 7}},
			ProductRef{ProductID: "p1"})
		assert.ErrorIs(t, err, ErrNoApplicableAuthorization)
	})

	t.Run("Resolve_ExpiredEdge", func(t *testing.T) {
		db := newTestDB(t)
		m := createManufacturer(t, db, "FAB-A", 85, 10)
		edge := designerEdge(m.ID, 7)
		past := time.Now().Add(-time.Minute)
		edge.ValidUntil = &past
		require.NoError(t, db.Create(edge).Error)

		_, err := NewResolver(db).Resolve(ctx, m.ID,
			[]model.ActorRef{{Type: model.ActorTypeDesigner, ID: 7}},
			ProductRef{ProductID: "p1"})
		assert.ErrorIs(t, err, ErrNoApplicableAuthorization)
	})

	t.Run("Resolve_ScopeMiss", func(t *testing.T) {
		db := newTestDB(t)
		m := createManufacturer(t, db, "FAB-A", 85, 10)
		edge := designerEdge(m.ID, 7)
		edge.Scope = model.ScopeProducts
		edge.Products = []string{"p-other"}
		require.NoError(t, db.Create(edge).Error)

		_, err := NewResolver(db).Resolve(ctx, m.ID,
			[]model.ActorRef{{Type: model.ActorTypeDesigner, ID: 7}},
			ProductRef{ProductID: "p1"})
		assert.ErrorIs(t, err, ErrNoApplicableAuthorization)
	})

	t.Run("Resolve_GapInMiddleOfChain", func(t *testing.T) {
		// Terminal hop exists but the intermediate one does not: the whole
		// resolution fails, there are no partial chains.
		db := newTestDB(t)
		a := createManufacturer(t, db, "FAB-A", 85, 10)
		b := createManufacturer(t, db, "FAB-B", 80, 8)
		require.NoError(t, db.Create(designerEdge(b.ID, 7)).Error)

		_, err := NewResolver(db).Resolve(ctx, a.ID,
			[]model.ActorRef{
				{Type: model.ActorTypeManufacturer, ID: b.ID},
				{Type: model.ActorTypeDesigner, ID: 7},
			},
			ProductRef{ProductID: "p1"})
		assert.ErrorIs(t, err, ErrNoApplicableAuthorization)
	})
}

func TestResolve_MultiHopChain(t *testing.T) {
	db := newTestDB(t)
	a := createManufacturer(t, db, "FAB-A", 85, 10)
	b := createManufacturer(t, db, "FAB-B", 80, 8)

	require.NoError(t, db.Create(manufacturerEdge(a.ID, b.ID)).Error)
	terminal := designerEdge(b.ID, 7)
	terminal.MinDiscountRate = ptr(75)
	require.NoError(t, db.Create(terminal).Error)

	ruleSet := &model.TierCommissionRuleSet{
		ManufacturerID: a.ID,
		Name:           "tiered",
		IsActive:       true,
		Rules: []model.TierCommissionRule{
			{Depth: 0, CommissionRate: 12},
			{Depth: 1, CommissionRate: 6},
		},
	}
	require.NoError(t, db.Create(ruleSet).Error)

	chain := []model.ActorRef{
		{Type: model.ActorTypeManufacturer, ID: b.ID},
		{Type: model.ActorTypeDesigner, ID: 7},
	}
	res, err := NewResolver(db).Resolve(context.Background(), a.ID, chain, ProductRef{ProductID: "p1"})
	require.NoError(t, err)

	assert.Equal(t, 75.0, res.DiscountRate)
	require.Len(t, res.CommissionSplit, 2)
	assert.Equal(t, 12.0, res.CommissionSplit[0].CommissionRate)
	assert.Equal(t, 0, res.CommissionSplit[0].Depth)
	assert.Equal(t, 6.0, res.CommissionSplit[1].CommissionRate)
	assert.Equal(t, 1, res.CommissionSplit[1].Depth)
}

func TestResolve_DuplicateEdgesNewestWins(t *testing.T) {
	db := newTestDB(t)
	m := createManufacturer(t, db, "FAB-A", 90, 10)

	older := designerEdge(m.ID, 7)
	older.MinDiscountRate = ptr(88)
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, db.Create(older).Error)

	newer := designerEdge(m.ID, 7)
	newer.MinDiscountRate = ptr(82)
	require.NoError(t, db.Create(newer).Error)

	res, err := NewResolver(db).Resolve(context.Background(), m.ID,
		[]model.ActorRef{{Type: model.ActorTypeDesigner, ID: 7}},
		ProductRef{ProductID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 82.0, res.DiscountRate)
}

func TestResolve_DefaultCommissionEditApplies(t *testing.T) {
	// An edge with no explicit commission follows the manufacturer default:
	// editing the default changes what future resolutions return, while
	// already-placed orders keep their frozen subtotals (dispatch never
	// recomputes them; see the dispatch tests).
	db := newTestDB(t)
	m := createManufacturer(t, db, "FAB-A", 85, 10)
	require.NoError(t, db.Create(designerEdge(m.ID, 7)).Error)

	chain := []model.ActorRef{{Type: model.ActorTypeDesigner, ID: 7}}
	ref := ProductRef{ProductID: "p1"}
	resolver := NewResolver(db)

	res, err := resolver.Resolve(context.Background(), m.ID, chain, ref)
	require.NoError(t, err)
	assert.Equal(t, 85.0, res.DiscountRate)
	require.Len(t, res.CommissionSplit, 1)
	assert.Equal(t, 10.0, res.CommissionSplit[0].CommissionRate)

	require.NoError(t, db.Model(&model.Manufacturer{}).
		Where("id = ?", m.ID).
		Update("default_commission_rate", 12).Error)

	res, err = resolver.Resolve(context.Background(), m.ID, chain, ref)
	require.NoError(t, err)
	assert.Equal(t, 12.0, res.CommissionSplit[0].CommissionRate)
}

func TestBuildChain(t *testing.T) {
	t.Run("BuildChain_SelfIsEmpty", func(t *testing.T) {
		db := newTestDB(t)
		m := createManufacturer(t, db, "FAB-A", 85, 10)

		chain, err := NewResolver(db).BuildChain(context.Background(), m.ID,
			model.ActorRef{Type: model.ActorTypeManufacturer, ID: m.ID})
		require.NoError(t, err)
		assert.Empty(t, chain)
	})

	t.Run("BuildChain_MultiHop", func(t *testing.T) {
		db := newTestDB(t)
		a := createManufacturer(t, db, "FAB-A", 85, 10)
		b := createManufacturer(t, db, "FAB-B", 80, 8)
		require.NoError(t, db.Create(manufacturerEdge(a.ID, b.ID)).Error)
		require.NoError(t, db.Create(designerEdge(b.ID, 7)).Error)

		chain, err := NewResolver(db).BuildChain(context.Background(), a.ID,
			model.ActorRef{Type: model.ActorTypeDesigner, ID: 7})
		require.NoError(t, err)
		require.Len(t, chain, 2)
		assert.Equal(t, model.ActorRef{Type: model.ActorTypeManufacturer, ID: b.ID}, chain[0])
		assert.Equal(t, model.ActorRef{Type: model.ActorTypeDesigner, ID: 7}, chain[1])
	})

	t.Run("BuildChain_Unreachable", func(t *testing.T) {
		db := newTestDB(t)
		a := createManufacturer(t, db, "FAB-A", 85, 10)

		_, err := NewResolver(db).BuildChain(context.Background(), a.ID,
			model.ActorRef{Type: model.ActorTypeDesigner, ID: 99})
		assert.ErrorIs(t, err, ErrNoApplicableAuthorization)
	})
}

func TestWouldCreateCycle(t *testing.T) {
	t.Run("WouldCreateCycle_SelfGrant", func(t *testing.T) {
		db := newTestDB(t)
		a := createManufacturer(t, db, "FAB-A", 85, 10)

		cyclic, err := NewResolver(db).WouldCreateCycle(context.Background(), a.ID,
			model.ActorRef{Type: model.ActorTypeManufacturer, ID: a.ID})
		require.NoError(t, err)
		assert.True(t, cyclic)
	})

	t.Run("WouldCreateCycle_BackEdge", func(t *testing.T) {
		db := newTestDB(t)
		a := createManufacturer(t, db, "FAB-A", 85, 10)
		b := createManufacturer(t, db, "FAB-B", 80, 8)
		require.NoError(t, db.Create(manufacturerEdge(a.ID, b.ID)).Error)

		// B granting back to A would close a cycle.
		cyclic, err := NewResolver(db).WouldCreateCycle(context.Background(), b.ID,
			model.ActorRef{Type: model.ActorTypeManufacturer, ID: a.ID})
		require.NoError(t, err)
		assert.True(t, cyclic)
	})

	t.Run("WouldCreateCycle_DesignerGrantee", func(t *testing.T) {
		db := newTestDB(t)
		a := createManufacturer(t, db, "FAB-A", 85, 10)

		cyclic, err := NewResolver(db).WouldCreateCycle(context.Background(), a.ID,
			model.ActorRef{Type: model.ActorTypeDesigner, ID: 7})
		require.NoError(t, err)
		assert.False(t, cyclic)
	})

	t.Run("WouldCreateCycle_UnrelatedManufacturer", func(t *testing.T) {
		db := newTestDB(t)
		a := createManufacturer(t, db, "FAB-A", 85, 10)
		b := createManufacturer(t, db, "FAB-B", 80, 8)

		cyclic, err := NewResolver(db).WouldCreateCycle(context.Background(), a.ID,
			model.ActorRef{Type: model.ActorTypeManufacturer, ID: b.ID})
		require.NoError(t, err)
		assert.False(t, cyclic)
	})
}
