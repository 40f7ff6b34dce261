package authz

import (
	"testing"

	"marketplace-service/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestCovers(t *testing.T) {
	ref := ProductRef{ProductID: "prod-1", CategoryID: "cat-sofa"}

	t.Run("Covers_AllScope", func(t *testing.T) {
		edge := &model.AuthorizationEdge{Scope: model.ScopeAll}
		assert.True(t, Covers(edge, ref))
		assert.True(t, Covers(edge, ProductRef{ProductID: "anything"}))
	})

	t.Run("Covers_CategoryScope_Member", func(t *testing.T) {
		edge := &model.AuthorizationEdge{
			Scope:      model.ScopeCategory,
			Categories: []string{"cat-table", "cat-sofa"},
		}
		assert.True(t, Covers(edge, ref))
	})

	t.Run("Covers_CategoryScope_NonMember", func(t *testing.T) {
		edge := &model.AuthorizationEdge{
			Scope:      model.ScopeCategory,
			Categories: []string{"cat-table"},
		}
		assert.False(t, Covers(edge, ref))
	})

	t.Run("Covers_CategoryScope_MissingCategory", func(t *testing.T) {
		edge := &model.AuthorizationEdge{
			Scope:      model.ScopeCategory,
			Categories: []string{"cat-sofa"},
		}
		assert.False(t, Covers(edge, ProductRef{ProductID: "prod-1"}))
	})

	t.Run("Covers_ProductsScope_Member", func(t *testing.T) {
		edge := &model.AuthorizationEdge{
			Scope:    model.ScopeProducts,
			Products: []string{"prod-1", "prod-2"},
		}
		assert.True(t, Covers(edge, ref))
	})

	t.Run("Covers_ProductsScope_NonMember", func(t *testing.T) {
		edge := &model.AuthorizationEdge{
			Scope:    model.ScopeProducts,
			Products: []string{"prod-9"},
		}
		assert.False(t, Covers(edge, ref))
	})

	t.Run("Covers_UnknownScope", func(t *testing.T) {
		edge := &model.AuthorizationEdge{Scope: model.AuthorizationScope("bogus")}
		assert.False(t, Covers(edge, ref))
	})
}

func TestNormalizeCategoryRef(t *testing.T) {
	t.Run("NormalizeCategoryRef_BareID", func(t *testing.T) {
		assert.Equal(t, "cat-1", NormalizeCategoryRef("cat-1"))
	})

	t.Run("NormalizeCategoryRef_EmbeddedObject", func(t *testing.T) {
		ref := map[string]interface{}{"id": "cat-2", "name": "Sofas"}
		assert.Equal(t, "cat-2", NormalizeCategoryRef(ref))
	})

	t.Run("NormalizeCategoryRef_Unrecognized", func(t *testing.T) {
		assert.Equal(t, "", NormalizeCategoryRef(42))
		assert.Equal(t, "", NormalizeCategoryRef(map[string]interface{}{"name": "no id"}))
	})
}
