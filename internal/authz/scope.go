package authz

import (
	"marketplace-service/internal/model"
)

// ProductRef identifies a product during scope evaluation. CategoryID is the
// already-normalized category id; upstream payloads may carry either a bare id
// string or an embedded category object, and NormalizeCategoryRef flattens both
// forms before evaluation.
type ProductRef struct {
	ProductID  string
	CategoryID string
}

// NormalizeCategoryRef extracts a category id from a reference that may be a
// bare id string or an embedded object carrying an "id" field.
func NormalizeCategoryRef(ref interface{}) string {
	switch v := ref.(type) {
	case string:
		return v
	case map[string]interface{}:
		if id, ok := v["id"].(string); ok {
			return id
		}
	}
	return ""
}

// Covers decides whether an authorization edge applies to the given product.
// A non-covering edge is simply inapplicable for that product, never an error:
// the resolver continues as if the edge did not exist.
func Covers(edge *model.AuthorizationEdge, ref ProductRef) bool {
	switch edge.Scope {
	case model.ScopeAll:
		return true
	case model.ScopeCategory:
		if ref.CategoryID == "" {
			return false
		}
		for _, id := range edge.Categories {
			if id == ref.CategoryID {
				return true
			}
		}
		return false
	case model.ScopeProducts:
		for _, id := range edge.Products {
			if id == ref.ProductID {
				return true
			}
		}
		return false
	default:
		return false
	}
}
