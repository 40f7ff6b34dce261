package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAuthorizationEdge_IsCurrentlyValid(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	cases := []struct {
		name  string
		edge  AuthorizationEdge
		valid bool
	}{
		{"ActiveNoWindow", AuthorizationEdge{Status: AuthorizationStatusActive}, true},
		{"ActiveInsideWindow", AuthorizationEdge{Status: AuthorizationStatusActive, ValidFrom: past, ValidUntil: &future}, true},
		{"Revoked", AuthorizationEdge{Status: AuthorizationStatusRevoked}, false},
		{"Expired", AuthorizationEdge{Status: AuthorizationStatusExpired}, false},
		{"NotYetValid", AuthorizationEdge{Status: AuthorizationStatusActive, ValidFrom: future}, false},
		{"PastValidUntil", AuthorizationEdge{Status: AuthorizationStatusActive, ValidUntil: &past}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, tc.edge.IsCurrentlyValid(now))
		})
	}
}

func TestAuthorizationEdge_GranteeRef(t *testing.T) {
	mID := uint(3)
	dID := uint(8)

	edge := AuthorizationEdge{AuthorizationType: AuthorizationTypeManufacturer, GranteeManufacturerID: &mID}
	assert.Equal(t, ActorRef{Type: ActorTypeManufacturer, ID: 3}, edge.GranteeRef())

	edge = AuthorizationEdge{AuthorizationType: AuthorizationTypeDesigner, GranteeDesignerID: &dID}
	assert.Equal(t, ActorRef{Type: ActorTypeDesigner, ID: 8}, edge.GranteeRef())
}

func TestActorRef_Key(t *testing.T) {
	assert.Equal(t, "manufacturer:12", ActorRef{Type: ActorTypeManufacturer, ID: 12}.Key())
	assert.Equal(t, "designer:5", ActorRef{Type: ActorTypeDesigner, ID: 5}.Key())
}

func TestAuthorizationScope_IsValid(t *testing.T) {
	assert.True(t, ScopeAll.IsValid())
	assert.True(t, ScopeCategory.IsValid())
	assert.True(t, ScopeProducts.IsValid())
	assert.False(t, AuthorizationScope("everything").IsValid())
}

func TestManufacturerOrderStatus(t *testing.T) {
	assert.True(t, ManufacturerOrderStatusPending.IsValid())
	assert.False(t, ManufacturerOrderStatus("lost").IsValid())

	assert.True(t, ManufacturerOrderStatusCompleted.IsTerminal())
	assert.True(t, ManufacturerOrderStatusCancelled.IsTerminal())
	assert.False(t, ManufacturerOrderStatusShipped.IsTerminal())
}
