package model

import (
	"fmt"
	"time"
)

// AuthorizationType identifies the kind of grantee on an authorization edge
type AuthorizationType string

const (
	AuthorizationTypeManufacturer AuthorizationType = "manufacturer"
	AuthorizationTypeDesigner     AuthorizationType = "designer"
)

// IsValid checks if the authorization type is valid
func (t AuthorizationType) IsValid() bool {
	return t == AuthorizationTypeManufacturer || t == AuthorizationTypeDesigner
}

// AuthorizationScope restricts which part of the grantor's catalog an edge covers
type AuthorizationScope string

const (
	ScopeAll      AuthorizationScope = "all"
	ScopeCategory AuthorizationScope = "category"
	ScopeProducts AuthorizationScope = "products"
)

// IsValid checks if the scope is valid
func (s AuthorizationScope) IsValid() bool {
	switch s {
	case ScopeAll, ScopeCategory, ScopeProducts:
		return true
	default:
		return false
	}
}

// AuthorizationStatus is the lifecycle status of an edge. Edges are never
// physically removed while referenced by historical orders.
type AuthorizationStatus string

const (
	AuthorizationStatusActive  AuthorizationStatus = "active"
	AuthorizationStatusRevoked AuthorizationStatus = "revoked"
	AuthorizationStatusExpired AuthorizationStatus = "expired"
)

// AuthorizationEdge is a directed resale grant from a manufacturer to a
// downstream manufacturer or designer. Exactly one of GranteeManufacturerID /
// GranteeDesignerID is set, matching AuthorizationType.
//
// MinDiscountRate and CommissionRate are edge-level overrides; nil means
// "defer to the grantor's manufacturer defaults". Legacy rows carry 0 with the
// same meaning, so a stored zero is never treated as an explicit zero rate.
type AuthorizationEdge struct {
	ID                    uint                `json:"id" gorm:"primaryKey"`
	FromManufacturerID    uint                `json:"from_manufacturer_id" gorm:"index;not null"`
	GranteeManufacturerID *uint               `json:"grantee_manufacturer_id,omitempty" gorm:"index"`
	GranteeDesignerID     *uint               `json:"grantee_designer_id,omitempty" gorm:"index"`
	AuthorizationType     AuthorizationType   `json:"authorization_type" gorm:"type:varchar(20);not null"`
	Scope                 AuthorizationScope  `json:"scope" gorm:"type:varchar(20);not null;default:'all'"`
	Categories            []string            `json:"categories,omitempty" gorm:"serializer:json"`
	Products              []string            `json:"products,omitempty" gorm:"serializer:json"`
	MinDiscountRate       *float64            `json:"min_discount_rate,omitempty" gorm:"type:decimal(5,2)"`
	CommissionRate        *float64            `json:"commission_rate,omitempty" gorm:"type:decimal(5,2)"`
	RuleSetID             *uint               `json:"rule_set_id,omitempty" gorm:"index"`
	Status                AuthorizationStatus `json:"status" gorm:"type:varchar(20);index;not null;default:'active'"`
	ValidFrom             time.Time           `json:"valid_from"`
	ValidUntil            *time.Time          `json:"valid_until,omitempty"`
	CreatedBy             uint                `json:"created_by"`
	UpdatedBy             uint                `json:"updated_by"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
}

// GranteeRef returns the actor reference of the edge's grantee
func (e *AuthorizationEdge) GranteeRef() ActorRef {
	if e.AuthorizationType == AuthorizationTypeDesigner && e.GranteeDesignerID != nil {
		return ActorRef{Type: ActorTypeDesigner, ID: *e.GranteeDesignerID}
	}
	if e.GranteeManufacturerID != nil {
		return ActorRef{Type: ActorTypeManufacturer, ID: *e.GranteeManufacturerID}
	}
	return ActorRef{}
}

// IsCurrentlyValid reports whether the edge is active and inside its validity window
func (e *AuthorizationEdge) IsCurrentlyValid(now time.Time) bool {
	if e.Status != AuthorizationStatusActive {
		return false
	}
	if !e.ValidFrom.IsZero() && now.Before(e.ValidFrom) {
		return false
	}
	if e.ValidUntil != nil && now.After(*e.ValidUntil) {
		return false
	}
	return true
}

// ActorType identifies a participant kind in the authorization graph
type ActorType string

const (
	ActorTypeManufacturer ActorType = "manufacturer"
	ActorTypeDesigner     ActorType = "designer"
)

// ActorRef identifies a participant in the authorization graph
type ActorRef struct {
	Type ActorType `json:"type"`
	ID   uint      `json:"id"`
}

// Key returns the stable string key used for partner rule matching and logging
func (a ActorRef) Key() string {
	return fmt.Sprintf("%s:%d", a.Type, a.ID)
}

// TierCommissionRuleSet is a named, manufacturer-owned set of depth-indexed
// commission rules with optional partner-specific overrides. At most one set is
// effective per manufacturer at resolution time: an edge may pin one by ID,
// otherwise the most recently updated active set applies.
type TierCommissionRuleSet struct {
	ID             uint                    `json:"id" gorm:"primaryKey"`
	ManufacturerID uint                    `json:"manufacturer_id" gorm:"index;not null"`
	Name           string                  `json:"name" gorm:"type:varchar(100);not null"`
	IsActive       bool                    `json:"is_active" gorm:"default:true"`
	Rules          []TierCommissionRule    `json:"rules" gorm:"foreignKey:RuleSetID;constraint:OnDelete:CASCADE"`
	PartnerRules   []PartnerCommissionRule `json:"partner_rules" gorm:"foreignKey:RuleSetID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// TierCommissionRule sets the commission rate for every actor at a given depth.
// Depth 0 is the direct grantee, 1 that grantee's own sub-grantees, and so on.
type TierCommissionRule struct {
	ID             uint    `json:"id" gorm:"primaryKey"`
	RuleSetID      uint    `json:"rule_set_id" gorm:"index;not null"`
	Depth          int     `json:"depth" gorm:"not null"`
	CommissionRate float64 `json:"commission_rate" gorm:"type:decimal(5,2);not null"`
	Description    string  `json:"description" gorm:"type:text"`
}

// PartnerCommissionRule overrides the depth rule for one named downstream
// partner regardless of its depth in the chain.
type PartnerCommissionRule struct {
	ID             uint    `json:"id" gorm:"primaryKey"`
	RuleSetID      uint    `json:"rule_set_id" gorm:"index;not null"`
	PartnerKey     string  `json:"partner_key" gorm:"type:varchar(50);index;not null"`
	CommissionRate float64 `json:"commission_rate" gorm:"type:decimal(5,2);not null"`
	Description    string  `json:"description" gorm:"type:text"`
}
