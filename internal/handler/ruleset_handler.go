package handler

import (
	"net/http"
	"time"

	"marketplace-service/internal/model"
	"marketplace-service/pkg/database"
	"marketplace-service/pkg/logger"
	"marketplace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TierRuleRequest is one depth-indexed commission rule in a rule set payload
type TierRuleRequest struct {
	Depth          int     `json:"depth"`
	CommissionRate float64 `json:"commission_rate"`
	Description    string  `json:"description"`
}

// PartnerRuleRequest overrides the depth rule for one named partner
type PartnerRuleRequest struct {
	PartnerKey     string  `json:"partner_key" validate:"required"`
	CommissionRate float64 `json:"commission_rate"`
	Description    string  `json:"description"`
}

// CreateRuleSetRequest defines the payload for creating a tier commission rule set
type CreateRuleSetRequest struct {
	Name         string               `json:"name" validate:"required"`
	IsActive     bool                 `json:"is_active"`
	Rules        []TierRuleRequest    `json:"rules"`
	PartnerRules []PartnerRuleRequest `json:"partner_rules"`
}

// CreateRuleSet creates a tier commission rule set for the caller's manufacturer
func CreateRuleSet(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAuthorizationOperation("create_rule_set")

	var req CreateRuleSetRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	manufacturerID, ok := c.Get("manufacturer_id").(uint)
	if !ok {
		prometheus.ManufacturerContextMissingCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "manufacturer context required"})
	}

	// Depths must be unique within a set; rates are percentages.
	seenDepths := map[int]bool{}
	for _, rule := range req.Rules {
		if rule.Depth < 0 || rule.CommissionRate < 0 || rule.CommissionRate > 100 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid depth rule"})
		}
		if seenDepths[rule.Depth] {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "duplicate depth in rules"})
		}
		seenDepths[rule.Depth] = true
	}
	for _, rule := range req.PartnerRules {
		if rule.PartnerKey == "" || rule.CommissionRate < 0 || rule.CommissionRate > 100 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid partner rule"})
		}
	}

	ruleSet := model.TierCommissionRuleSet{
		ManufacturerID: manufacturerID,
		Name:           req.Name,
		IsActive:       req.IsActive,
	}
	for _, rule := range req.Rules {
		ruleSet.Rules = append(ruleSet.Rules, model.TierCommissionRule{
			Depth:          rule.Depth,
			CommissionRate: rule.CommissionRate,
			Description:    rule.Description,
		})
	}
	for _, rule := range req.PartnerRules {
		ruleSet.PartnerRules = append(ruleSet.PartnerRules, model.PartnerCommissionRule{
			PartnerKey:     rule.PartnerKey,
			CommissionRate: rule.CommissionRate,
			Description:    rule.Description,
		})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	if result := database.GetDB().Create(&ruleSet); result.Error != nil {
		log.Error("Failed to create rule set", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create rule set"})
	}

	log.Info("Rule set created",
		zap.Uint("rule_set_id", ruleSet.ID),
		zap.Uint("manufacturer_id", manufacturerID),
		zap.Int("rules", len(ruleSet.Rules)),
		zap.Int("partner_rules", len(ruleSet.PartnerRules)))
	return c.JSON(http.StatusCreated, ruleSet)
}

// ListRuleSets returns the caller manufacturer's rule sets, newest first
func ListRuleSets(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAuthorizationOperation("list_rule_sets")

	manufacturerID, ok := c.Get("manufacturer_id").(uint)
	if !ok {
		prometheus.ManufacturerContextMissingCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "manufacturer context required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var ruleSets []model.TierCommissionRuleSet
	result := database.GetDB().
		Preload("Rules").
		Preload("PartnerRules").
		Where("manufacturer_id = ?", manufacturerID).
		Order("updated_at desc").
		Find(&ruleSets)
	if result.Error != nil {
		log.Error("Failed to list rule sets", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to list rule sets"})
	}

	return c.JSON(http.StatusOK, echo.Map{"rule_sets": ruleSets})
}
