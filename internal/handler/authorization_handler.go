package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"marketplace-service/internal/authz"
	"marketplace-service/internal/model"
	"marketplace-service/pkg/database"
	"marketplace-service/pkg/logger"
	"marketplace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GrantAuthorizationRequest defines the payload for granting resale rights
type GrantAuthorizationRequest struct {
	GranteeManufacturerID *uint      `json:"grantee_manufacturer_id,omitempty"`
	GranteeDesignerID     *uint      `json:"grantee_designer_id,omitempty"`
	AuthorizationType     string     `json:"authorization_type" validate:"required"`
	Scope                 string     `json:"scope" validate:"required"`
	Categories            []string   `json:"categories,omitempty"`
	Products              []string   `json:"products,omitempty"`
	MinDiscountRate       *float64   `json:"min_discount_rate,omitempty"`
	CommissionRate        *float64   `json:"commission_rate,omitempty"`
	RuleSetID             *uint      `json:"rule_set_id,omitempty"`
	ValidFrom             *time.Time `json:"valid_from,omitempty"`
	ValidUntil            *time.Time `json:"valid_until,omitempty"`
}

// UpdateAuthorizationRequest defines the fields either party may change on an
// existing edge within permission limits.
type UpdateAuthorizationRequest struct {
	MinDiscountRate *float64   `json:"min_discount_rate,omitempty"`
	CommissionRate  *float64   `json:"commission_rate,omitempty"`
	RuleSetID       *uint      `json:"rule_set_id,omitempty"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
	Status          *string    `json:"status,omitempty"`
}

// GrantAuthorization creates a new authorization edge from the caller's
// manufacturer to a downstream manufacturer or designer.
func GrantAuthorization(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAuthorizationOperation("grant")

	var req GrantAuthorizationRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	fromManufacturerID, ok := c.Get("manufacturer_id").(uint)
	if !ok {
		prometheus.ManufacturerContextMissingCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "manufacturer context required"})
	}

	authType := model.AuthorizationType(req.AuthorizationType)
	if !authType.IsValid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid authorization_type"})
	}

	// Exactly one grantee, matching the declared type.
	var grantee model.ActorRef
	switch authType {
	case model.AuthorizationTypeManufacturer:
		if req.GranteeManufacturerID == nil || req.GranteeDesignerID != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "manufacturer authorization requires exactly grantee_manufacturer_id"})
		}
		grantee = model.ActorRef{Type: model.ActorTypeManufacturer, ID: *req.GranteeManufacturerID}
	case model.AuthorizationTypeDesigner:
		if req.GranteeDesignerID == nil || req.GranteeManufacturerID != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "designer authorization requires exactly grantee_designer_id"})
		}
		grantee = model.ActorRef{Type: model.ActorTypeDesigner, ID: *req.GranteeDesignerID}
	}

	scope := model.AuthorizationScope(req.Scope)
	if !scope.IsValid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid scope"})
	}
	if scope == model.ScopeCategory && len(req.Categories) == 0 {
		log.Warn("Category scope without categories")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": authz.ErrInvalidScope.Error()})
	}
	if scope == model.ScopeProducts && len(req.Products) == 0 {
		log.Warn("Products scope without products")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": authz.ErrInvalidScope.Error()})
	}

	db := database.GetDB()

	// Grantee manufacturers must exist; designer identities live in the
	// identity service and are referenced by ID only.
	if grantee.Type == model.ActorTypeManufacturer {
		var count int64
		db.Model(&model.Manufacturer{}).Where("id = ?", grantee.ID).Count(&count)
		if count == 0 {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "grantee manufacturer not found"})
		}
	}

	resolver := authz.NewResolver(db)
	cyclic, err := resolver.WouldCreateCycle(c.Request().Context(), fromManufacturerID, grantee)
	if err != nil {
		log.Error("Cycle check failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to validate authorization"})
	}
	if cyclic {
		log.Warn("Rejected cyclic authorization",
			zap.Uint("from_manufacturer_id", fromManufacturerID),
			zap.String("grantee", grantee.Key()))
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": authz.ErrCircularAuthorization.Error()})
	}

	validFrom := time.Now()
	if req.ValidFrom != nil {
		validFrom = *req.ValidFrom
	}

	edge := model.AuthorizationEdge{
		FromManufacturerID:    fromManufacturerID,
		GranteeManufacturerID: req.GranteeManufacturerID,
		GranteeDesignerID:     req.GranteeDesignerID,
		AuthorizationType:     authType,
		Scope:                 scope,
		Categories:            req.Categories,
		Products:              req.Products,
		MinDiscountRate:       req.MinDiscountRate,
		CommissionRate:        req.CommissionRate,
		RuleSetID:             req.RuleSetID,
		Status:                model.AuthorizationStatusActive,
		ValidFrom:             validFrom,
		ValidUntil:            req.ValidUntil,
		CreatedBy:             userID,
		UpdatedBy:             userID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	if result := db.Create(&edge); result.Error != nil {
		log.Error("Failed to create authorization edge", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create authorization"})
	}

	log.Info("Authorization granted",
		zap.Uint("edge_id", edge.ID),
		zap.Uint("from_manufacturer_id", fromManufacturerID),
		zap.String("grantee", grantee.Key()),
		zap.String("scope", string(scope)))
	return c.JSON(http.StatusCreated, edge)
}

// RevokeAuthorization soft-revokes an edge. Edges referenced by historical
// orders are never physically removed.
func RevokeAuthorization(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAuthorizationOperation("revoke")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid authorization ID"})
	}

	userID, _ := c.Get("user_id").(uint)
	manufacturerID, hasManufacturer := c.Get("manufacturer_id").(uint)
	role, _ := c.Get("role").(string)

	db := database.GetDB()
	var edge model.AuthorizationEdge
	if result := db.First(&edge, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Authorization not found"})
	}

	// Only the grantor (or a super admin) revokes.
	if role != "super_admin" && (!hasManufacturer || edge.FromManufacturerID != manufacturerID) {
		log.Warn("Unauthorized revoke attempt", zap.Uint64("edge_id", id))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "You don't have permission to revoke this authorization"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	updates := map[string]interface{}{
		"status":     model.AuthorizationStatusRevoked,
		"updated_by": userID,
	}
	if result := db.Model(&edge).Updates(updates); result.Error != nil {
		log.Error("Failed to revoke authorization", zap.Uint64("edge_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to revoke authorization"})
	}

	log.Info("Authorization revoked", zap.Uint64("edge_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Authorization revoked"})
}

// UpdateAuthorization lets the grantor adjust pricing, rule set pinning,
// validity or status on an existing edge.
func UpdateAuthorization(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAuthorizationOperation("update")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid authorization ID"})
	}

	var req UpdateAuthorizationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	userID, _ := c.Get("user_id").(uint)
	manufacturerID, hasManufacturer := c.Get("manufacturer_id").(uint)
	role, _ := c.Get("role").(string)

	db := database.GetDB()
	var edge model.AuthorizationEdge
	if result := db.First(&edge, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Authorization not found"})
	}

	if role != "super_admin" && (!hasManufacturer || edge.FromManufacturerID != manufacturerID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "You don't have permission to update this authorization"})
	}

	updates := map[string]interface{}{"updated_by": userID}
	if req.MinDiscountRate != nil {
		updates["min_discount_rate"] = *req.MinDiscountRate
	}
	if req.CommissionRate != nil {
		updates["commission_rate"] = *req.CommissionRate
	}
	if req.RuleSetID != nil {
		updates["rule_set_id"] = *req.RuleSetID
	}
	if req.ValidUntil != nil {
		updates["valid_until"] = *req.ValidUntil
	}
	if req.Status != nil {
		status := model.AuthorizationStatus(*req.Status)
		if status != model.AuthorizationStatusActive && status != model.AuthorizationStatusRevoked {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
		}
		updates["status"] = status
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	if result := db.Model(&edge).Updates(updates); result.Error != nil {
		log.Error("Failed to update authorization", zap.Uint64("edge_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update authorization"})
	}

	if result := db.First(&edge, id); result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		log.Error("Failed to reload authorization", zap.Uint64("edge_id", id), zap.Error(result.Error))
	}

	log.Info("Authorization updated", zap.Uint64("edge_id", id))
	return c.JSON(http.StatusOK, edge)
}

// ListAuthorizations returns the edges granted by (and to) the caller's
// manufacturer. Super admins may inspect any manufacturer via query param.
func ListAuthorizations(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAuthorizationOperation("list")

	manufacturerID, hasManufacturer := c.Get("manufacturer_id").(uint)
	role, _ := c.Get("role").(string)

	if role == "super_admin" {
		if raw := c.QueryParam("manufacturer_id"); raw != "" {
			if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
				manufacturerID = uint(id)
				hasManufacturer = true
			}
		}
	}
	if !hasManufacturer {
		prometheus.ManufacturerContextMissingCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "manufacturer context required"})
	}

	query := database.GetDB().
		Where("from_manufacturer_id = ? OR grantee_manufacturer_id = ?", manufacturerID, manufacturerID)
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var edges []model.AuthorizationEdge
	if result := query.Order("created_at desc").Find(&edges); result.Error != nil {
		log.Error("Failed to list authorizations", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to list authorizations"})
	}

	return c.JSON(http.StatusOK, echo.Map{"authorizations": edges})
}
