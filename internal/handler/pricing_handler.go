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

// ResolveEffectiveRate computes the effective discount and commission split for
// an (actor, product) pair at cart/checkout time. Read-only: the caller freezes
// the result into order line subtotals at placement. Resolution failures are
// surfaced immediately; checkout must never silently fall back to a default
// discount when authorization is ambiguous.
func ResolveEffectiveRate(c echo.Context) error {
	log := logger.FromContext(c)

	manufacturerID, err := strconv.ParseUint(c.QueryParam("manufacturer_id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "manufacturer_id is required"})
	}
	actorID, err := strconv.ParseUint(c.QueryParam("actor_id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "actor_id is required"})
	}
	productID := c.QueryParam("product_id")
	if productID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "product_id is required"})
	}

	actorType := model.ActorType(c.QueryParam("actor_type"))
	if actorType == "" {
		actorType = model.ActorTypeDesigner
	}
	if actorType != model.ActorTypeManufacturer && actorType != model.ActorTypeDesigner {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid actor_type"})
	}

	db := database.GetDB()

	var product model.Product
	if result := db.Where("id = ?", productID).First(&product); result.Error != nil {
		prometheus.RecordResolution("product_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
	}

	ref := authz.ProductRef{ProductID: product.ID, CategoryID: product.CategoryID}
	actor := model.ActorRef{Type: actorType, ID: uint(actorID)}

	defer prometheus.TrackDBOperation("query")(time.Now())

	resolver := authz.NewResolver(db)
	resolution, err := resolver.ResolveForActor(c.Request().Context(), uint(manufacturerID), actor, ref)
	if errors.Is(err, authz.ErrNoApplicableAuthorization) {
		prometheus.RecordResolution("no_authorization")
		prometheus.ResolutionFailuresCounter.Inc()
		log.Warn("Resolution failed closed",
			zap.Uint64("manufacturer_id", manufacturerID),
			zap.String("actor", actor.Key()),
			zap.String("product_id", productID))
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		prometheus.RecordResolution("manufacturer_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Manufacturer not found"})
	}
	if err != nil {
		prometheus.RecordResolution("error")
		log.Error("Resolution failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to resolve effective rate"})
	}

	prometheus.RecordResolution("ok")
	log.Info("Effective rate resolved",
		zap.Uint64("manufacturer_id", manufacturerID),
		zap.String("actor", actor.Key()),
		zap.String("product_id", productID),
		zap.Float64("discount_rate", resolution.DiscountRate),
		zap.Int("hops", len(resolution.CommissionSplit)))
	return c.JSON(http.StatusOK, resolution)
}
