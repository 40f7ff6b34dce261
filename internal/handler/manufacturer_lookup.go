package handler

import (
	"errors"
	"net/http"

	"marketplace-service/internal/model"
	"marketplace-service/pkg/database"
	"marketplace-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LookupManufacturer resolves a manufacturer from a legacy display name.
// Kept for callers still holding pre-migration references; new integrations
// should look up by ID or code.
func LookupManufacturer(c echo.Context) error {
	log := logger.FromContext(c)

	name := c.QueryParam("name")
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	manufacturer, err := FindManufacturerByAnyName(database.GetDB(), name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Manufacturer not found"})
	}
	if err != nil {
		log.Error("Manufacturer lookup failed", zap.String("name", name), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to look up manufacturer"})
	}
	return c.JSON(http.StatusOK, manufacturer)
}

// FindManufacturerByAnyName resolves a manufacturer by any of its historical
// display names (name, full name, short name or code). Inconsistent legacy
// writes left orders referencing manufacturers by different fields; canonical
// lookups go by ID or Code, and this fallback exists only until those records
// are migrated. An exact Code match wins over name matches.
func FindManufacturerByAnyName(db *gorm.DB, name string) (*model.Manufacturer, error) {
	if name == "" {
		return nil, gorm.ErrRecordNotFound
	}

	var manufacturer model.Manufacturer
	err := db.Where("code = ?", name).First(&manufacturer).Error
	if err == nil {
		return &manufacturer, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = db.Where("name = ? OR full_name = ? OR short_name = ?", name, name, name).
		Order("id asc").
		First(&manufacturer).Error
	if err != nil {
		return nil, err
	}

	zap.L().Warn("manufacturer resolved through legacy name matching",
		zap.String("lookup", name),
		zap.Uint("manufacturer_id", manufacturer.ID),
		zap.String("code", manufacturer.Code))
	return &manufacturer, nil
}
