package handler

import (
	"net/http"
	"strconv"
	"time"

	"marketplace-service/internal/model"
	"marketplace-service/pkg/database"
	"marketplace-service/pkg/logger"
	"marketplace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ManufacturerRequest defines the structure for manufacturer creation/update requests
type ManufacturerRequest struct {
	Code                  string  `json:"code" validate:"required"`
	Name                  string  `json:"name" validate:"required"`
	FullName              string  `json:"full_name"`
	ShortName             string  `json:"short_name"`
	ContactPerson         string  `json:"contact_person"`
	Phone                 string  `json:"phone"`
	Address               string  `json:"address"`
	DefaultDiscountRate   float64 `json:"default_discount_rate"`
	DefaultCommissionRate float64 `json:"default_commission_rate"`
	IsActive              bool    `json:"is_active"`
}

// CreateManufacturer onboards a new manufacturer (admin only)
func CreateManufacturer(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Creating new manufacturer")

	role, _ := c.Get("role").(string)
	if role != "super_admin" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin role required"})
	}

	var req ManufacturerRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Code == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code and name are required"})
	}
	if req.DefaultDiscountRate < 0 || req.DefaultDiscountRate > 100 ||
		req.DefaultCommissionRate < 0 || req.DefaultCommissionRate > 100 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rates must be between 0 and 100"})
	}

	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	// Check if a manufacturer with the same code exists
	var count int64
	database.GetDB().Model(&model.Manufacturer{}).
		Where("code = ?", req.Code).
		Count(&count)
	if count > 0 {
		log.Warn("Manufacturer with this code already exists", zap.String("code", req.Code))
		return c.JSON(http.StatusConflict, echo.Map{"error": "Manufacturer with this code already exists"})
	}

	manufacturer := model.Manufacturer{
		Code:                  req.Code,
		Name:                  req.Name,
		FullName:              req.FullName,
		ShortName:             req.ShortName,
		ContactPerson:         req.ContactPerson,
		Phone:                 req.Phone,
		Address:               req.Address,
		DefaultDiscountRate:   req.DefaultDiscountRate,
		DefaultCommissionRate: req.DefaultCommissionRate,
		IsActive:              req.IsActive,
		CreatedBy:             userID,
		UpdatedBy:             userID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	if result := database.GetDB().Create(&manufacturer); result.Error != nil {
		log.Error("Failed to create manufacturer", zap.String("code", req.Code), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create manufacturer"})
	}

	log.Info("Manufacturer created successfully",
		zap.Uint("id", manufacturer.ID),
		zap.String("code", manufacturer.Code),
		zap.String("name", manufacturer.Name))
	return c.JSON(http.StatusCreated, manufacturer)
}

// GetManufacturer retrieves a manufacturer by ID
func GetManufacturer(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid manufacturer ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var manufacturer model.Manufacturer
	if result := database.GetDB().First(&manufacturer, id); result.Error != nil {
		log.Warn("Manufacturer not found", zap.Uint64("manufacturer_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Manufacturer not found"})
	}
	return c.JSON(http.StatusOK, manufacturer)
}

// ListManufacturers retrieves manufacturers with pagination
func ListManufacturers(c echo.Context) error {
	log := logger.FromContext(c)

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page <= 0 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	db := database.GetDB()
	query := db.Model(&model.Manufacturer{})

	if isActive := c.QueryParam("is_active"); isActive != "" {
		if active, err := strconv.ParseBool(isActive); err == nil {
			query = query.Where("is_active = ?", active)
		}
	}
	if keyword := c.QueryParam("keyword"); keyword != "" {
		kw := "%" + keyword + "%"
		query = query.Where("name LIKE ? OR full_name LIKE ? OR short_name LIKE ? OR code LIKE ?", kw, kw, kw, kw)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var total int64
	query.Count(&total)

	var manufacturers []model.Manufacturer
	result := query.
		Order("created_at desc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&manufacturers)
	if result.Error != nil {
		log.Error("Failed to list manufacturers", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to list manufacturers"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"manufacturers": manufacturers,
		"pagination": echo.Map{
			"current_page": page,
			"limit":        limit,
			"total":        total,
			"total_pages":  (int(total) + limit - 1) / limit,
		},
	})
}

// UpdateManufacturer updates an existing manufacturer (admin only)
func UpdateManufacturer(c echo.Context) error {
	log := logger.FromContext(c)

	role, _ := c.Get("role").(string)
	if role != "super_admin" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin role required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid manufacturer ID"})
	}

	var req ManufacturerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.DefaultDiscountRate < 0 || req.DefaultDiscountRate > 100 ||
		req.DefaultCommissionRate < 0 || req.DefaultCommissionRate > 100 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rates must be between 0 and 100"})
	}

	userID, _ := c.Get("user_id").(uint)

	var manufacturer model.Manufacturer
	if result := database.GetDB().First(&manufacturer, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Manufacturer not found"})
	}

	// Check if code is changed and if the new code already exists
	if req.Code != "" && req.Code != manufacturer.Code {
		var count int64
		database.GetDB().Model(&model.Manufacturer{}).
			Where("code = ? AND id != ?", req.Code, id).
			Count(&count)
		if count > 0 {
			return c.JSON(http.StatusConflict, echo.Map{"error": "Manufacturer with this code already exists"})
		}
		manufacturer.Code = req.Code
	}

	if req.Name != "" {
		manufacturer.Name = req.Name
	}
	manufacturer.FullName = req.FullName
	manufacturer.ShortName = req.ShortName
	manufacturer.ContactPerson = req.ContactPerson
	manufacturer.Phone = req.Phone
	manufacturer.Address = req.Address
	manufacturer.DefaultDiscountRate = req.DefaultDiscountRate
	manufacturer.DefaultCommissionRate = req.DefaultCommissionRate
	manufacturer.IsActive = req.IsActive
	manufacturer.UpdatedBy = userID

	defer prometheus.TrackDBOperation("update")(time.Now())

	if result := database.GetDB().Save(&manufacturer); result.Error != nil {
		log.Error("Failed to update manufacturer", zap.Uint64("manufacturer_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update manufacturer"})
	}

	log.Info("Manufacturer updated successfully",
		zap.Uint("id", manufacturer.ID),
		zap.String("code", manufacturer.Code))
	return c.JSON(http.StatusOK, manufacturer)
}
