package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"marketplace-service/internal/dispatch"
	"marketplace-service/internal/model"
	"marketplace-service/pkg/database"
	"marketplace-service/pkg/logger"
	"marketplace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UpdateManufacturerOrderStatusRequest is the lifecycle transition payload
type UpdateManufacturerOrderStatusRequest struct {
	Status          string `json:"status" validate:"required"`
	TrackingNo      string `json:"tracking_no,omitempty"`
	TrackingCompany string `json:"tracking_company,omitempty"`
	Remark          string `json:"remark,omitempty"`
}

// ListManufacturerOrders returns a page of manufacturer sub-orders. Non-super-
// admin callers are implicitly scoped to their own linked manufacturer.
func ListManufacturerOrders(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordLifecycleOperation("list")

	role, _ := c.Get("role").(string)

	filter := dispatch.ListFilter{
		Status:  model.ManufacturerOrderStatus(c.QueryParam("status")),
		Keyword: c.QueryParam("keyword"),
	}
	filter.Page, _ = strconv.Atoi(c.QueryParam("page"))
	filter.Limit, _ = strconv.Atoi(c.QueryParam("limit"))

	if role == "super_admin" {
		if raw := c.QueryParam("manufacturer_id"); raw != "" {
			if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
				mid := uint(id)
				filter.ManufacturerID = &mid
			}
		}
	} else {
		manufacturerID, ok := c.Get("manufacturer_id").(uint)
		if !ok || manufacturerID == 0 {
			prometheus.ManufacturerContextMissingCounter.Inc()
			return c.JSON(http.StatusForbidden, echo.Map{"error": "manufacturer context required"})
		}
		filter.ManufacturerID = &manufacturerID
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	svc := dispatch.NewService(database.GetDB())
	orders, total, err := svc.List(c.Request().Context(), filter)
	if err != nil {
		log.Error("Failed to list manufacturer orders", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to list manufacturer orders"})
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	return c.JSON(http.StatusOK, echo.Map{
		"manufacturer_orders": orders,
		"pagination": echo.Map{
			"current_page": filter.Page,
			"limit":        filter.Limit,
			"total":        total,
			"total_pages":  (int(total) + filter.Limit - 1) / filter.Limit,
		},
	})
}

// GetManufacturerOrder returns one sub-order with its items and audit log
func GetManufacturerOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordLifecycleOperation("get")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid manufacturer order ID"})
	}

	svc := dispatch.NewService(database.GetDB())
	sub, err := svc.Get(c.Request().Context(), uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Manufacturer order not found"})
	}
	if err != nil {
		log.Error("Failed to load manufacturer order", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load manufacturer order"})
	}

	if !callerMayAccess(c, sub) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "You don't have permission to access this manufacturer order"})
	}
	return c.JSON(http.StatusOK, sub)
}

// ConfirmManufacturerOrder moves a pending sub-order to confirmed
func ConfirmManufacturerOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordLifecycleOperation("confirm")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid manufacturer order ID"})
	}
	userID, _ := c.Get("user_id").(uint)

	svc := dispatch.NewService(database.GetDB())
	sub, err := svc.Get(c.Request().Context(), uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Manufacturer order not found"})
	}
	if err != nil {
		log.Error("Failed to load manufacturer order", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load manufacturer order"})
	}
	if !callerMayAccess(c, sub) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "You don't have permission to confirm this manufacturer order"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	confirmed, err := svc.Confirm(c.Request().Context(), uint(id), userID)
	if errors.Is(err, dispatch.ErrInvalidTransition) {
		log.Warn("Rejected confirm",
			zap.Uint64("manufacturer_order_id", id),
			zap.String("current_status", string(sub.Status)))
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":          err.Error(),
			"current_status": sub.Status,
		})
	}
	if err != nil {
		log.Error("Failed to confirm manufacturer order", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to confirm manufacturer order"})
	}

	go updateManufacturerOrderGauges()

	log.Info("Manufacturer order confirmed", zap.Uint64("manufacturer_order_id", id))
	return c.JSON(http.StatusOK, confirmed)
}

// UpdateManufacturerOrderStatus applies a manufacturer-initiated lifecycle
// transition, recording tracking details when shipping.
func UpdateManufacturerOrderStatus(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordLifecycleOperation("update_status")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid manufacturer order ID"})
	}

	var req UpdateManufacturerOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	status := model.ManufacturerOrderStatus(req.Status)
	if !status.IsValid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	userID, _ := c.Get("user_id").(uint)

	svc := dispatch.NewService(database.GetDB())
	sub, err := svc.Get(c.Request().Context(), uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Manufacturer order not found"})
	}
	if err != nil {
		log.Error("Failed to load manufacturer order", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load manufacturer order"})
	}
	if !callerMayAccess(c, sub) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "You don't have permission to update this manufacturer order"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	updated, err := svc.UpdateStatus(c.Request().Context(), uint(id), userID, dispatch.StatusUpdate{
		Status:          status,
		TrackingNo:      req.TrackingNo,
		TrackingCompany: req.TrackingCompany,
		Remark:          req.Remark,
	})
	if errors.Is(err, dispatch.ErrInvalidTransition) {
		log.Warn("Rejected status transition",
			zap.Uint64("manufacturer_order_id", id),
			zap.String("current_status", string(sub.Status)),
			zap.String("requested_status", string(status)))
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":          err.Error(),
			"current_status": sub.Status,
		})
	}
	if err != nil {
		log.Error("Failed to update manufacturer order status", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update manufacturer order status"})
	}

	go updateManufacturerOrderGauges()

	log.Info("Manufacturer order status updated",
		zap.Uint64("manufacturer_order_id", id),
		zap.String("status", string(updated.Status)))
	return c.JSON(http.StatusOK, updated)
}

// callerMayAccess checks that the caller's manufacturer owns the sub-order.
// Super admins may access any sub-order, including the "unknown" bucket which
// has no manufacturer until manually assigned.
func callerMayAccess(c echo.Context, sub *model.ManufacturerOrder) bool {
	role, _ := c.Get("role").(string)
	if role == "super_admin" {
		return true
	}
	manufacturerID, ok := c.Get("manufacturer_id").(uint)
	if !ok {
		return false
	}
	return sub.ManufacturerID != nil && *sub.ManufacturerID == manufacturerID
}
