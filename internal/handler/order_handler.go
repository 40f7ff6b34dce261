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

// DispatchOrder splits a placed order into per-manufacturer sub-orders.
// One-shot: re-dispatch and cancelled orders are rejected.
func DispatchOrder(c echo.Context) error {
	log := logger.FromContext(c)

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid order ID"})
	}

	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	defer prometheus.TrackDBOperation("transaction")(time.Now())

	svc := dispatch.NewService(database.GetDB())
	result, err := svc.Dispatch(c.Request().Context(), uint(orderID), userID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		prometheus.RecordDispatch("not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Order not found"})
	case errors.Is(err, dispatch.ErrAlreadyDispatched):
		prometheus.RecordDispatch("already_dispatched")
		log.Warn("Rejected re-dispatch", zap.Uint64("order_id", orderID))
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, dispatch.ErrOrderCancelled):
		prometheus.RecordDispatch("cancelled")
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case err != nil:
		prometheus.RecordDispatch("error")
		log.Error("Dispatch failed", zap.Uint64("order_id", orderID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to dispatch order"})
	}

	prometheus.RecordDispatch("ok")
	if result.UnattributedItems > 0 {
		prometheus.UnattributedItemsCounter.Add(float64(result.UnattributedItems))
	}

	// Refresh the per-status gauge off the request path.
	go updateManufacturerOrderGauges()

	response := echo.Map{"manufacturer_orders": result.ManufacturerOrders}
	if result.UnattributedItems > 0 {
		response["warning"] = "some items have no resolvable manufacturer and were grouped for manual assignment"
		response["unattributed_items"] = result.UnattributedItems
	}
	return c.JSON(http.StatusCreated, response)
}

// updateManufacturerOrderGauges recounts sub-orders per status for the gauge
func updateManufacturerOrderGauges() {
	statuses := []model.ManufacturerOrderStatus{
		model.ManufacturerOrderStatusPending,
		model.ManufacturerOrderStatusConfirmed,
		model.ManufacturerOrderStatusProcessing,
		model.ManufacturerOrderStatusShipped,
		model.ManufacturerOrderStatusCompleted,
		model.ManufacturerOrderStatusCancelled,
	}
	for _, status := range statuses {
		var count int64
		database.GetDB().Model(&model.ManufacturerOrder{}).
			Where("status = ?", status).
			Count(&count)
		prometheus.UpdateManufacturerOrders(string(status), int(count))
	}
}
