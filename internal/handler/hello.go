package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Hello returns a basic service heartbeat
func Hello(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"service": "marketplace-service",
		"status":  "ok",
	})
}
