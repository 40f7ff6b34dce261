package middleware

import (
	"net/http"
	"strings"

	"marketplace-service/pkg/jwtutil"
	"marketplace-service/pkg/logger"
	"marketplace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware verifies the JWT token and extracts claims
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Track authentication attempts
		prometheus.AuthAttemptsCounter.Inc()

		// Extract the token from the Authorization header
		tokenString := c.Request().Header.Get("Authorization")
		if tokenString == "" {
			log.Warn("Missing authorization token")
			prometheus.AuthErrorsCounter.Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}

		// Remove "Bearer " prefix if present
		if len(tokenString) > 7 && strings.ToUpper(tokenString[0:7]) == "BEARER " {
			tokenString = tokenString[7:]
		}

		// Validate the token
		claims, err := jwtutil.ValidateToken(tokenString)
		if err != nil {
			log.Warn("Invalid token", zap.Error(err))
			prometheus.AuthErrorsCounter.Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
		}

		// Increment successful auth counter
		prometheus.AuthSuccessCounter.Inc()

		// Store user information in the context
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)

		// If token has manufacturer context, store it in the context
		if claims.ManufacturerID != nil {
			c.Set("manufacturer_id", *claims.ManufacturerID)
			c.Set("manufacturer_name", claims.ManufacturerName)

			// Add manufacturer info to logger
			log = log.With(
				zap.Uint("manufacturer_id", *claims.ManufacturerID),
				zap.String("manufacturer_name", claims.ManufacturerName),
			)
		}

		// Update logger with user information
		log = log.With(
			zap.Uint("user_id", claims.UserID),
			zap.String("email", claims.Email),
			zap.String("role", claims.Role),
		)
		c.Set("logger", log)

		// Call the next handler
		return next(c)
	}
}

// RequireManufacturerContext ensures the request has manufacturer context in the JWT
func RequireManufacturerContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Check if manufacturer_id exists in context
		manufacturerID, ok := c.Get("manufacturer_id").(uint)
		if !ok || manufacturerID == 0 {
			log.Warn("Missing manufacturer context")
			prometheus.ManufacturerContextMissingCounter.Inc()
			return c.JSON(http.StatusForbidden, echo.Map{
				"error":   "manufacturer context required",
				"message": "This resource is only available to manufacturer-linked accounts",
			})
		}

		// Manufacturer context exists, proceed
		return next(c)
	}
}
