package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"marketplace-service/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

var jwtConfig *config.JWTConfig

// MarketplaceClaims extends jwt.RegisteredClaims with marketplace actor context.
// ManufacturerID is set when the caller is linked to a manufacturer identity
// (a manufacturer staff account or a designer's own linked manufacturer).
type MarketplaceClaims struct {
	Email            string `json:"email"`
	UserID           uint   `json:"user_id"`
	ManufacturerID   *uint  `json:"manufacturer_id,omitempty"`
	ManufacturerName string `json:"manufacturer_name,omitempty"`
	Role             string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// IsSuperAdmin reports whether the claims carry the super admin role
func (c *MarketplaceClaims) IsSuperAdmin() bool {
	return c.Role == "super_admin"
}

// Initialize sets up the JWT utility with configuration
func Initialize(config *config.JWTConfig) {
	jwtConfig = config
}

// GenerateToken creates a new JWT token for a user without manufacturer context
func GenerateToken(email string, userID uint) (string, error) {
	return generateTokenWithClaims(email, userID, nil, "", "")
}

// GenerateTokenWithManufacturer creates a new JWT token with manufacturer context
func GenerateTokenWithManufacturer(email string, userID uint, manufacturerID *uint, manufacturerName, role string) (string, error) {
	return generateTokenWithClaims(email, userID, manufacturerID, manufacturerName, role)
}

// generateTokenWithClaims is a helper function that creates a token with the given claims
func generateTokenWithClaims(email string, userID uint, manufacturerID *uint, manufacturerName, role string) (string, error) {
	if jwtConfig == nil {
		return "", errors.New("JWT configuration not initialized")
	}

	// Get signing key from configuration
	signingKey := jwtConfig.SigningKey

	// Token expiration time from configuration
	expirationHours := jwtConfig.ExpirationHours

	// Create the claims
	claims := &MarketplaceClaims{
		Email:            email,
		UserID:           userID,
		ManufacturerID:   manufacturerID,
		ManufacturerName: manufacturerName,
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(expirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	// Create token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	// Generate encoded token
	return token.SignedString([]byte(signingKey))
}

// ValidateToken validates the token and returns the claims
func ValidateToken(tokenString string) (*MarketplaceClaims, error) {
	if jwtConfig == nil {
		return nil, errors.New("JWT configuration not initialized")
	}

	// Get signing key from configuration
	signingKey := jwtConfig.SigningKey

	// Parse the token
	token, err := jwt.ParseWithClaims(
		tokenString,
		&MarketplaceClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(signingKey), nil
		},
	)

	if err != nil {
		return nil, err
	}

	// Validate the token and extract claims
	if claims, ok := token.Claims.(*MarketplaceClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
