package jwtutil

import (
	"testing"

	"marketplace-service/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestConfig() {
	Initialize(&config.JWTConfig{
		SigningKey:      "test-signing-key",
		ExpirationHours: 1,
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	initTestConfig()

	token, err := GenerateToken("user@example.com", 42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Nil(t, claims.ManufacturerID)
	assert.False(t, claims.IsSuperAdmin())
}

func TestGenerateTokenWithManufacturer(t *testing.T) {
	initTestConfig()

	manufacturerID := uint(7)
	token, err := GenerateTokenWithManufacturer("staff@example.com", 42, &manufacturerID, "Oakline Furniture", "manufacturer_admin")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	require.NotNil(t, claims.ManufacturerID)
	assert.Equal(t, uint(7), *claims.ManufacturerID)
	assert.Equal(t, "Oakline Furniture", claims.ManufacturerName)
	assert.Equal(t, "manufacturer_admin", claims.Role)
	assert.False(t, claims.IsSuperAdmin())
}

func TestIsSuperAdmin(t *testing.T) {
	initTestConfig()

	token, err := GenerateTokenWithManufacturer("admin@example.com", 1, nil, "", "super_admin")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, claims.IsSuperAdmin())
}

func TestValidateToken_WrongKey(t *testing.T) {
	initTestConfig()
	token, err := GenerateToken("user@example.com", 42)
	require.NoError(t, err)

	Initialize(&config.JWTConfig{SigningKey: "a-different-key", ExpirationHours: 1})
	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	initTestConfig()
	_, err := ValidateToken("not.a.token")
	assert.Error(t, err)
}
