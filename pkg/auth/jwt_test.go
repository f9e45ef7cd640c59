package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medvault/medvault/internal/config"
	"github.com/medvault/medvault/internal/domain"
)

func testManager(accessTTL time.Duration) *JWTManager {
	return NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-at-least-32-characters-long",
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "medvault-test",
	})
}

func TestTokenRoundTrip(t *testing.T) {
	m := testManager(15 * time.Minute)

	pair, err := m.GenerateTokenPair(&domain.Claims{
		Address: "0xpatient1",
		Role:    domain.RolePatient,
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)

	claims, err := m.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.Address("0xpatient1"), claims.Address)
	assert.Equal(t, domain.RolePatient, claims.Role)
}

func TestTokenTypeMismatch(t *testing.T) {
	m := testManager(15 * time.Minute)

	pair, err := m.GenerateTokenPair(&domain.Claims{Address: "0xprovider1", Role: domain.RoleProvider})
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)

	_, err = m.ValidateRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)
}

func TestExpiredToken(t *testing.T) {
	m := testManager(-1 * time.Minute)

	pair, err := m.GenerateTokenPair(&domain.Claims{Address: "0xpatient1", Role: domain.RolePatient})
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestForeignTokenRejected(t *testing.T) {
	m := testManager(15 * time.Minute)
	other := NewJWTManager(config.JWTConfig{
		Secret:          "a-completely-different-signing-secret!!",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "medvault-test",
	})

	pair, err := other.GenerateTokenPair(&domain.Claims{Address: "0xpatient1", Role: domain.RolePatient})
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = m.ValidateAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
