package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := GenerateAccessToken("secret", "u1", "t1", RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := ParseAccessToken(tok, "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "t1", claims.TenantID)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, "u1", claims.Subject)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tok, err := GenerateAccessToken("secret", "u1", "t1", RoleUser, time.Hour)
	require.NoError(t, err)

	_, err = ParseAccessToken(tok, "other-secret")
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	tok, err := GenerateAccessToken("secret", "u1", "t1", RoleUser, -time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(tok, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseRejectsNonHMACAlgorithm(t *testing.T) {
	// alg=none style downgrades must be refused by the key callback.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{UserID: "u1", TenantID: "t1"})
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseAccessToken(unsigned, "secret")
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := ParseAccessToken("not.a.token", "secret")
	assert.Error(t, err)
}
